package service

import (
	"context"
	"fmt"
	"time"

	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
	"github.com/promptcraft/voteguard/internal/notify"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// DetectionStore is everything the monitoring surface reads and mutates on
// detections.
type DetectionStore interface {
	GetByID(ctx context.Context, id string) (*types.VoteAbuseDetection, error)
	List(ctx context.Context, filter types.DetectionFilter, page, limit int) ([]*types.VoteAbuseDetection, int, error)
	Transition(ctx context.Context, detection *types.VoteAbuseDetection, next enum.AbuseStatus) error
	CountSince(ctx context.Context, since time.Time) (int, error)
	CountByIPSince(ctx context.Context, ipAddress string, since time.Time) (int, error)
	CountByTypeSince(ctx context.Context, abuseType enum.AbuseType, since time.Time) (int, error)
	CountByStatusCurrent(ctx context.Context, status enum.AbuseStatus) (int, error)
	CountByType(ctx context.Context, since time.Time) (map[enum.AbuseType]int, error)
	CountBySeverity(ctx context.Context, since time.Time) (map[enum.AbuseSeverity]int, error)
	CountByStatus(ctx context.Context, since time.Time) (map[enum.AbuseStatus]int, error)
	TopOffenders(ctx context.Context, since time.Time, limit int) ([]types.TopOffender, error)
	ResolutionStats(ctx context.Context, since time.Time) (*types.ResolutionStats, error)
}

// VoteVolumeSource supplies system-wide vote volume counts.
type VoteVolumeSource interface {
	CountAllSince(ctx context.Context, since time.Time) (int, error)
}

// RewardCounter supplies system-wide reward counts.
type RewardCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// PatternStore accumulates per-user risk.
type PatternStore interface {
	Upsert(ctx context.Context, userID uint64, pattern string, riskDelta float64) error
}

// AuditStore appends audit entries.
type AuditStore interface {
	Insert(ctx context.Context, entry *types.AuditLog) error
}

// Mailer delivers one HTML message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// InvestigationRequest is an admin action against a detection.
type InvestigationRequest struct {
	Action     string         `json:"action"`
	Notes      string         `json:"notes,omitempty"`
	Resolution string         `json:"resolution,omitempty"`
	Evidence   map[string]any `json:"evidence,omitempty"`
}

// topOffenderLimit caps the offender ranking in statistics and digests.
const topOffenderLimit = 10

// MonitorService consumes abuse alerts, applies the severity-based
// notification policy, aggregates admin statistics, and drives the manual
// investigation workflow.
type MonitorService struct {
	detections DetectionStore
	votes      VoteVolumeSource
	rewards    RewardCounter
	patterns   PatternStore
	audits     AuditStore
	mailer     Mailer
	abuseCfg   *config.Abuse
	notifyCfg  *config.Notifications
	logger     *zap.Logger
}

// NewMonitor creates a new monitoring service.
func NewMonitor(
	detections DetectionStore,
	votes VoteVolumeSource,
	rewards RewardCounter,
	patterns PatternStore,
	audits AuditStore,
	mailer Mailer,
	abuseCfg *config.Abuse,
	notifyCfg *config.Notifications,
	logger *zap.Logger,
) *MonitorService {
	return &MonitorService{
		detections: detections,
		votes:      votes,
		rewards:    rewards,
		patterns:   patterns,
		audits:     audits,
		mailer:     mailer,
		abuseCfg:   abuseCfg,
		notifyCfg:  notifyCfg,
		logger:     logger.Named("monitor_service"),
	}
}

// ProcessAbuseAlert applies the notification policy for one detection. The
// audit entry and the risk accumulator always update; mail delivery is
// best-effort and never fails the call.
func (s *MonitorService) ProcessAbuseAlert(ctx context.Context, alert *Alert) error {
	entry := &types.AuditLog{
		Action:     "alert_" + alert.Finding.Type.String(),
		Resource:   types.AuditResourceAbuseMonitoring,
		ResourceID: alert.DetectionID,
		Details: map[string]any{
			"userId":    alert.UserID,
			"promptId":  alert.PromptID,
			"severity":  alert.Finding.Severity.String(),
			"riskScore": alert.Finding.RiskScore,
		},
	}
	if err := s.audits.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to audit abuse alert: %w", err)
	}

	err := s.patterns.Upsert(ctx, alert.UserID, alert.Finding.Type.String(), alert.Finding.RiskScore)
	if err != nil {
		return fmt.Errorf("failed to update vote pattern: %w", err)
	}

	if alert.Finding.Severity.Immediate() {
		s.sendAlertMail(ctx, alert)
	}

	s.runEscalations(ctx, alert)

	return nil
}

// sendAlertMail notifies every address on the admin distribution list.
func (s *MonitorService) sendAlertMail(ctx context.Context, alert *Alert) {
	subject, body, err := notify.RenderAlert(&notify.AlertData{
		DetectionID: alert.DetectionID,
		AbuseType:   alert.Finding.Type.String(),
		Severity:    alert.Finding.Severity.String(),
		UserID:      alert.UserID,
		PromptID:    alert.PromptID,
		IPAddress:   alert.IPAddress,
		Reason:      alert.Finding.Reason,
		RiskScore:   alert.Finding.RiskScore,
		DetectedAt:  alert.DetectedAt,
	})
	if err != nil {
		s.logger.Error("Failed to render alert mail", zap.Error(err))
		return
	}

	s.deliver(ctx, subject, body)
}

// runEscalations evaluates the correlation checks. Each one independently
// triggers its own escalation mail; a failed count aborts only that check.
func (s *MonitorService) runEscalations(ctx context.Context, alert *Alert) {
	window := time.Duration(s.abuseCfg.CorrelationWindowMinutes) * time.Minute
	since := alert.DetectedAt.Add(-window)

	// Coordinated attack: many detections behind one IP.
	if ipCount, err := s.detections.CountByIPSince(ctx, alert.IPAddress, since); err != nil {
		s.logger.Error("Failed to count detections by IP", zap.Error(err))
	} else if ipCount >= s.abuseCfg.CoordinatedIPDetections {
		s.sendEscalation(ctx, "Coordinated attack detected",
			fmt.Sprintf("%d detections from IP %s within %d minutes.",
				ipCount, alert.IPAddress, s.abuseCfg.CorrelationWindowMinutes),
			map[string]string{
				"IP address": alert.IPAddress,
				"Detections": fmt.Sprint(ipCount),
				"Threshold":  fmt.Sprint(s.abuseCfg.CoordinatedIPDetections),
			})
	}

	// Systematic pattern: many same-type detections system-wide.
	if typeCount, err := s.detections.CountByTypeSince(ctx, alert.Finding.Type, since); err != nil {
		s.logger.Error("Failed to count detections by type", zap.Error(err))
	} else if typeCount >= s.abuseCfg.SystematicTypeDetections {
		s.sendEscalation(ctx, "Systematic abuse pattern detected",
			fmt.Sprintf("%d detections of type %s within %d minutes.",
				typeCount, alert.Finding.Type, s.abuseCfg.CorrelationWindowMinutes),
			map[string]string{
				"Abuse type": alert.Finding.Type.String(),
				"Detections": fmt.Sprint(typeCount),
				"Threshold":  fmt.Sprint(s.abuseCfg.SystematicTypeDetections),
			})
	}

	// System overload: high vote volume combined with a high abuse ratio.
	voteCount, voteErr := s.votes.CountAllSince(ctx, since)
	detectionCount, detErr := s.detections.CountSince(ctx, since)

	switch {
	case voteErr != nil:
		s.logger.Error("Failed to count recent votes", zap.Error(voteErr))
	case detErr != nil:
		s.logger.Error("Failed to count recent detections", zap.Error(detErr))
	default:
		abuseRatio := ratio(float64(detectionCount), float64(voteCount))
		if voteCount >= s.abuseCfg.OverloadVoteVolume && abuseRatio >= s.abuseCfg.OverloadAbuseRatio {
			s.sendEscalation(ctx, "System overload detected",
				fmt.Sprintf("%d votes with an abuse ratio of %.2f within %d minutes.",
					voteCount, abuseRatio, s.abuseCfg.CorrelationWindowMinutes),
				map[string]string{
					"Votes":       fmt.Sprint(voteCount),
					"Detections":  fmt.Sprint(detectionCount),
					"Abuse ratio": fmt.Sprintf("%.2f", abuseRatio),
				})
		}

		// Detection-rate spike: detections per hour over the spike threshold.
		windowHours := window.Hours()
		detectionRate := ratio(float64(detectionCount), windowHours)

		if detectionRate >= s.abuseCfg.SpikeDetectionRate {
			s.sendEscalation(ctx, "Abuse detection spike",
				fmt.Sprintf("Detection rate reached %.1f per hour.", detectionRate),
				map[string]string{
					"Rate":      fmt.Sprintf("%.1f/h", detectionRate),
					"Threshold": fmt.Sprintf("%.1f/h", s.abuseCfg.SpikeDetectionRate),
				})
		}
	}
}

func (s *MonitorService) sendEscalation(ctx context.Context, title, headline string, details map[string]string) {
	subject, body, err := notify.RenderEscalation(&notify.EscalationData{
		Title:    title,
		Headline: headline,
		Details:  details,
	})
	if err != nil {
		s.logger.Error("Failed to render escalation mail", zap.Error(err))
		return
	}

	s.deliver(ctx, subject, body)
}

// deliver sends one message to each address on the distribution list.
func (s *MonitorService) deliver(ctx context.Context, subject, body string) {
	for _, to := range s.notifyCfg.Recipients() {
		if err := s.mailer.Send(ctx, to, subject, body); err != nil {
			s.logger.Error("Failed to send notification mail",
				zap.String("to", to),
				zap.Error(err))
		}
	}
}

// GetAbuseStatistics aggregates the grouped detection counts over a time
// range. The independent counts fan out concurrently.
func (s *MonitorService) GetAbuseStatistics(ctx context.Context, timeRange time.Duration) (*types.AbuseStatistics, error) {
	now := time.Now()
	since := now.Add(-timeRange)
	stats := &types.AbuseStatistics{}

	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		total, err := s.detections.CountSince(ctx, since)
		stats.TotalDetections = total

		return err
	})
	p.Go(func(ctx context.Context) error {
		byType, err := s.detections.CountByType(ctx, since)
		stats.ByType = byType

		return err
	})
	p.Go(func(ctx context.Context) error {
		bySeverity, err := s.detections.CountBySeverity(ctx, since)
		stats.BySeverity = bySeverity

		return err
	})
	p.Go(func(ctx context.Context) error {
		byStatus, err := s.detections.CountByStatus(ctx, since)
		stats.ByStatus = byStatus

		return err
	})
	p.Go(func(ctx context.Context) error {
		last7, err := s.detections.CountSince(ctx, now.Add(-7*24*time.Hour))
		stats.RecentTrends.Last7Days = last7

		return err
	})
	p.Go(func(ctx context.Context) error {
		last30, err := s.detections.CountSince(ctx, now.Add(-30*24*time.Hour))
		stats.RecentTrends.Last30Days = last30

		return err
	})
	p.Go(func(ctx context.Context) error {
		offenders, err := s.detections.TopOffenders(ctx, since, topOffenderLimit)
		stats.TopOffenders = offenders

		return err
	})

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate abuse statistics: %w", err)
	}

	return stats, nil
}

// GetSystemHealth returns the point-in-time health snapshot. Every rate
// guards against a zero denominator so an idle system reports zeros.
func (s *MonitorService) GetSystemHealth(ctx context.Context) (*types.SystemHealth, error) {
	now := time.Now()
	hourAgo := now.Add(-time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	pending, err := s.detections.CountByStatusCurrent(ctx, enum.AbuseStatusPending)
	if err != nil {
		return nil, err
	}

	investigating, err := s.detections.CountByStatusCurrent(ctx, enum.AbuseStatusInvestigating)
	if err != nil {
		return nil, err
	}

	resolution, err := s.detections.ResolutionStats(ctx, monthAgo)
	if err != nil {
		return nil, err
	}

	votesPerHour, err := s.votes.CountAllSince(ctx, hourAgo)
	if err != nil {
		return nil, err
	}

	rewardsPerHour, err := s.rewards.CountSince(ctx, hourAgo)
	if err != nil {
		return nil, err
	}

	detectionsPerHour, err := s.detections.CountSince(ctx, hourAgo)
	if err != nil {
		return nil, err
	}

	return &types.SystemHealth{
		ActiveAbuseCases:      pending + investigating,
		PendingInvestigations: pending,
		FalsePositiveRate:     percentage(float64(resolution.FalsePositives), float64(resolution.ResolvedCases)),
		AverageResolutionTime: ratio(resolution.TotalResolutionHours, float64(resolution.ResolvedCases)),
		SystemLoad: types.SystemLoad{
			VotesPerHour:       votesPerHour,
			RewardsPerHour:     rewardsPerHour,
			AbuseDetectionRate: percentage(float64(detectionsPerHour), float64(votesPerHour)),
		},
	}, nil
}

// InvestigateAbuse applies an admin action to a detection, enforcing the
// status state machine and writing exactly one audit entry per transition.
func (s *MonitorService) InvestigateAbuse(
	ctx context.Context, detectionID string, investigatorID uint64, req *InvestigationRequest,
) (*types.VoteAbuseDetection, error) {
	action, err := enum.ParseInvestigationAction(req.Action)
	if err != nil {
		return nil, err
	}

	if action == enum.InvestigationActionResolve && req.Resolution == "" {
		return nil, types.ErrResolutionRequired
	}

	detection, err := s.detections.GetByID(ctx, detectionID)
	if err != nil {
		return nil, err
	}

	detection.InvestigatorID = investigatorID
	detection.InvestigationNotes = req.Notes
	detection.Resolution = req.Resolution

	if err := s.detections.Transition(ctx, detection, action.TargetStatus()); err != nil {
		return nil, err
	}

	entry := &types.AuditLog{
		ActorID:    investigatorID,
		Action:     action.String(),
		Resource:   types.AuditResourceInvestigation,
		ResourceID: detection.ID,
		Details: map[string]any{
			"status":     detection.Status.String(),
			"notes":      req.Notes,
			"resolution": req.Resolution,
			"evidence":   req.Evidence,
		},
	}
	if err := s.audits.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to audit investigation: %w", err)
	}

	s.logger.Info("Detection transitioned",
		zap.String("detectionID", detection.ID),
		zap.Uint64("investigatorID", investigatorID),
		zap.String("status", detection.Status.String()))

	return detection, nil
}

// SendDailySummaryReport renders the digest for the lookback window and
// mails it to the admin distribution list.
func (s *MonitorService) SendDailySummaryReport(ctx context.Context, lookback time.Duration) error {
	now := time.Now()
	since := now.Add(-lookback)

	stats, err := s.GetAbuseStatistics(ctx, lookback)
	if err != nil {
		return err
	}

	resolution, err := s.detections.ResolutionStats(ctx, since)
	if err != nil {
		return err
	}

	fpRatio := ratio(float64(resolution.FalsePositives), float64(resolution.ResolvedCases))

	data := &notify.DigestData{
		Date:              now,
		LookbackHours:     int(lookback.Hours()),
		TotalDetections:   stats.TotalDetections,
		BySeverity:        severityRows(stats.BySeverity),
		ByType:            typeRows(stats.ByType),
		TopOffenders:      offenderRows(stats.TopOffenders),
		FalsePositiveRate: fpRatio * 100,
		AvgResolutionTime: ratio(resolution.TotalResolutionHours, float64(resolution.ResolvedCases)),
		Recommendations:   s.recommendations(stats, fpRatio, lookback),
	}

	subject, body, err := notify.RenderDigest(data)
	if err != nil {
		return err
	}

	s.deliver(ctx, subject, body)

	entry := &types.AuditLog{
		Action:     "daily_summary_sent",
		Resource:   types.AuditResourceAbuseMonitoring,
		ResourceID: now.Format("2006-01-02"),
		Details: map[string]any{
			"totalDetections": stats.TotalDetections,
		},
	}
	if err := s.audits.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to audit daily summary: %w", err)
	}

	return nil
}

// recommendations derives the conditional advice strings for the digest.
func (s *MonitorService) recommendations(
	stats *types.AbuseStatistics, fpRatio float64, lookback time.Duration,
) []string {
	var recs []string

	if fpRatio > s.abuseCfg.FalsePositiveRecommendationRatio {
		recs = append(recs, fmt.Sprintf(
			"High false positive rate (%.0f%%): consider relaxing detection thresholds.", fpRatio*100))
	}

	detectionRate := ratio(float64(stats.TotalDetections), lookback.Hours())
	if detectionRate >= s.abuseCfg.SpikeDetectionRate {
		recs = append(recs, fmt.Sprintf(
			"Detection rate of %.1f per hour exceeds the spike threshold: review recent traffic.", detectionRate))
	}

	if stats.RecentTrends.Last7Days > 0 &&
		stats.TotalDetections*7 > stats.RecentTrends.Last7Days*2 {
		recs = append(recs, "Detections are trending upward against the 7-day baseline.")
	}

	return recs
}

func severityRows(bySeverity map[enum.AbuseSeverity]int) []notify.LabelCount {
	rows := make([]notify.LabelCount, 0, len(bySeverity))
	for _, severity := range enum.AbuseSeverities() {
		if count, ok := bySeverity[severity]; ok {
			rows = append(rows, notify.LabelCount{Label: severity.String(), Count: count})
		}
	}

	return rows
}

func typeRows(byType map[enum.AbuseType]int) []notify.LabelCount {
	rows := make([]notify.LabelCount, 0, len(byType))
	for _, abuseType := range enum.AbuseTypes() {
		if count, ok := byType[abuseType]; ok {
			rows = append(rows, notify.LabelCount{Label: abuseType.String(), Count: count})
		}
	}

	return rows
}

func offenderRows(offenders []types.TopOffender) []notify.OffenderRow {
	rows := make([]notify.OffenderRow, 0, len(offenders))
	for _, o := range offenders {
		rows = append(rows, notify.OffenderRow{Name: o.Name, Email: o.Email, Detections: o.Detections})
	}

	return rows
}

// ratio divides with a zero-denominator guard.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}

	return num / den
}

// percentage is ratio expressed as a percent.
func percentage(num, den float64) float64 {
	return ratio(num, den) * 100
}
