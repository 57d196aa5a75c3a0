package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/promptcraft/voteguard/internal/abuse"
	"github.com/promptcraft/voteguard/internal/database/service"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDetectionStore struct {
	byID        map[string]*types.VoteAbuseDetection
	totalCount  int
	ipCount     int
	typeCount   int
	byStatusNow map[enum.AbuseStatus]int
	byType      map[enum.AbuseType]int
	bySeverity  map[enum.AbuseSeverity]int
	byStatus    map[enum.AbuseStatus]int
	offenders   []types.TopOffender
	resolution  types.ResolutionStats
}

func newFakeDetectionStore() *fakeDetectionStore {
	return &fakeDetectionStore{
		byID:        make(map[string]*types.VoteAbuseDetection),
		byStatusNow: make(map[enum.AbuseStatus]int),
		byType:      make(map[enum.AbuseType]int),
		bySeverity:  make(map[enum.AbuseSeverity]int),
		byStatus:    make(map[enum.AbuseStatus]int),
	}
}

func (f *fakeDetectionStore) GetByID(_ context.Context, id string) (*types.VoteAbuseDetection, error) {
	detection, ok := f.byID[id]
	if !ok {
		return nil, types.ErrDetectionNotFound
	}

	return detection, nil
}

func (f *fakeDetectionStore) List(
	_ context.Context, _ types.DetectionFilter, _, _ int,
) ([]*types.VoteAbuseDetection, int, error) {
	return nil, 0, nil
}

func (f *fakeDetectionStore) Transition(
	_ context.Context, detection *types.VoteAbuseDetection, next enum.AbuseStatus,
) error {
	if !detection.Status.CanTransitionTo(next) {
		return types.ErrInvalidTransition
	}

	detection.Status = next

	return nil
}

func (f *fakeDetectionStore) CountSince(_ context.Context, _ time.Time) (int, error) {
	return f.totalCount, nil
}

func (f *fakeDetectionStore) CountByIPSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return f.ipCount, nil
}

func (f *fakeDetectionStore) CountByTypeSince(_ context.Context, _ enum.AbuseType, _ time.Time) (int, error) {
	return f.typeCount, nil
}

func (f *fakeDetectionStore) CountByStatusCurrent(_ context.Context, status enum.AbuseStatus) (int, error) {
	return f.byStatusNow[status], nil
}

func (f *fakeDetectionStore) CountByType(_ context.Context, _ time.Time) (map[enum.AbuseType]int, error) {
	return f.byType, nil
}

func (f *fakeDetectionStore) CountBySeverity(_ context.Context, _ time.Time) (map[enum.AbuseSeverity]int, error) {
	return f.bySeverity, nil
}

func (f *fakeDetectionStore) CountByStatus(_ context.Context, _ time.Time) (map[enum.AbuseStatus]int, error) {
	return f.byStatus, nil
}

func (f *fakeDetectionStore) TopOffenders(_ context.Context, _ time.Time, _ int) ([]types.TopOffender, error) {
	return f.offenders, nil
}

func (f *fakeDetectionStore) ResolutionStats(_ context.Context, _ time.Time) (*types.ResolutionStats, error) {
	resolution := f.resolution
	return &resolution, nil
}

type fakeVoteVolume struct{ count int }

func (f *fakeVoteVolume) CountAllSince(_ context.Context, _ time.Time) (int, error) {
	return f.count, nil
}

type fakeRewardCounter struct{ count int }

func (f *fakeRewardCounter) CountSince(_ context.Context, _ time.Time) (int, error) {
	return f.count, nil
}

type patternUpsert struct {
	userID    uint64
	pattern   string
	riskDelta float64
}

type fakePatterns struct {
	upserts []patternUpsert
}

func (f *fakePatterns) Upsert(_ context.Context, userID uint64, pattern string, riskDelta float64) error {
	f.upserts = append(f.upserts, patternUpsert{userID, pattern, riskDelta})
	return nil
}

type fakeAudits struct {
	entries []*types.AuditLog
}

func (f *fakeAudits) Insert(_ context.Context, entry *types.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

type monitorFixture struct {
	svc        *service.MonitorService
	detections *fakeDetectionStore
	votes      *fakeVoteVolume
	rewards    *fakeRewardCounter
	patterns   *fakePatterns
	audits     *fakeAudits
	mailer     *fakeMailer
}

func newMonitorFixture() *monitorFixture {
	detections := newFakeDetectionStore()
	votes := &fakeVoteVolume{}
	rewards := &fakeRewardCounter{}
	patterns := &fakePatterns{}
	audits := &fakeAudits{}
	mailer := &fakeMailer{}

	abuseCfg := &config.Abuse{
		CorrelationWindowMinutes:         60,
		CoordinatedIPDetections:          5,
		SystematicTypeDetections:         10,
		OverloadVoteVolume:               1000,
		OverloadAbuseRatio:               0.2,
		SpikeDetectionRate:               1000,
		FalsePositiveRecommendationRatio: 0.3,
	}
	notifyCfg := &config.Notifications{
		AdminEmail:    "admin@promptcraft.dev",
		SecurityEmail: "security@promptcraft.dev",
	}

	return &monitorFixture{
		svc: service.NewMonitor(
			detections, votes, rewards, patterns, audits, mailer, abuseCfg, notifyCfg, zap.NewNop(),
		),
		detections: detections,
		votes:      votes,
		rewards:    rewards,
		patterns:   patterns,
		audits:     audits,
		mailer:     mailer,
	}
}

func alertWithSeverity(severity enum.AbuseSeverity) *service.Alert {
	return &service.Alert{
		DetectionID: "det-1",
		UserID:      1,
		PromptID:    7,
		IPAddress:   "203.0.113.10",
		Finding: &abuse.Finding{
			Type:      enum.AbuseTypeExcessiveRate,
			Severity:  severity,
			Reason:    "hourly vote limit exceeded",
			RiskScore: 40,
		},
		DetectedAt: time.Now(),
	}
}

func TestProcessAbuseAlertLowSeveritySendsNoMail(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()

	err := f.svc.ProcessAbuseAlert(context.Background(), alertWithSeverity(enum.AbuseSeverityLow))
	require.NoError(t, err)

	assert.Empty(t, f.mailer.sent)
	require.Len(t, f.audits.entries, 1)
	assert.Equal(t, types.AuditResourceAbuseMonitoring, f.audits.entries[0].Resource)

	require.Len(t, f.patterns.upserts, 1)
	assert.Equal(t, uint64(1), f.patterns.upserts[0].userID)
	assert.InEpsilon(t, 40.0, f.patterns.upserts[0].riskDelta, 0.001)
}

func TestProcessAbuseAlertHighSeverityMailsEveryRecipient(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()

	err := f.svc.ProcessAbuseAlert(context.Background(), alertWithSeverity(enum.AbuseSeverityHigh))
	require.NoError(t, err)

	// One message per address on the distribution list, nothing more.
	require.Len(t, f.mailer.sent, 2)
	assert.Equal(t, "admin@promptcraft.dev", f.mailer.sent[0].to)
	assert.Equal(t, "security@promptcraft.dev", f.mailer.sent[1].to)
	assert.Equal(t, f.mailer.sent[0].subject, f.mailer.sent[1].subject)
}

func TestProcessAbuseAlertCoordinatedIPEscalation(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()
	f.detections.ipCount = 5

	err := f.svc.ProcessAbuseAlert(context.Background(), alertWithSeverity(enum.AbuseSeverityLow))
	require.NoError(t, err)

	// No severity mail, only the coordinated-attack escalation.
	require.Len(t, f.mailer.sent, 2)
	assert.Contains(t, f.mailer.sent[0].subject, "Coordinated attack")
}

func TestProcessAbuseAlertOverloadEscalation(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()
	f.votes.count = 1000
	f.detections.totalCount = 250 // 25% abuse ratio

	err := f.svc.ProcessAbuseAlert(context.Background(), alertWithSeverity(enum.AbuseSeverityLow))
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 2)
	assert.Contains(t, f.mailer.sent[0].subject, "overload")
}

func TestGetSystemHealthIdleSystemReportsZeros(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()

	health, err := f.svc.GetSystemHealth(context.Background())
	require.NoError(t, err)

	assert.Zero(t, health.ActiveAbuseCases)
	assert.Zero(t, health.PendingInvestigations)
	assert.Zero(t, health.FalsePositiveRate)
	assert.Zero(t, health.AverageResolutionTime)
	assert.Zero(t, health.SystemLoad.AbuseDetectionRate)
}

func TestGetSystemHealthComputesRates(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()
	f.detections.byStatusNow[enum.AbuseStatusPending] = 3
	f.detections.byStatusNow[enum.AbuseStatusInvestigating] = 2
	f.detections.resolution = types.ResolutionStats{
		ResolvedCases:        10,
		FalsePositives:       2,
		TotalResolutionHours: 50,
	}
	f.votes.count = 200
	f.rewards.count = 150
	f.detections.totalCount = 10

	health, err := f.svc.GetSystemHealth(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, health.ActiveAbuseCases)
	assert.Equal(t, 3, health.PendingInvestigations)
	assert.InEpsilon(t, 20.0, health.FalsePositiveRate, 0.001)
	assert.InEpsilon(t, 5.0, health.AverageResolutionTime, 0.001)
	assert.Equal(t, 200, health.SystemLoad.VotesPerHour)
	assert.Equal(t, 150, health.SystemLoad.RewardsPerHour)
	assert.InEpsilon(t, 5.0, health.SystemLoad.AbuseDetectionRate, 0.001)
}

func TestGetAbuseStatisticsAggregates(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()
	f.detections.totalCount = 12
	f.detections.byType[enum.AbuseTypeSelfVote] = 7
	f.detections.bySeverity[enum.AbuseSeverityLow] = 7
	f.detections.byStatus[enum.AbuseStatusPending] = 12
	f.detections.offenders = []types.TopOffender{{UserID: 1, Name: "mallory", Detections: 7}}

	stats, err := f.svc.GetAbuseStatistics(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, 12, stats.TotalDetections)
	assert.Equal(t, 7, stats.ByType[enum.AbuseTypeSelfVote])
	assert.Equal(t, 7, stats.BySeverity[enum.AbuseSeverityLow])
	assert.Equal(t, 12, stats.ByStatus[enum.AbuseStatusPending])
	require.Len(t, stats.TopOffenders, 1)
	assert.Equal(t, "mallory", stats.TopOffenders[0].Name)
}

func TestInvestigateAbuseResolveRequiresResolution(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()

	_, err := f.svc.InvestigateAbuse(context.Background(), "det-1", 42, &service.InvestigationRequest{
		Action: "resolve",
	})
	require.ErrorIs(t, err, types.ErrResolutionRequired)
}

func TestInvestigateAbuseResolvesDetection(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()
	f.detections.byID["det-1"] = &types.VoteAbuseDetection{
		ID:     "det-1",
		Status: enum.AbuseStatusPending,
	}

	detection, err := f.svc.InvestigateAbuse(context.Background(), "det-1", 42, &service.InvestigationRequest{
		Action:     "resolve",
		Notes:      "checked the vote history",
		Resolution: "rate limit was organic traffic",
	})
	require.NoError(t, err)

	assert.Equal(t, enum.AbuseStatusResolved, detection.Status)
	assert.Equal(t, uint64(42), detection.InvestigatorID)

	// Exactly one audit entry per transition.
	require.Len(t, f.audits.entries, 1)
	entry := f.audits.entries[0]
	assert.Equal(t, types.AuditResourceInvestigation, entry.Resource)
	assert.Equal(t, "det-1", entry.ResourceID)
	assert.Equal(t, uint64(42), entry.ActorID)
}

func TestInvestigateAbuseRejectsTerminalTransition(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()
	f.detections.byID["det-1"] = &types.VoteAbuseDetection{
		ID:     "det-1",
		Status: enum.AbuseStatusResolved,
	}

	_, err := f.svc.InvestigateAbuse(context.Background(), "det-1", 42, &service.InvestigationRequest{
		Action: "start_investigation",
	})
	require.ErrorIs(t, err, types.ErrInvalidTransition)
	assert.Empty(t, f.audits.entries)
}

func TestInvestigateAbuseUnknownAction(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()

	_, err := f.svc.InvestigateAbuse(context.Background(), "det-1", 42, &service.InvestigationRequest{
		Action: "escalate",
	})
	require.ErrorIs(t, err, enum.ErrUnknownEnumValue)
}

func TestInvestigateAbuseUnknownDetection(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()

	_, err := f.svc.InvestigateAbuse(context.Background(), "missing", 42, &service.InvestigationRequest{
		Action: "confirm",
	})
	require.ErrorIs(t, err, types.ErrDetectionNotFound)
}

func TestSendDailySummaryReport(t *testing.T) {
	t.Parallel()

	f := newMonitorFixture()
	f.detections.totalCount = 4
	f.detections.bySeverity[enum.AbuseSeverityHigh] = 4
	f.detections.resolution = types.ResolutionStats{
		ResolvedCases:        5,
		FalsePositives:       3, // 60% false positives trips the recommendation
		TotalResolutionHours: 10,
	}

	err := f.svc.SendDailySummaryReport(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	require.Len(t, f.mailer.sent, 2)
	assert.Contains(t, f.mailer.sent[0].body, "false positive")

	require.NotEmpty(t, f.audits.entries)
	assert.Equal(t, "daily_summary_sent", f.audits.entries[len(f.audits.entries)-1].Action)
}
