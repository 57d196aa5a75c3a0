package abuse

import (
	"context"
	"fmt"
	"time"

	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"go.uber.org/zap"
)

// Check is one named heuristic in the chain. A nil finding means the vote
// passed this check. A returned error aborts the whole chain; checks never
// silently skip a failed database read.
type Check struct {
	Name string
	Run  func(ctx context.Context, vote *Context) (*Finding, error)
}

// Chain evaluates the checks in priority order.
type Chain struct {
	cfg      *config.Abuse
	counters CounterSource
	logger   *zap.Logger
	checks   []Check
}

// NewChain builds the chain in its fixed priority order.
func NewChain(cfg *config.Abuse, counters CounterSource, logger *zap.Logger) *Chain {
	c := &Chain{
		cfg:      cfg,
		counters: counters,
		logger:   logger.Named("abuse_chain"),
	}

	c.checks = []Check{
		{Name: "self_vote", Run: c.checkSelfVote},
		{Name: "account_age", Run: c.checkAccountAge},
		{Name: "hourly_rate", Run: c.checkHourlyRate},
		{Name: "daily_rate", Run: c.checkDailyRate},
		{Name: "ip_volume", Run: c.checkIPVolume},
		{Name: "ip_fanout", Run: c.checkIPFanout},
		{Name: "temporal", Run: c.checkTemporal},
		{Name: "same_author", Run: c.checkSameAuthor},
		{Name: "device", Run: c.checkDevice},
	}

	return c
}

// Evaluate runs the chain and returns the first finding, or nil when the
// vote passes every check.
func (c *Chain) Evaluate(ctx context.Context, vote *Context) (*Finding, error) {
	for _, check := range c.checks {
		finding, err := check.Run(ctx, vote)
		if err != nil {
			return nil, fmt.Errorf("abuse check %s failed: %w", check.Name, err)
		}

		if finding != nil {
			c.logger.Info("Abuse check tripped",
				zap.String("check", check.Name),
				zap.Uint64("voterID", vote.VoterID),
				zap.Uint64("promptID", vote.PromptID),
				zap.String("abuseType", finding.Type.String()),
				zap.String("severity", finding.Severity.String()))

			return finding, nil
		}
	}

	return nil, nil
}

func (c *Chain) checkSelfVote(_ context.Context, vote *Context) (*Finding, error) {
	if vote.VoterID != vote.AuthorID {
		return nil, nil
	}

	return &Finding{
		Type:      enum.AbuseTypeSelfVote,
		Severity:  enum.AbuseSeverityLow,
		Reason:    "self-voting is not eligible for rewards",
		RiskScore: 10,
		Evidence: types.Evidence{
			SelfVote: &types.SelfVoteEvidence{PromptID: vote.PromptID},
		},
	}, nil
}

func (c *Chain) checkAccountAge(_ context.Context, vote *Context) (*Finding, error) {
	minAge := time.Duration(c.cfg.MinAccountAgeDays) * 24 * time.Hour
	age := vote.Now.Sub(vote.VoterCreatedAt)

	if age >= minAge {
		return nil, nil
	}

	return &Finding{
		Type:      enum.AbuseTypeAccountAge,
		Severity:  enum.AbuseSeverityMedium,
		Reason:    fmt.Sprintf("account younger than %d days", c.cfg.MinAccountAgeDays),
		RiskScore: 20,
		Evidence: types.Evidence{
			AccountAge: &types.AccountAgeEvidence{
				AccountAgeHours: age.Hours(),
				MinAgeHours:     minAge.Hours(),
			},
		},
	}, nil
}

func (c *Chain) checkHourlyRate(ctx context.Context, vote *Context) (*Finding, error) {
	count, err := c.counters.CountByUserSince(ctx, vote.VoterID, vote.Now.Add(-time.Hour))
	if err != nil {
		return nil, err
	}

	if count <= c.cfg.MaxVotesPerHour {
		return nil, nil
	}

	return rateFinding(count, 3600, c.cfg.MaxVotesPerHour, "hourly vote limit exceeded"), nil
}

func (c *Chain) checkDailyRate(ctx context.Context, vote *Context) (*Finding, error) {
	count, err := c.counters.CountByUserSince(ctx, vote.VoterID, vote.Now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	if count <= c.cfg.MaxVotesPerDay {
		return nil, nil
	}

	return rateFinding(count, 86400, c.cfg.MaxVotesPerDay, "daily vote limit exceeded"), nil
}

func rateFinding(count, windowSeconds, threshold int, reason string) *Finding {
	return &Finding{
		Type:      enum.AbuseTypeExcessiveRate,
		Severity:  enum.AbuseSeverityHigh,
		Reason:    reason,
		RiskScore: 40,
		Evidence: types.Evidence{
			RateLimit: &types.RateLimitEvidence{
				Count:         count,
				WindowSeconds: windowSeconds,
				Threshold:     threshold,
			},
		},
	}
}

func (c *Chain) checkIPVolume(ctx context.Context, vote *Context) (*Finding, error) {
	count, err := c.counters.CountByIPSince(ctx, vote.IPAddress, vote.Now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	if count <= c.cfg.MaxVotesPerIPPerDay {
		return nil, nil
	}

	return &Finding{
		Type:      enum.AbuseTypeIPClustering,
		Severity:  enum.AbuseSeverityHigh,
		Reason:    "excessive vote volume from IP address",
		RiskScore: 40,
		Evidence: types.Evidence{
			IPCluster: &types.IPClusterEvidence{
				IPAddress: vote.IPAddress,
				Count:     count,
				Threshold: c.cfg.MaxVotesPerIPPerDay,
			},
		},
	}, nil
}

func (c *Chain) checkIPFanout(ctx context.Context, vote *Context) (*Finding, error) {
	users, err := c.counters.DistinctUsersByIP(ctx, vote.IPAddress)
	if err != nil {
		return nil, err
	}

	if users <= c.cfg.MaxUsersPerIP {
		return nil, nil
	}

	return &Finding{
		Type:      enum.AbuseTypeCoordinatedVoting,
		Severity:  enum.AbuseSeverityHigh,
		Reason:    "coordinated voting from shared IP address",
		RiskScore: 50,
		Evidence: types.Evidence{
			Coordinated: &types.CoordinatedEvidence{
				IPAddress:     vote.IPAddress,
				DistinctUsers: users,
				Threshold:     c.cfg.MaxUsersPerIP,
			},
		},
	}, nil
}

func (c *Chain) checkTemporal(ctx context.Context, vote *Context) (*Finding, error) {
	times, err := c.counters.RecentVoteTimes(ctx, vote.VoterID, c.cfg.RapidVoteCount)
	if err != nil {
		return nil, err
	}

	if len(times) < c.cfg.RapidVoteCount {
		return nil, nil
	}

	// Times arrive newest first; every consecutive gap must be under the
	// minimum interval for the pattern to trip.
	minInterval := time.Duration(c.cfg.MinVoteIntervalSeconds) * time.Second
	intervals := make([]float64, 0, len(times)-1)

	for i := 0; i < len(times)-1; i++ {
		gap := times[i].Sub(times[i+1])
		if gap >= minInterval {
			return nil, nil
		}

		intervals = append(intervals, gap.Seconds())
	}

	return &Finding{
		Type:      enum.AbuseTypeRapidVoting,
		Severity:  enum.AbuseSeverityMedium,
		Reason:    "rapid bot-like voting pattern",
		RiskScore: 30,
		Evidence: types.Evidence{
			Temporal: &types.TemporalEvidence{
				IntervalsSeconds:   intervals,
				MinIntervalSeconds: minInterval.Seconds(),
			},
		},
	}, nil
}

func (c *Chain) checkSameAuthor(ctx context.Context, vote *Context) (*Finding, error) {
	count, err := c.counters.CountByVoterForAuthor(ctx, vote.VoterID, vote.AuthorID)
	if err != nil {
		return nil, err
	}

	if count <= c.cfg.MaxVotesPerAuthor {
		return nil, nil
	}

	return &Finding{
		Type:      enum.AbuseTypeVoteManipulation,
		Severity:  enum.AbuseSeverityHigh,
		Reason:    "repeated voting on a single author's prompts",
		RiskScore: 40,
		Evidence: types.Evidence{
			AuthorAffinity: &types.AuthorAffinityEvidence{
				AuthorID:  vote.AuthorID,
				Count:     count,
				Threshold: c.cfg.MaxVotesPerAuthor,
			},
		},
	}, nil
}

func (c *Chain) checkDevice(ctx context.Context, vote *Context) (*Finding, error) {
	if vote.UserAgent == "" {
		return nil, nil
	}

	users, err := c.counters.DistinctUsersByAgent(ctx, vote.UserAgent)
	if err != nil {
		return nil, err
	}

	if users <= c.cfg.MaxUsersPerDevice {
		return nil, nil
	}

	return &Finding{
		Type:      enum.AbuseTypeDeviceFingerprint,
		Severity:  enum.AbuseSeverityMedium,
		Reason:    "device signature shared by too many users",
		RiskScore: 30,
		Evidence: types.Evidence{
			Device: &types.DeviceEvidence{
				UserAgent:     vote.UserAgent,
				DistinctUsers: users,
				Threshold:     c.cfg.MaxUsersPerDevice,
			},
		},
	}, nil
}
