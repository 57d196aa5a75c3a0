package abuse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/promptcraft/voteguard/internal/abuse"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCounters serves canned counter values keyed on the query window.
type fakeCounters struct {
	now         time.Time
	hourlyVotes int
	dailyVotes  int
	ipVotes     int
	ipUsers     int
	agentUsers  int
	authorVotes int
	voteTimes   []time.Time
	err         error
}

func (f *fakeCounters) CountByUserSince(_ context.Context, _ uint64, since time.Time) (int, error) {
	if f.err != nil {
		return 0, f.err
	}

	// The hourly check queries a one-hour window, the daily check a 24h one.
	if f.now.Sub(since) <= 2*time.Hour {
		return f.hourlyVotes, nil
	}

	return f.dailyVotes, nil
}

func (f *fakeCounters) CountByIPSince(_ context.Context, _ string, _ time.Time) (int, error) {
	return f.ipVotes, f.err
}

func (f *fakeCounters) DistinctUsersByIP(_ context.Context, _ string) (int, error) {
	return f.ipUsers, f.err
}

func (f *fakeCounters) DistinctUsersByAgent(_ context.Context, _ string) (int, error) {
	return f.agentUsers, f.err
}

func (f *fakeCounters) CountByVoterForAuthor(_ context.Context, _, _ uint64) (int, error) {
	return f.authorVotes, f.err
}

func (f *fakeCounters) RecentVoteTimes(_ context.Context, _ uint64, _ int) ([]time.Time, error) {
	return f.voteTimes, f.err
}

func testConfig() *config.Abuse {
	return &config.Abuse{
		MinAccountAgeDays:      7,
		MaxVotesPerHour:        20,
		MaxVotesPerDay:         100,
		MaxVotesPerIPPerDay:    50,
		MaxUsersPerIP:          5,
		RapidVoteCount:         5,
		MinVoteIntervalSeconds: 2,
		MaxVotesPerAuthor:      10,
		MaxUsersPerDevice:      3,
	}
}

func cleanVote(now time.Time) *abuse.Context {
	return &abuse.Context{
		VoteID:         1,
		VoterID:        1,
		AuthorID:       2,
		PromptID:       9,
		Value:          1,
		IPAddress:      "203.0.113.10",
		UserAgent:      "promptcraft-web/1.0",
		VoterCreatedAt: now.AddDate(0, 0, -30),
		Now:            now,
	}
}

// rapidTimes returns count timestamps, newest first, spaced by gap.
func rapidTimes(now time.Time, count int, gap time.Duration) []time.Time {
	times := make([]time.Time, count)
	for i := range times {
		times[i] = now.Add(-time.Duration(i) * gap)
	}

	return times
}

func TestChainPassesCleanVote(t *testing.T) {
	t.Parallel()

	now := time.Now()
	counters := &fakeCounters{now: now, hourlyVotes: 3, dailyVotes: 12, ipVotes: 4, ipUsers: 1, agentUsers: 1, authorVotes: 2}
	chain := abuse.NewChain(testConfig(), counters, zap.NewNop())

	finding, err := chain.Evaluate(context.Background(), cleanVote(now))
	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestChainTripConditions(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name         string
		counters     *fakeCounters
		mutate       func(vote *abuse.Context)
		wantType     enum.AbuseType
		wantSeverity enum.AbuseSeverity
	}{
		{
			name:         "self vote",
			counters:     &fakeCounters{now: now},
			mutate:       func(vote *abuse.Context) { vote.AuthorID = vote.VoterID },
			wantType:     enum.AbuseTypeSelfVote,
			wantSeverity: enum.AbuseSeverityLow,
		},
		{
			name:         "young account",
			counters:     &fakeCounters{now: now},
			mutate:       func(vote *abuse.Context) { vote.VoterCreatedAt = now.Add(-24 * time.Hour) },
			wantType:     enum.AbuseTypeAccountAge,
			wantSeverity: enum.AbuseSeverityMedium,
		},
		{
			name:         "hourly rate exceeded",
			counters:     &fakeCounters{now: now, hourlyVotes: 21, dailyVotes: 21},
			wantType:     enum.AbuseTypeExcessiveRate,
			wantSeverity: enum.AbuseSeverityHigh,
		},
		{
			name:         "daily rate exceeded",
			counters:     &fakeCounters{now: now, hourlyVotes: 5, dailyVotes: 101},
			wantType:     enum.AbuseTypeExcessiveRate,
			wantSeverity: enum.AbuseSeverityHigh,
		},
		{
			name:         "ip vote volume",
			counters:     &fakeCounters{now: now, ipVotes: 51},
			wantType:     enum.AbuseTypeIPClustering,
			wantSeverity: enum.AbuseSeverityHigh,
		},
		{
			name:         "ip user fanout",
			counters:     &fakeCounters{now: now, ipUsers: 6},
			wantType:     enum.AbuseTypeCoordinatedVoting,
			wantSeverity: enum.AbuseSeverityHigh,
		},
		{
			name:         "rapid voting",
			counters:     &fakeCounters{now: now, voteTimes: rapidTimes(now, 5, time.Second)},
			wantType:     enum.AbuseTypeRapidVoting,
			wantSeverity: enum.AbuseSeverityMedium,
		},
		{
			name:         "same author targeting",
			counters:     &fakeCounters{now: now, authorVotes: 11},
			wantType:     enum.AbuseTypeVoteManipulation,
			wantSeverity: enum.AbuseSeverityHigh,
		},
		{
			name:         "shared device signature",
			counters:     &fakeCounters{now: now, agentUsers: 4},
			wantType:     enum.AbuseTypeDeviceFingerprint,
			wantSeverity: enum.AbuseSeverityMedium,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			vote := cleanVote(now)
			if tt.mutate != nil {
				tt.mutate(vote)
			}

			chain := abuse.NewChain(testConfig(), tt.counters, zap.NewNop())

			finding, err := chain.Evaluate(context.Background(), vote)
			require.NoError(t, err)
			require.NotNil(t, finding)
			assert.Equal(t, tt.wantType, finding.Type)
			assert.Equal(t, tt.wantSeverity, finding.Severity)
			assert.NotEmpty(t, finding.Reason)
			assert.Positive(t, finding.RiskScore)
		})
	}
}

func TestChainShortCircuitsInPriorityOrder(t *testing.T) {
	t.Parallel()

	now := time.Now()

	// Everything trips at once; the self-vote check must win.
	counters := &fakeCounters{
		now:         now,
		hourlyVotes: 100,
		dailyVotes:  500,
		ipVotes:     500,
		ipUsers:     50,
		agentUsers:  50,
		authorVotes: 100,
		voteTimes:   rapidTimes(now, 5, time.Second),
	}

	vote := cleanVote(now)
	vote.AuthorID = vote.VoterID
	vote.VoterCreatedAt = now.Add(-time.Hour)

	chain := abuse.NewChain(testConfig(), counters, zap.NewNop())

	finding, err := chain.Evaluate(context.Background(), vote)
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, enum.AbuseTypeSelfVote, finding.Type)

	// With self-vote out of the way, account age wins next.
	vote.AuthorID = 2

	finding, err = chain.Evaluate(context.Background(), vote)
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, enum.AbuseTypeAccountAge, finding.Type)
}

func TestChainTemporalRequiresAllGapsBelowInterval(t *testing.T) {
	t.Parallel()

	now := time.Now()

	// One wide gap in the middle breaks the pattern.
	times := rapidTimes(now, 5, time.Second)
	times[3] = times[2].Add(-10 * time.Second)
	times[4] = times[3].Add(-time.Second)

	counters := &fakeCounters{now: now, voteTimes: times}
	chain := abuse.NewChain(testConfig(), counters, zap.NewNop())

	finding, err := chain.Evaluate(context.Background(), cleanVote(now))
	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestChainTemporalSkipsShortHistory(t *testing.T) {
	t.Parallel()

	now := time.Now()
	counters := &fakeCounters{now: now, voteTimes: rapidTimes(now, 3, time.Second)}
	chain := abuse.NewChain(testConfig(), counters, zap.NewNop())

	finding, err := chain.Evaluate(context.Background(), cleanVote(now))
	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestChainDeviceCheckSkipsEmptyUserAgent(t *testing.T) {
	t.Parallel()

	now := time.Now()
	counters := &fakeCounters{now: now, agentUsers: 50}
	chain := abuse.NewChain(testConfig(), counters, zap.NewNop())

	vote := cleanVote(now)
	vote.UserAgent = ""

	finding, err := chain.Evaluate(context.Background(), vote)
	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestChainAbortsOnCounterError(t *testing.T) {
	t.Parallel()

	now := time.Now()
	counterErr := errors.New("connection refused")
	counters := &fakeCounters{now: now, err: counterErr}
	chain := abuse.NewChain(testConfig(), counters, zap.NewNop())

	finding, err := chain.Evaluate(context.Background(), cleanVote(now))
	require.ErrorIs(t, err, counterErr)
	assert.Nil(t, finding)
}
