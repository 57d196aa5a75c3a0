package service_test

import (
	"context"
	"errors"
	"fmt"
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

// quietCounters reports no abusive activity so only the per-vote checks trip.
type quietCounters struct{}

func (quietCounters) CountByUserSince(context.Context, uint64, time.Time) (int, error) {
	return 0, nil
}
func (quietCounters) CountByIPSince(context.Context, string, time.Time) (int, error) {
	return 0, nil
}
func (quietCounters) DistinctUsersByIP(context.Context, string) (int, error)    { return 1, nil }
func (quietCounters) DistinctUsersByAgent(context.Context, string) (int, error) { return 1, nil }
func (quietCounters) CountByVoterForAuthor(context.Context, uint64, uint64) (int, error) {
	return 0, nil
}
func (quietCounters) RecentVoteTimes(context.Context, uint64, int) ([]time.Time, error) {
	return nil, nil
}

type fakeUsers struct {
	users map[uint64]*types.User
	err   error
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*types.User, error) {
	if f.err != nil {
		return nil, f.err
	}

	user, ok := f.users[id]
	if !ok {
		return nil, types.ErrUserNotFound
	}

	return user, nil
}

type fakeRewards struct {
	byVote   map[uint64]*types.VoteReward
	granted  []*types.VoteReward
	grantErr error
}

func (f *fakeRewards) GetByVoteID(_ context.Context, voteID uint64) (*types.VoteReward, error) {
	reward, ok := f.byVote[voteID]
	if !ok {
		return nil, types.ErrRewardNotFound
	}

	return reward, nil
}

func (f *fakeRewards) Grant(_ context.Context, reward *types.VoteReward) error {
	if f.grantErr != nil {
		return f.grantErr
	}

	reward.ID = uint64(len(f.granted) + 1)
	f.granted = append(f.granted, reward)

	return nil
}

type fakeCredits struct {
	balances map[uint64]int
	ledger   []*types.CreditTransaction
}

func (f *fakeCredits) Spend(_ context.Context, tx *types.CreditTransaction) error {
	cost := -tx.Amount
	if f.balances[tx.UserID] < cost {
		return types.ErrInsufficientCredits
	}

	f.balances[tx.UserID] -= cost
	f.ledger = append(f.ledger, tx)

	return nil
}

type fakeDetections struct {
	created []*types.VoteAbuseDetection
}

func (f *fakeDetections) Create(_ context.Context, detection *types.VoteAbuseDetection) error {
	detection.ID = fmt.Sprintf("det-%d", len(f.created)+1)
	detection.Status = enum.AbuseStatusPending
	f.created = append(f.created, detection)

	return nil
}

type fakeSink struct {
	alerts []*service.Alert
	err    error
}

func (f *fakeSink) ProcessAbuseAlert(_ context.Context, alert *service.Alert) error {
	f.alerts = append(f.alerts, alert)
	return f.err
}

type rewardFixture struct {
	svc        *service.RewardService
	users      *fakeUsers
	rewards    *fakeRewards
	credits    *fakeCredits
	detections *fakeDetections
	sink       *fakeSink
}

func newRewardFixture() *rewardFixture {
	users := &fakeUsers{users: map[uint64]*types.User{
		1: {ID: 1, PlanType: enum.PlanTypeFree, CreatedAt: time.Now().AddDate(0, 0, -60)},
		2: {ID: 2, PlanType: enum.PlanTypePro, CreatedAt: time.Now().AddDate(0, 0, -60)},
		3: {ID: 3, PlanType: enum.PlanTypeElite, CreatedAt: time.Now().AddDate(0, 0, -60)},
		4: {ID: 4, PlanType: enum.PlanTypeFree, CreatedAt: time.Now().Add(-24 * time.Hour)},
	}}
	rewards := &fakeRewards{byVote: make(map[uint64]*types.VoteReward)}
	credits := &fakeCredits{balances: map[uint64]int{1: 10, 2: 0}}
	detections := &fakeDetections{}
	sink := &fakeSink{}

	abuseCfg := &config.Abuse{
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
	rewardCfg := &config.Rewards{PlanCredits: map[string]int{
		"FREE": 1, "PRO": 1, "ELITE": 2,
	}}

	chain := abuse.NewChain(abuseCfg, quietCounters{}, zap.NewNop())

	return &rewardFixture{
		svc:        service.NewReward(chain, users, rewards, credits, detections, sink, rewardCfg, zap.NewNop()),
		users:      users,
		rewards:    rewards,
		credits:    credits,
		detections: detections,
		sink:       sink,
	}
}

func upvoteRequest(voteID, voterID, authorID uint64) *service.RewardRequest {
	return &service.RewardRequest{
		VoteID:    voteID,
		VoterID:   voterID,
		AuthorID:  authorID,
		PromptID:  7,
		Value:     types.VoteValueUp,
		IPAddress: "203.0.113.10",
		UserAgent: "promptcraft-web/1.0",
	}
}

func TestProcessVoteRewardGrantsCredit(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()

	outcome, err := f.svc.ProcessVoteReward(context.Background(), upvoteRequest(10, 1, 2))
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, 1, outcome.CreditsAwarded)
	assert.False(t, outcome.AbuseDetected)

	require.Len(t, f.rewards.granted, 1)
	reward := f.rewards.granted[0]
	assert.Equal(t, uint64(10), reward.VoteID)
	assert.Equal(t, uint64(2), reward.UserID) // author receives the credit
	assert.Equal(t, uint64(1), reward.VoterID)
	assert.Equal(t, 1, reward.Amount)
}

func TestProcessVoteRewardScalesByVoterPlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		voterID uint64
		want    int
	}{
		{"free voter", 1, 1},
		{"pro voter", 2, 1},
		{"elite voter", 3, 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newRewardFixture()

			outcome, err := f.svc.ProcessVoteReward(context.Background(), upvoteRequest(10, tt.voterID, 9))
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome.CreditsAwarded)
		})
	}
}

func TestProcessVoteRewardRejectsSelfVote(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()

	outcome, err := f.svc.ProcessVoteReward(context.Background(), upvoteRequest(10, 1, 1))
	require.NoError(t, err)

	assert.True(t, outcome.AbuseDetected)
	assert.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Reason)
	assert.Empty(t, f.rewards.granted)

	require.Len(t, f.detections.created, 1)
	detection := f.detections.created[0]
	assert.Equal(t, enum.AbuseTypeSelfVote, detection.AbuseType)
	assert.Equal(t, enum.AbuseSeverityLow, detection.Severity)

	require.Len(t, f.sink.alerts, 1)
	assert.Equal(t, detection.ID, f.sink.alerts[0].DetectionID)
}

func TestProcessVoteRewardRejectsYoungAccount(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()

	outcome, err := f.svc.ProcessVoteReward(context.Background(), upvoteRequest(10, 4, 2))
	require.NoError(t, err)

	assert.True(t, outcome.AbuseDetected)
	assert.Empty(t, f.rewards.granted)

	require.Len(t, f.detections.created, 1)
	assert.Equal(t, enum.AbuseTypeAccountAge, f.detections.created[0].AbuseType)
	assert.Equal(t, enum.AbuseSeverityMedium, f.detections.created[0].Severity)
}

func TestProcessVoteRewardDownvoteEarnsNothing(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()

	req := upvoteRequest(10, 1, 2)
	req.Value = types.VoteValueDown

	outcome, err := f.svc.ProcessVoteReward(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Zero(t, outcome.CreditsAwarded)
	assert.Empty(t, f.rewards.granted)
	assert.Empty(t, f.detections.created)
}

func TestProcessVoteRewardIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()
	f.rewards.byVote[10] = &types.VoteReward{ID: 99, VoteID: 10, UserID: 2, VoterID: 1, Amount: 1}

	outcome, err := f.svc.ProcessVoteReward(context.Background(), upvoteRequest(10, 1, 2))
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.True(t, outcome.Duplicate)
	assert.Zero(t, outcome.CreditsAwarded)
	assert.Empty(t, f.rewards.granted)
}

func TestProcessVoteRewardSurvivesGrantRace(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()
	// A concurrent request inserts the reward between the idempotency check
	// and our grant; the unique vote_id surfaces as ErrRewardExists.
	f.rewards.grantErr = types.ErrRewardExists

	outcome, err := f.svc.ProcessVoteReward(context.Background(), upvoteRequest(10, 1, 2))
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.True(t, outcome.Duplicate)
	assert.Zero(t, outcome.CreditsAwarded)
}

func TestProcessVoteRewardPropagatesGrantError(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()
	f.rewards.grantErr = errors.New("connection refused")

	outcome, err := f.svc.ProcessVoteReward(context.Background(), upvoteRequest(10, 1, 2))
	require.Error(t, err)
	assert.Nil(t, outcome)
}

func TestSpendCredits(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()

	err := f.svc.SpendCredits(context.Background(), 1, 4, "prompt generation")
	require.NoError(t, err)

	assert.Equal(t, 6, f.credits.balances[1])
	require.Len(t, f.credits.ledger, 1)
	assert.Equal(t, -4, f.credits.ledger[0].Amount)
	assert.Equal(t, enum.CreditTypeSpend, f.credits.ledger[0].Type)
	assert.Equal(t, "prompt generation", f.credits.ledger[0].Description)
}

func TestSpendCreditsInsufficientBalance(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()

	err := f.svc.SpendCredits(context.Background(), 2, 4, "prompt generation")
	require.ErrorIs(t, err, types.ErrInsufficientCredits)
	assert.Empty(t, f.credits.ledger)
}

func TestSpendCreditsRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()

	require.Error(t, f.svc.SpendCredits(context.Background(), 1, 0, "noop"))
	require.Error(t, f.svc.SpendCredits(context.Background(), 1, -3, "negative"))
	assert.Empty(t, f.credits.ledger)
}

func TestProcessVoteRewardPropagatesUserLookupError(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()
	f.users.err = errors.New("connection refused")

	outcome, err := f.svc.ProcessVoteReward(context.Background(), upvoteRequest(10, 1, 2))
	require.Error(t, err)
	assert.Nil(t, outcome)
}

func TestProcessVoteRewardSurvivesAlertFailure(t *testing.T) {
	t.Parallel()

	f := newRewardFixture()
	f.sink.err = errors.New("smtp unavailable")

	outcome, err := f.svc.ProcessVoteReward(context.Background(), upvoteRequest(10, 1, 1))
	require.NoError(t, err)

	// The classification stands even when the notification pipeline fails.
	assert.True(t, outcome.AbuseDetected)
	require.Len(t, f.detections.created, 1)
}
