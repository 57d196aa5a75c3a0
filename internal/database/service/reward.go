package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptcraft/voteguard/internal/abuse"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"go.uber.org/zap"
)

// UserStore is the user lookup the reward pipeline needs.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*types.User, error)
}

// RewardStore persists rewards and answers the idempotency check.
type RewardStore interface {
	GetByVoteID(ctx context.Context, voteID uint64) (*types.VoteReward, error)
	Grant(ctx context.Context, reward *types.VoteReward) error
}

// CreditStore debits balances through the conditional-update ledger.
type CreditStore interface {
	Spend(ctx context.Context, tx *types.CreditTransaction) error
}

// DetectionWriter persists new abuse detections.
type DetectionWriter interface {
	Create(ctx context.Context, detection *types.VoteAbuseDetection) error
}

// AlertSink consumes abuse alerts for notification and trend accumulation.
type AlertSink interface {
	ProcessAbuseAlert(ctx context.Context, alert *Alert) error
}

// Alert is the event handed to the monitoring pipeline when a heuristic
// check rejects a vote.
type Alert struct {
	DetectionID string
	UserID      uint64
	PromptID    uint64
	IPAddress   string
	Finding     *abuse.Finding
	DetectedAt  time.Time
}

// RewardRequest carries one vote submission through the pipeline. The caller
// has already validated that the voter and prompt exist.
type RewardRequest struct {
	VoteID    uint64
	VoterID   uint64
	AuthorID  uint64
	PromptID  uint64
	Value     int
	IPAddress string
	UserAgent string
}

// RewardOutcome is the pipeline's classification of one vote. Abuse
// detections are successful classifications, not errors; only
// infrastructure failures surface as errors.
type RewardOutcome struct {
	Success        bool   `json:"success"`
	CreditsAwarded int    `json:"creditsAwarded"`
	AbuseDetected  bool   `json:"abuseDetected"`
	Reason         string `json:"reason,omitempty"`
	Duplicate      bool   `json:"duplicate,omitempty"`
}

// RewardService gates the credit reward for a vote behind the abuse chain
// and grants it transactionally when every check passes.
type RewardService struct {
	chain      *abuse.Chain
	users      UserStore
	rewards    RewardStore
	credits    CreditStore
	detections DetectionWriter
	monitor    AlertSink
	rewardCfg  *config.Rewards
	logger     *zap.Logger
}

// NewReward creates a new reward service.
func NewReward(
	chain *abuse.Chain,
	users UserStore,
	rewards RewardStore,
	credits CreditStore,
	detections DetectionWriter,
	monitor AlertSink,
	rewardCfg *config.Rewards,
	logger *zap.Logger,
) *RewardService {
	return &RewardService{
		chain:      chain,
		users:      users,
		rewards:    rewards,
		credits:    credits,
		detections: detections,
		monitor:    monitor,
		rewardCfg:  rewardCfg,
		logger:     logger.Named("reward_service"),
	}
}

// ProcessVoteReward runs the heuristic chain for one vote and either grants
// the plan-scaled credit reward to the prompt author or persists a detection
// explaining the rejection. Database errors propagate; they are never
// swallowed into a silent pass.
func (s *RewardService) ProcessVoteReward(ctx context.Context, req *RewardRequest) (*RewardOutcome, error) {
	voter, err := s.users.GetByID(ctx, req.VoterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load voter: %w", err)
	}

	now := time.Now()
	voteCtx := &abuse.Context{
		VoteID:         req.VoteID,
		VoterID:        req.VoterID,
		AuthorID:       req.AuthorID,
		PromptID:       req.PromptID,
		Value:          req.Value,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		VoterCreatedAt: voter.CreatedAt,
		Now:            now,
	}

	finding, err := s.chain.Evaluate(ctx, voteCtx)
	if err != nil {
		return nil, err
	}

	if finding != nil {
		return s.rejectVote(ctx, req, finding, now)
	}

	// Downvotes pass the chain but never grant credit.
	if req.Value != types.VoteValueUp {
		return &RewardOutcome{Success: true}, nil
	}

	// A prior reward for this vote makes re-processing a no-op.
	existing, err := s.rewards.GetByVoteID(ctx, req.VoteID)
	if err != nil && !errors.Is(err, types.ErrRewardNotFound) {
		return nil, err
	}

	if existing != nil {
		s.logger.Debug("Vote already rewarded",
			zap.Uint64("voteID", req.VoteID),
			zap.Uint64("rewardID", existing.ID))

		return &RewardOutcome{Success: true, Duplicate: true}, nil
	}

	amount := s.rewardCfg.CreditsFor(voter.PlanType)
	if amount <= 0 {
		return &RewardOutcome{Success: true}, nil
	}

	reward := &types.VoteReward{
		VoteID:  req.VoteID,
		UserID:  req.AuthorID,
		VoterID: req.VoterID,
		Amount:  amount,
	}
	if err := s.rewards.Grant(ctx, reward); err != nil {
		// A concurrent request won the unique vote_id race after our
		// idempotency check; treat it like the pre-existing reward above.
		if errors.Is(err, types.ErrRewardExists) {
			s.logger.Debug("Reward grant lost idempotency race",
				zap.Uint64("voteID", req.VoteID))

			return &RewardOutcome{Success: true, Duplicate: true}, nil
		}

		return nil, err
	}

	s.logger.Info("Vote reward granted",
		zap.Uint64("voteID", req.VoteID),
		zap.Uint64("authorID", req.AuthorID),
		zap.Int("amount", amount))

	return &RewardOutcome{Success: true, CreditsAwarded: amount}, nil
}

// SpendCredits debits a user's balance and records the ledger entry. The
// balance guard is enforced inside the store's conditional update, so a
// concurrent spend that would overdraw returns ErrInsufficientCredits.
func (s *RewardService) SpendCredits(ctx context.Context, userID uint64, amount int, description string) error {
	if amount <= 0 {
		return fmt.Errorf("spend amount must be positive, got %d", amount)
	}

	tx := &types.CreditTransaction{
		UserID:      userID,
		Amount:      -amount,
		Type:        enum.CreditTypeSpend,
		Description: description,
	}
	if err := s.credits.Spend(ctx, tx); err != nil {
		return err
	}

	s.logger.Info("Credits spent",
		zap.Uint64("userID", userID),
		zap.Int("amount", amount))

	return nil
}

// rejectVote persists the detection and hands the alert to monitoring. The
// detection write must succeed; the monitoring dispatch is best-effort so a
// notification failure cannot mask the classification.
func (s *RewardService) rejectVote(
	ctx context.Context, req *RewardRequest, finding *abuse.Finding, now time.Time,
) (*RewardOutcome, error) {
	detection := &types.VoteAbuseDetection{
		UserID:    req.VoterID,
		PromptID:  req.PromptID,
		AbuseType: finding.Type,
		Severity:  finding.Severity,
		Reason:    finding.Reason,
		IPAddress: req.IPAddress,
		Evidence:  finding.Evidence,
		RiskScore: finding.RiskScore,
	}
	if err := s.detections.Create(ctx, detection); err != nil {
		return nil, err
	}

	alert := &Alert{
		DetectionID: detection.ID,
		UserID:      req.VoterID,
		PromptID:    req.PromptID,
		IPAddress:   req.IPAddress,
		Finding:     finding,
		DetectedAt:  now,
	}
	if err := s.monitor.ProcessAbuseAlert(ctx, alert); err != nil {
		s.logger.Error("Failed to process abuse alert",
			zap.String("detectionID", detection.ID),
			zap.Error(err))
	}

	return &RewardOutcome{
		AbuseDetected: true,
		Reason:        finding.Reason,
	}, nil
}
