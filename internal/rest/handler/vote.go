package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/promptcraft/voteguard/internal/database"
	"github.com/promptcraft/voteguard/internal/database/service"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/rest/middleware/auth"
	"github.com/promptcraft/voteguard/internal/rest/middleware/ip"
	restTypes "github.com/promptcraft/voteguard/internal/rest/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// VoteHandler handles vote submission.
type VoteHandler struct {
	db     database.Client
	logger *zap.Logger
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(db database.Client, logger *zap.Logger) *VoteHandler {
	return &VoteHandler{
		db:     db,
		logger: logger,
	}
}

// SubmitVote persists a vote for a prompt and runs the reward pipeline.
// Re-voting with the same value removes the vote; the opposite value flips
// it. Reward processing runs synchronously after persistence so the response
// carries the classification.
func (h *VoteHandler) SubmitVote(w http.ResponseWriter, req bunrouter.Request) error {
	promptID, err := strconv.ParseUint(req.Param("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid prompt ID", http.StatusBadRequest)
		return nil
	}

	var body restTypes.VoteRequest
	if err := sonic.ConfigDefault.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil
	}

	if body.Value != types.VoteValueUp && body.Value != types.VoteValueDown {
		http.Error(w, "Vote value must be 1 or -1", http.StatusBadRequest)
		return nil
	}

	user := auth.FromContext(req.Context())
	if user == nil {
		http.Error(w, "Missing API key", http.StatusUnauthorized)
		return nil
	}

	prompt, err := h.db.Model().Prompt().GetByID(req.Context(), promptID)
	if err != nil {
		if errors.Is(err, types.ErrPromptNotFound) {
			http.Error(w, "Prompt not found", http.StatusNotFound)
			return nil
		}

		h.logger.Error("Failed to get prompt", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	clientIP := ip.FromContext(req.Context())
	userAgent := req.Header.Get("User-Agent")

	vote, removed, err := h.persistVote(req, user.ID, prompt, body.Value, clientIP, userAgent)
	if err != nil {
		h.logger.Error("Failed to persist vote", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	if removed {
		return bunrouter.JSON(w, restTypes.VoteResponse{
			UserID:   user.ID,
			PromptID: promptID,
			Removed:  true,
		})
	}

	outcome, err := h.db.Service().Reward().ProcessVoteReward(req.Context(), &service.RewardRequest{
		VoteID:    vote.ID,
		VoterID:   user.ID,
		AuthorID:  prompt.AuthorID,
		PromptID:  promptID,
		Value:     vote.Value,
		IPAddress: clientIP,
		UserAgent: userAgent,
	})
	if err != nil {
		h.logger.Error("Failed to process vote reward",
			zap.Uint64("voteID", vote.ID),
			zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)

		return nil
	}

	return bunrouter.JSON(w, restTypes.VoteResponse{
		ID:             vote.ID,
		UserID:         user.ID,
		PromptID:       promptID,
		Value:          vote.Value,
		CreditsAwarded: outcome.CreditsAwarded,
		AbuseDetected:  outcome.AbuseDetected,
		Reason:         outcome.Reason,
	})
}

// persistVote applies the revote semantics and returns the surviving vote,
// or removed=true when a same-value revote deleted it.
func (h *VoteHandler) persistVote(
	req bunrouter.Request, userID uint64, prompt *types.Prompt, value int, clientIP, userAgent string,
) (*types.Vote, bool, error) {
	votes := h.db.Model().Vote()

	existing, err := votes.GetByUserAndPrompt(req.Context(), userID, prompt.ID)
	if err != nil && !errors.Is(err, types.ErrVoteNotFound) {
		return nil, false, err
	}

	if existing != nil {
		if existing.Value == value {
			if err := votes.Delete(req.Context(), existing.ID); err != nil {
				return nil, false, err
			}

			return nil, true, nil
		}

		if err := votes.UpdateValue(req.Context(), existing.ID, value); err != nil {
			return nil, false, err
		}

		existing.Value = value

		return existing, false, nil
	}

	vote := &types.Vote{
		UserID:    userID,
		PromptID:  prompt.ID,
		AuthorID:  prompt.AuthorID,
		Value:     value,
		IPAddress: clientIP,
		UserAgent: userAgent,
	}
	if err := votes.Create(req.Context(), vote); err != nil {
		return nil, false, err
	}

	return vote, false, nil
}
