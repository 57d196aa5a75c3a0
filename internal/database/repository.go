package database

import (
	"github.com/promptcraft/voteguard/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	vote      *models.VoteModel
	prompt    *models.PromptModel
	reward    *models.RewardModel
	detection *models.DetectionModel
	pattern   *models.PatternModel
	credit    *models.CreditModel
	user      *models.UserModel
	audit     *models.AuditModel
	stats     *models.StatsModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		vote:      models.NewVote(db, logger),
		prompt:    models.NewPrompt(db, logger),
		reward:    models.NewReward(db, logger),
		detection: models.NewDetection(db, logger),
		pattern:   models.NewPattern(db, logger),
		credit:    models.NewCredit(db, logger),
		user:      models.NewUser(db, logger),
		audit:     models.NewAudit(db, logger),
		stats:     models.NewStats(db, logger),
	}
}

// Vote returns the vote model repository.
func (r *Repository) Vote() *models.VoteModel {
	return r.vote
}

// Prompt returns the prompt model repository.
func (r *Repository) Prompt() *models.PromptModel {
	return r.prompt
}

// Reward returns the reward model repository.
func (r *Repository) Reward() *models.RewardModel {
	return r.reward
}

// Detection returns the detection model repository.
func (r *Repository) Detection() *models.DetectionModel {
	return r.detection
}

// Pattern returns the vote pattern model repository.
func (r *Repository) Pattern() *models.PatternModel {
	return r.pattern
}

// Credit returns the credit model repository.
func (r *Repository) Credit() *models.CreditModel {
	return r.credit
}

// User returns the user model repository.
func (r *Repository) User() *models.UserModel {
	return r.user
}

// Audit returns the audit model repository.
func (r *Repository) Audit() *models.AuditModel {
	return r.audit
}

// Stats returns the stats model repository.
func (r *Repository) Stats() *models.StatsModel {
	return r.stats
}
