package database

import (
	"github.com/promptcraft/voteguard/internal/abuse"
	"github.com/promptcraft/voteguard/internal/database/service"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"go.uber.org/zap"
)

// Mailer is re-exported so callers wiring a connection do not need to import
// the service package directly.
type Mailer = service.Mailer

// Service provides access to the business logic services.
type Service struct {
	reward  *service.RewardService
	monitor *service.MonitorService
}

// NewService creates a new service instance with the reward and monitoring
// pipelines wired to their models.
func NewService(repository *Repository, mailer service.Mailer, cfg *config.CommonConfig, logger *zap.Logger) *Service {
	voteModel := repository.Vote()
	rewardModel := repository.Reward()
	creditModel := repository.Credit()
	detectionModel := repository.Detection()
	patternModel := repository.Pattern()
	userModel := repository.User()
	auditModel := repository.Audit()

	chain := abuse.NewChain(&cfg.Abuse, voteModel, logger)

	monitor := service.NewMonitor(
		detectionModel, voteModel, rewardModel, patternModel, auditModel,
		mailer, &cfg.Abuse, &cfg.Notifications, logger,
	)

	return &Service{
		reward: service.NewReward(
			chain, userModel, rewardModel, creditModel, detectionModel, monitor, &cfg.Rewards, logger,
		),
		monitor: monitor,
	}
}

// Reward returns the reward service.
func (s *Service) Reward() *service.RewardService {
	return s.reward
}

// Monitor returns the monitoring service.
func (s *Service) Monitor() *service.MonitorService {
	return s.monitor
}
