package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
)

// Current version of each config file.
const (
	CurrentCommonVersion = 1
	CurrentAPIVersion    = 1
	CurrentWorkerVersion = 1
)

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	API    APIConfig
	Worker WorkerConfig
}

// CommonConfig contains configuration shared between the API and workers.
type CommonConfig struct {
	// Version of the common config.
	Version       int           `koanf:"version"`
	Debug         Debug         `koanf:"debug"`
	PostgreSQL    PostgreSQL    `koanf:"postgresql"`
	Redis         Redis         `koanf:"redis"`
	SMTP          SMTP          `koanf:"smtp"`
	Notifications Notifications `koanf:"notifications"`
	Abuse         Abuse         `koanf:"abuse"`
	Rewards       Rewards       `koanf:"rewards"`
}

// APIConfig contains REST server specific configuration.
type APIConfig struct {
	// Version of the api config.
	Version int `koanf:"version"`
	// Server bind address.
	Server Server `koanf:"server"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
	// Per-IP rate limiting.
	RateLimit RateLimit `koanf:"rate_limit"`
}

// WorkerConfig contains report worker specific configuration.
type WorkerConfig struct {
	// Version of the worker config.
	Version int `koanf:"version"`
	// UTC hour at which the daily summary is sent.
	ReportHourUTC int `koanf:"report_hour_utc"`
	// Lookback window for the daily summary, in hours.
	LookbackHours int `koanf:"lookback_hours"`
	// Heartbeat interval in seconds.
	HeartbeatSeconds int `koanf:"heartbeat_seconds"`
}

// Server contains HTTP listener configuration.
type Server struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// RateLimit contains per-IP token bucket settings.
type RateLimit struct {
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	BurstSize         int     `koanf:"burst_size"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log files to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// SMTP contains outbound mail configuration.
type SMTP struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// Notifications contains the admin alert distribution list.
type Notifications struct {
	// Primary admin notification address.
	AdminEmail string `koanf:"admin_email"`
	// Security team notification address.
	SecurityEmail string `koanf:"security_email"`
}

// Recipients returns the fixed admin distribution list.
func (n *Notifications) Recipients() []string {
	return []string{n.AdminEmail, n.SecurityEmail}
}

// Abuse contains every threshold the heuristic chain and the monitoring
// escalations read. Nothing in the detection path is hard-coded.
type Abuse struct {
	// Minimum account age before votes qualify for rewards.
	MinAccountAgeDays int `koanf:"min_account_age_days"`
	// Votes allowed per voter per hour.
	MaxVotesPerHour int `koanf:"max_votes_per_hour"`
	// Votes allowed per voter per day.
	MaxVotesPerDay int `koanf:"max_votes_per_day"`
	// Votes allowed per IP address per day.
	MaxVotesPerIPPerDay int `koanf:"max_votes_per_ip_per_day"`
	// Distinct voters allowed behind one IP address.
	MaxUsersPerIP int `koanf:"max_users_per_ip"`
	// Consecutive votes inspected by the temporal check.
	RapidVoteCount int `koanf:"rapid_vote_count"`
	// Minimum spacing between consecutive votes.
	MinVoteIntervalSeconds int `koanf:"min_vote_interval_seconds"`
	// Votes allowed from one voter on a single author's prompts.
	MaxVotesPerAuthor int `koanf:"max_votes_per_author"`
	// Distinct voters allowed behind one device signature.
	MaxUsersPerDevice int `koanf:"max_users_per_device"`

	// Monitoring escalation thresholds.
	// Window for detection correlation, in minutes.
	CorrelationWindowMinutes int `koanf:"correlation_window_minutes"`
	// Same-IP detections within the window that signal a coordinated attack.
	CoordinatedIPDetections int `koanf:"coordinated_ip_detections"`
	// Same-type detections system-wide that signal a systematic pattern.
	SystematicTypeDetections int `koanf:"systematic_type_detections"`
	// Recent vote volume that, combined with the abuse ratio, signals overload.
	OverloadVoteVolume int `koanf:"overload_vote_volume"`
	// Abuse ratio (0-1) that, combined with vote volume, signals overload.
	OverloadAbuseRatio float64 `koanf:"overload_abuse_ratio"`
	// Detections per hour that signal a detection-rate spike.
	SpikeDetectionRate float64 `koanf:"spike_detection_rate"`
	// False-positive ratio (0-1) above which the daily digest recommends
	// threshold tuning.
	FalsePositiveRecommendationRatio float64 `koanf:"false_positive_recommendation_ratio"`
}

// Rewards maps plan tiers to credits granted per qualifying upvote. The
// voter's plan determines the amount.
type Rewards struct {
	PlanCredits map[string]int `koanf:"plan_credits"`
}

// CreditsFor returns the reward amount for a voter's plan.
func (r *Rewards) CreditsFor(plan enum.PlanType) int {
	return r.PlanCredits[plan.String()]
}

// LoadConfig reads and validates the three TOML config files.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	// Get user's home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// List search paths
	configPaths := []string{
		".voteguard",
		homeDir + "/.voteguard/config",
		"/etc/voteguard/config",
		"/app/config",
		"config",
		".",
	}

	// Load all config files
	var usedConfigPath string

	configFiles := []string{"common", "api", "worker"}
	for _, configName := range configFiles {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)
			if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
				configLoaded = true

				if usedConfigPath == "" {
					usedConfigPath = path
				}

				break
			}
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("api", config.API.Version, CurrentAPIVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("worker", config.Worker.Version, CurrentWorkerVersion); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current != expected {
		return fmt.Errorf("%w: %s.toml has version %d, expected %d",
			ErrConfigVersionMismatch, name, current, expected)
	}

	return nil
}
