// Package logging builds the zap loggers used across the service. Each run
// writes to a timestamped session directory under the service's log dir,
// with console output alongside.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/promptcraft/voteguard/internal/setup/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Manager handles the creation of log files and session directories.
type Manager struct {
	logDir        string
	sessionDir    string
	level         zapcore.Level
	maxLogsToKeep int
}

// NewManager creates a logging manager rooted at logDir.
func NewManager(logDir string, cfg *config.Debug) (*Manager, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	m := &Manager{
		logDir:        logDir,
		level:         level,
		maxLogsToKeep: cfg.MaxLogsToKeep,
	}
	if err := m.setupSessionDir(); err != nil {
		return nil, err
	}

	return m, nil
}

// GetLoggers initializes the main and database loggers.
func (m *Manager) GetLoggers() (*zap.Logger, *zap.Logger, error) {
	mainLogger, err := m.initLogger("main.log")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize main logger: %w", err)
	}

	dbLogger, err := m.initLogger("database.log")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database logger: %w", err)
	}

	return mainLogger, dbLogger, nil
}

// GetWorkerLogger creates a logger for a background worker. Each worker gets
// its own log file in the session directory.
func (m *Manager) GetWorkerLogger(name string) *zap.Logger {
	logger, err := m.initLogger(name + ".log")
	if err != nil {
		return zap.NewNop()
	}

	return logger
}

// setupSessionDir creates a timestamped directory for this run and prunes
// the oldest sessions beyond the retention limit.
func (m *Manager) setupSessionDir() error {
	m.sessionDir = filepath.Join(m.logDir, time.Now().UTC().Format("20060102_150405"))
	if err := os.MkdirAll(m.sessionDir, 0o755); err != nil {
		return fmt.Errorf("failed to create session log directory: %w", err)
	}

	return m.pruneOldSessions()
}

func (m *Manager) pruneOldSessions() error {
	if m.maxLogsToKeep <= 0 {
		return nil
	}

	entries, err := os.ReadDir(m.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	var sessions []string

	for _, entry := range entries {
		if entry.IsDir() {
			sessions = append(sessions, entry.Name())
		}
	}

	if len(sessions) <= m.maxLogsToKeep {
		return nil
	}

	sort.Strings(sessions)

	for _, name := range sessions[:len(sessions)-m.maxLogsToKeep] {
		if err := os.RemoveAll(filepath.Join(m.logDir, name)); err != nil {
			return fmt.Errorf("failed to prune old session %s: %w", name, err)
		}
	}

	return nil
}

// initLogger builds a logger writing to both the session file and stderr.
func (m *Manager) initLogger(filename string) (*zap.Logger, error) {
	logPath := filepath.Join(m.sessionDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), m.level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig), zapcore.AddSync(os.Stderr), m.level),
	)

	return zap.New(core, zap.AddCaller()), nil
}
