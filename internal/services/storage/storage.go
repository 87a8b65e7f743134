package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hf-quote-tgbot-go/internal/config"
	"github.com/hf-quote-tgbot-go/internal/models"
)

var (
	// ErrUserNotFound is returned by Get when no record exists for the id
	ErrUserNotFound = errors.New("user not found")
	// ErrUnsupportedBackend is returned for an unknown storage.type
	ErrUnsupportedBackend = errors.New("unsupported storage backend")
)

// Directory is the durable record of users the bot has seen
type Directory interface {
	// Upsert inserts the record or overwrites username and last_seen for an existing user_id
	Upsert(ctx context.Context, user models.UserRecord) error
	Get(ctx context.Context, userID string) (*models.UserRecord, error)
	// GetAll returns every record ordered by user_id
	GetAll(ctx context.Context) ([]models.UserRecord, error)
	Close() error
}

// OperationRecorder receives one observation per storage call
type OperationRecorder interface {
	RecordStorageOperation(operation, status string, duration time.Duration)
}

// Manager fronts the configured backend and records every operation
type Manager struct {
	backend Directory
	name    string
	metrics OperationRecorder
	logger  logrus.FieldLogger
}

// NewManager creates the backend selected by cfg.Storage.Type
func NewManager(cfg *config.Config, logger logrus.FieldLogger, metrics OperationRecorder) (*Manager, error) {
	var (
		backend Directory
		err     error
	)

	switch cfg.Storage.Type {
	case "sqlite", "":
		backend, err = NewSQLiteDirectory(cfg.Storage.SQLite.Path, logger)
	case "postgres":
		backend, err = NewPostgresDirectory(context.Background(), &cfg.Storage.Postgres, logger)
	case "redis":
		backend, err = NewRedisDirectory(&cfg.Storage.Redis, logger)
	case "memory":
		backend = NewMemoryDirectory()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, cfg.Storage.Type)
	}
	if err != nil {
		return nil, err
	}

	logger.WithField("backend", cfg.Storage.Type).Info("User directory initialized")
	return NewManagerWithBackend(backend, cfg.Storage.Type, logger, metrics), nil
}

// NewManagerWithBackend wraps an already opened backend
func NewManagerWithBackend(backend Directory, name string, logger logrus.FieldLogger, metrics OperationRecorder) *Manager {
	return &Manager{
		backend: backend,
		name:    name,
		metrics: metrics,
		logger:  logger,
	}
}

// Backend returns the backend name, for logging
func (m *Manager) Backend() string {
	return m.name
}

func (m *Manager) Upsert(ctx context.Context, user models.UserRecord) error {
	start := time.Now()
	err := m.backend.Upsert(ctx, user)
	m.record("upsert", err, start)
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.UserID, err)
	}
	return nil
}

func (m *Manager) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	start := time.Now()
	user, err := m.backend.Get(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		m.record("get", nil, start)
		return nil, err
	}
	m.record("get", err, start)
	return user, err
}

func (m *Manager) GetAll(ctx context.Context) ([]models.UserRecord, error) {
	start := time.Now()
	users, err := m.backend.GetAll(ctx)
	m.record("get_all", err, start)
	return users, err
}

func (m *Manager) Close() error {
	return m.backend.Close()
}

func (m *Manager) record(operation string, err error, start time.Time) {
	if m.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordStorageOperation(operation, status, time.Since(start))
}
