package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/hf-quote-tgbot-go/internal/config"
	"github.com/hf-quote-tgbot-go/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	username TEXT,
	last_seen TEXT
)`

const postgresUpsert = `
INSERT INTO users (user_id, username, last_seen)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET
	username = EXCLUDED.username,
	last_seen = EXCLUDED.last_seen`

// PostgresDirectory stores users in PostgreSQL through a pgx pool
type PostgresDirectory struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

// NewPostgresDirectory connects, creates the users table and adds a missing last_seen column
func NewPostgresDirectory(ctx context.Context, cfg *config.PostgresConfig, logger logrus.FieldLogger) (*PostgresDirectory, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	d := &PostgresDirectory{pool: pool, logger: logger}
	if err := d.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("Postgres user directory connected")
	return d, nil
}

func (d *PostgresDirectory) migrate(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = 'users' AND column_name = 'last_seen'
		)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to inspect users table: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := d.pool.Exec(ctx, "ALTER TABLE users ADD COLUMN last_seen TEXT"); err != nil {
		return fmt.Errorf("failed to add last_seen column: %w", err)
	}
	d.logger.Info("Migration applied: added users.last_seen")
	return nil
}

func (d *PostgresDirectory) Upsert(ctx context.Context, user models.UserRecord) error {
	_, err := d.pool.Exec(ctx, postgresUpsert, user.UserID, user.DisplayName, user.LastSeen)
	return err
}

func (d *PostgresDirectory) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	var (
		user     models.UserRecord
		username pgtype.Text
		lastSeen pgtype.Text
	)
	err := d.pool.QueryRow(ctx,
		"SELECT user_id, username, last_seen FROM users WHERE user_id = $1", userID,
	).Scan(&user.UserID, &username, &lastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	user.DisplayName = username.String
	user.LastSeen = lastSeen.String
	return &user, nil
}

func (d *PostgresDirectory) GetAll(ctx context.Context) ([]models.UserRecord, error) {
	rows, err := d.pool.Query(ctx, "SELECT user_id, username, last_seen FROM users ORDER BY user_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.UserRecord, 0)
	for rows.Next() {
		var (
			user     models.UserRecord
			username pgtype.Text
			lastSeen pgtype.Text
		)
		if err := rows.Scan(&user.UserID, &username, &lastSeen); err != nil {
			return nil, err
		}
		user.DisplayName = username.String
		user.LastSeen = lastSeen.String
		users = append(users, user)
	}
	return users, rows.Err()
}

func (d *PostgresDirectory) Close() error {
	d.pool.Close()
	return nil
}
