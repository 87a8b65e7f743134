package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/hf-quote-tgbot-go/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	username TEXT,
	last_seen TEXT
)`

const sqliteUpsert = `
INSERT INTO users (user_id, username, last_seen)
VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	username = excluded.username,
	last_seen = excluded.last_seen`

// SQLiteDirectory stores users in a single SQLite file
type SQLiteDirectory struct {
	db     *sql.DB
	mu     sync.Mutex
	logger logrus.FieldLogger
}

// NewSQLiteDirectory opens path, creates the users table and adds last_seen
// to tables created before that column existed
func NewSQLiteDirectory(path string, logger logrus.FieldLogger) (*SQLiteDirectory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}

	d := &SQLiteDirectory{db: db, logger: logger}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.WithField("path", path).Info("SQLite user directory opened")
	return d, nil
}

func (d *SQLiteDirectory) migrate() error {
	exists, err := d.columnExists("users", "last_seen")
	if err != nil {
		return fmt.Errorf("failed to inspect users table: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := d.db.Exec("ALTER TABLE users ADD COLUMN last_seen TEXT"); err != nil {
		return fmt.Errorf("failed to add last_seen column: %w", err)
	}
	d.logger.Info("Migration applied: added users.last_seen")
	return nil
}

// columnExists checks a column through PRAGMA table_info
func (d *SQLiteDirectory) columnExists(table, column string) (bool, error) {
	rows, err := d.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  any
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &primaryKey); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (d *SQLiteDirectory) Upsert(ctx context.Context, user models.UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.ExecContext(ctx, sqliteUpsert, user.UserID, user.DisplayName, user.LastSeen)
	return err
}

func (d *SQLiteDirectory) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	var (
		user     models.UserRecord
		username sql.NullString
		lastSeen sql.NullString
	)
	err := d.db.QueryRowContext(ctx,
		"SELECT user_id, username, last_seen FROM users WHERE user_id = ?", userID,
	).Scan(&user.UserID, &username, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	user.DisplayName = username.String
	user.LastSeen = lastSeen.String
	return &user, nil
}

func (d *SQLiteDirectory) GetAll(ctx context.Context) ([]models.UserRecord, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT user_id, username, last_seen FROM users ORDER BY user_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.UserRecord, 0)
	for rows.Next() {
		var (
			user     models.UserRecord
			username sql.NullString
			lastSeen sql.NullString
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

func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}
