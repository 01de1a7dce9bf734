package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history (session_id, timestamp DESC);
`

// PostgresStore persists turns in Postgres.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the chat_history table.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if _, err := db.Exec(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

func (ps *PostgresStore) Append(ctx context.Context, sessionID, role, text string) error {
	if err := checkRole(role); err != nil {
		return err
	}
	_, err := ps.DB.Exec(ctx,
		`INSERT INTO chat_history (session_id, role, content) VALUES ($1, $2, $3)`,
		sessionID, role, text)
	return err
}

func (ps *PostgresStore) Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	rows, err := ps.DB.Query(ctx, `
		SELECT role, content, timestamp FROM chat_history
		WHERE session_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2`, sessionID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Text, &t.Timestamp); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reverse(turns), nil
}

// Close releases the underlying Postgres connection pool.
func (ps *PostgresStore) Close() error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ps.DB.Close()
	return nil
}
