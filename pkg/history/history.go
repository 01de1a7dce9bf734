// Package history persists the per-session conversation transcript.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleModel = "model"

	// DefaultLimit is how many turns Recent returns when asked for zero.
	DefaultLimit = 10
)

var (
	ErrUnknownBackend = errors.New("unknown history backend")
	ErrInvalidRole    = errors.New("invalid turn role")
)

// Turn is one immutable transcript entry.
type Turn struct {
	Role      string    `json:"role" bson:"role"`
	Text      string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Store is an append-only transcript keyed by session id. Recent returns
// the newest limit turns in chronological order.
type Store interface {
	Append(ctx context.Context, sessionID, role, text string) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	Close() error
}

// Config selects a backend. DSN is a file path for sqlite and a
// connection URI for the networked backends.
type Config struct {
	Backend    string
	DSN        string
	Database   string
	Collection string
	Username   string
	Password   string
}

// Open builds the Store named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch canonical(cfg.Backend) {
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "chat_history.db"
		}
		return NewSQLiteStore(ctx, dsn)
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	case "mongo":
		return NewMongoStore(ctx, cfg.DSN, cfg.Database, cfg.Collection)
	case "redis":
		return NewRedisStore(ctx, cfg.DSN)
	case "neo4j":
		return NewNeo4jStore(ctx, cfg.DSN, cfg.Username, cfg.Password, cfg.Database)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Backends lists the names accepted by Open.
func Backends() []string {
	return []string{"sqlite", "memory", "postgres", "mongo", "redis", "neo4j"}
}

// Supported reports whether Open accepts name.
func Supported(name string) bool {
	c := canonical(name)
	for _, b := range Backends() {
		if b == c {
			return true
		}
	}
	return false
}

func canonical(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "":
		return "sqlite"
	case "inmemory":
		return "memory"
	case "postgresql":
		return "postgres"
	case "mongodb":
		return "mongo"
	default:
		return n
	}
}

func checkRole(role string) error {
	if role != RoleUser && role != RoleModel {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// reverse flips newest-first query results into chronological order.
func reverse(turns []Turn) []Turn {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns
}
