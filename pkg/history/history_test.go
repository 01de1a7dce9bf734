package history

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	turns, err := s.Recent(ctx, "empty", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)

	for i := 0; i < 12; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		require.NoError(t, s.Append(ctx, "s1", role, fmt.Sprintf("turn %d", i)))
	}
	require.NoError(t, s.Append(ctx, "s2", RoleUser, "other session"))

	turns, err = s.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 10)
	assert.Equal(t, "turn 2", turns[0].Text)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "turn 11", turns[9].Text)
	assert.Equal(t, RoleModel, turns[9].Role)
	for i := 1; i < len(turns); i++ {
		assert.False(t, turns[i].Timestamp.Before(turns[i-1].Timestamp))
	}

	turns, err = s.Recent(ctx, "s2", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "other session", turns[0].Text)

	assert.ErrorIs(t, s.Append(ctx, "s1", "system", "x"), ErrInvalidRole)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "s", RoleUser, "hello"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	turns, err := s.Recent(ctx, "s", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].Text)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Config{Backend: "sqlite", DSN: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Backend: "cassandra"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestRedisTurnDecoding(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(Turn{Role: RoleModel, Text: "hi", Timestamp: ts})
	require.NoError(t, err)

	turns, err := decodeRedisTurns([]string{string(data)})
	require.NoError(t, err)
	assert.Equal(t, []Turn{{Role: RoleModel, Text: "hi", Timestamp: ts}}, turns)

	_, err = decodeRedisTurns([]string{"{"})
	assert.Error(t, err)
	assert.Equal(t, "chat_history:abc", redisKey("abc"))
}

func TestNeo4jRecordMapping(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got := turnFromValues(map[string]any{"role": "user", "content": "q", "timestamp": ts.UnixNano()})
	assert.Equal(t, Turn{Role: RoleUser, Text: "q", Timestamp: ts}, got)
}

func TestMongoMappingReversesToChronological(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)
	newestFirst := []mongoTurn{
		{Role: RoleModel, Content: "answer", Timestamp: t2},
		{Role: RoleUser, Content: "question", Timestamp: t1},
	}
	got := reverse(fromMongo(newestFirst))
	assert.Equal(t, []Turn{
		{Role: RoleUser, Text: "question", Timestamp: t1},
		{Role: RoleModel, Text: "answer", Timestamp: t2},
	}, got)
}

func TestSupportedAcceptsAliases(t *testing.T) {
	for _, name := range []string{"", "SQLite", "inmemory", "postgresql", "mongodb", "redis", "neo4j"} {
		assert.True(t, Supported(name), name)
	}
	assert.False(t, Supported("cassandra"))
}
