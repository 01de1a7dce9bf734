package history

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore models the transcript as (:Session)-[:HAS_TURN]->(:Turn).
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jStore(ctx context.Context, uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jStore{driver: driver, database: database}, nil
}

func (s *Neo4jStore) Append(ctx context.Context, sessionID, role, text string) error {
	if err := checkRole(role); err != nil {
		return err
	}
	_, err := neo4j.ExecuteQuery(ctx, s.driver, `
		MERGE (s:Session {id: $session})
		CREATE (s)-[:HAS_TURN]->(:Turn {role: $role, content: $content, timestamp: $ts})`,
		map[string]any{
			"session": sessionID,
			"role":    role,
			"content": text,
			"ts":      time.Now().UTC().UnixNano(),
		},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
	)
	return err
}

func (s *Neo4jStore) Recent(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	res, err := neo4j.ExecuteQuery(ctx, s.driver, `
		MATCH (:Session {id: $session})-[:HAS_TURN]->(t:Turn)
		RETURN t.role AS role, t.content AS content, t.timestamp AS timestamp
		ORDER BY t.timestamp DESC
		LIMIT $limit`,
		map[string]any{"session": sessionID, "limit": int64(normalizeLimit(limit))},
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, len(res.Records))
	for _, rec := range res.Records {
		turns = append(turns, turnFromValues(rec.AsMap()))
	}
	return reverse(turns), nil
}

func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

func turnFromValues(m map[string]any) Turn {
	var t Turn
	t.Role, _ = m["role"].(string)
	t.Text, _ = m["content"].(string)
	if ns, ok := m["timestamp"].(int64); ok {
		t.Timestamp = time.Unix(0, ns).UTC()
	}
	return t
}
