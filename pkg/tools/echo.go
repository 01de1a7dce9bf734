package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// EchoTool answers with the query wrapped in a JSON object. Offline runs
// against the dummy provider register it so the tool hop and structured
// synthesis can be exercised without network access.
type EchoTool struct{}

func (e *EchoTool) Name() string        { return "echo" }
func (e *EchoTool) StatusLabel() string { return "Echoing the query..." }
func (e *EchoTool) Description() string {
	return "Returns the query as structured data. Offline testing only."
}

func (e *EchoTool) Run(_ context.Context, query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", errors.New("echo needs a non-empty query")
	}
	out, err := json.Marshal(map[string]string{"query": q})
	if err != nil {
		return "", err
	}
	return string(out), nil
}
