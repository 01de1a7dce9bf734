package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	utcp "github.com/universal-tool-calling-protocol/go-utcp"
)

// UTCPCaller is the subset of the UTCP client used by the tool wrapper.
type UTCPCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// NewUTCPClient loads the providers described in providersFile.
func NewUTCPClient(ctx context.Context, providersFile string) (utcp.UtcpClientInterface, error) {
	cfg := &utcp.UtcpClientConfig{ProvidersFilePath: providersFile}
	client, err := utcp.NewUTCPClient(ctx, cfg, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("utcp client: %w", err)
	}
	return client, nil
}

// UTCPTool adapts a remote UTCP tool to the single-string tool contract.
type UTCPTool struct {
	client     UTCPCaller
	remoteName string
	name       string
	desc       string
	argKey     string
}

// UTCPToolOption customises the behaviour of the UTCP tool wrapper.
type UTCPToolOption func(*UTCPTool)

// WithUTCPDisplayName overrides the name the agent sees. By default the
// part of the remote name after the last dot is used.
func WithUTCPDisplayName(name string) UTCPToolOption {
	return func(t *UTCPTool) {
		if strings.TrimSpace(name) != "" {
			t.name = name
		}
	}
}

// WithUTCPArgumentKey sets the argument the query is sent under ("query"
// by default).
func WithUTCPArgumentKey(key string) UTCPToolOption {
	return func(t *UTCPTool) {
		if strings.TrimSpace(key) != "" {
			t.argKey = key
		}
	}
}

func NewUTCPTool(client UTCPCaller, remoteName, description string, opts ...UTCPToolOption) *UTCPTool {
	name := remoteName
	if i := strings.LastIndex(remoteName, "."); i >= 0 && i < len(remoteName)-1 {
		name = remoteName[i+1:]
	}
	t := &UTCPTool{client: client, remoteName: remoteName, name: name, desc: description, argKey: "query"}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *UTCPTool) Name() string        { return t.name }
func (t *UTCPTool) Description() string { return t.desc }

// Run calls the remote tool. Non-string results are rendered as JSON.
func (t *UTCPTool) Run(ctx context.Context, input string) (string, error) {
	if t.client == nil {
		return "", fmt.Errorf("utcp tool %s is not initialised", t.name)
	}
	out, err := t.client.CallTool(ctx, t.remoteName, map[string]any{t.argKey: strings.TrimSpace(input)})
	if err != nil {
		return "", err
	}
	switch v := out.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), nil
		}
		return string(data), nil
	}
}
