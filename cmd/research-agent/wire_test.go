package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/research-agent/pkg/config"
	"github.com/Protocol-Lattice/research-agent/pkg/models"
)

func toolNames(t *testing.T, provider string) []string {
	t.Helper()
	logger = zerolog.Nop()
	cfg := config.DefaultConfig()
	cfg.Models.Provider = provider
	cfg.Tools.SerperAPIKey = "key"

	llm := models.NewDummyLLM("")
	toolset, err := (&app{}).tools(context.Background(), cfg, llm, llm)
	require.NoError(t, err)
	names := make([]string, 0, len(toolset))
	for _, tool := range toolset {
		names = append(names, tool.Name())
	}
	return names
}

func TestEchoToolOnlyOffline(t *testing.T) {
	assert.Contains(t, toolNames(t, "dummy"), "echo")

	prod := toolNames(t, "gemini")
	assert.NotContains(t, prod, "echo")
	assert.Contains(t, prod, "serper_search")
	assert.Contains(t, prod, "generate_image")
	assert.Contains(t, prod, "gemini_live_search")
}

func TestBuildAppOffline(t *testing.T) {
	logger = zerolog.Nop()
	cfg := config.DefaultConfig()
	cfg.Models.Provider = "dummy"
	cfg.History.Backend = "memory"

	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.close()

	_, _, ok := a.agent.Tools().Lookup("echo")
	assert.True(t, ok)
	assert.Equal(t, cfg.Server.MaxUploadBytes, a.parser.MaxBytes)
}
