package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/pkg/config"
	"github.com/Protocol-Lattice/research-agent/pkg/history"
	"github.com/Protocol-Lattice/research-agent/pkg/metrics"
	"github.com/Protocol-Lattice/research-agent/pkg/models"
	"github.com/Protocol-Lattice/research-agent/pkg/tools"
	"github.com/Protocol-Lattice/research-agent/pkg/upload"
)

// app holds everything built from the configuration. close releases it
// in reverse construction order.
type app struct {
	agent    *agent.Agent
	parser   *upload.Parser
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn().Err(err).Msg("close failed")
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	pro, err := a.provider(ctx, cfg.Models, cfg.Models.ProModel)
	if err != nil {
		return nil, fmt.Errorf("pro model: %w", err)
	}
	flash, err := a.provider(ctx, cfg.Models, cfg.Models.FlashModel)
	if err != nil {
		return nil, fmt.Errorf("flash model: %w", err)
	}
	live, err := a.provider(ctx, cfg.Models, cfg.Models.LiveModel)
	if err != nil {
		return nil, fmt.Errorf("live model: %w", err)
	}

	router := flash
	if cfg.Models.RouterCache > 0 {
		cached := models.NewCachedLLM(flash, "router", cfg.Models.RouterCache, cfg.Models.RouterTTL)
		metrics.WatchCache(a.registry, "router", func() (uint64, uint64) {
			st := cached.Stats()
			return st.Hits, st.Misses
		})
		router = cached
	}

	store, err := history.Open(ctx, cfg.HistoryOptions())
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	toolset, err := a.tools(ctx, cfg, flash, live)
	if err != nil {
		return nil, err
	}

	knowledge := ""
	if path := strings.TrimSpace(cfg.Models.KnowledgeBase); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("knowledge base: %w", err)
		}
		knowledge = string(data)
	}

	a.agent, err = agent.New(agent.Options{
		Model:          flash,
		ReasoningModel: pro,
		Router:         router,
		History:        store,
		Tools:          toolset,
		Logger:         logger,
		Metrics:        a.metrics,
		SystemPrompt:   cfg.Models.SystemPrompt,
		KnowledgeBase:  knowledge,
		HistoryLimit:   cfg.History.Limit,
	})
	if err != nil {
		return nil, err
	}

	a.parser = upload.NewParser()
	a.parser.MaxBytes = cfg.Server.MaxUploadBytes
	if cfg.Server.UploadDir != "" {
		a.parser.Store = upload.FSStore{BaseDir: cfg.Server.UploadDir}
	}
	if cfg.Server.RedactUploads {
		a.parser.Redactor = upload.NewDefaultRedactor()
	}
	return a, nil
}

// offline reports whether the models are the scripted dummy provider.
func offline(cfg *config.Config) bool {
	return strings.EqualFold(strings.TrimSpace(cfg.Models.Provider), "dummy")
}

func (a *app) provider(ctx context.Context, mc config.ModelsConfig, model string) (models.Agent, error) {
	llm, err := models.NewLLMProvider(ctx, models.ProviderConfig{
		Provider: mc.Provider,
		Model:    model,
		APIKey:   mc.APIKey,
		BaseURL:  mc.BaseURL,
		Timeout:  mc.Timeout,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return models.Close(llm) })
	return llm, nil
}

func (a *app) tools(ctx context.Context, cfg *config.Config, flash, live models.Agent) ([]agent.Tool, error) {
	tc := cfg.Tools
	out := []agent.Tool{
		&tools.CalculatorTool{},
		&tools.TimeTool{},
		tools.NewLiveSearch(live),
	}
	if offline(cfg) {
		out = append(out, &tools.EchoTool{})
	}

	img := tools.NewImageGenerator(flash)
	if tc.ImageURL != "" {
		img.BaseURL = tc.ImageURL
	}
	out = append(out, img)

	if tc.SerperAPIKey != "" {
		serper := tools.NewSerperSearch(tc.SerperAPIKey)
		if tc.SerperURL != "" {
			serper.Endpoint = tc.SerperURL
		}
		out = append(out, serper)
	} else {
		logger.Warn().Msg("SERPER_API_KEY not set, web search disabled")
	}

	if tc.UTCPProviders != "" {
		client, err := tools.NewUTCPClient(ctx, tc.UTCPProviders)
		if err != nil {
			return nil, err
		}
		if len(tc.UTCPTools) == 0 {
			return nil, errors.New("tools.utcp_tools must name the remote tools to expose")
		}
		for _, name := range tc.UTCPTools {
			out = append(out, tools.NewUTCPTool(client, name, "Remote tool "+name+". Input is the query text."))
		}
	}
	return out, nil
}
