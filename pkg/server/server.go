// Package server exposes the agent over HTTP with server-sent events.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/pkg/event"
	"github.com/Protocol-Lattice/research-agent/pkg/metrics"
	"github.com/Protocol-Lattice/research-agent/pkg/upload"
)

// Streamer runs one request and writes its events to sink.
type Streamer interface {
	Stream(ctx context.Context, req agent.Request, sink event.Sink) error
}

// Options configure a Server.
type Options struct {
	Agent    Streamer
	Parser   *upload.Parser
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // served on /metrics when set

	CORSOrigins []string
	RateLimit   float64 // per client, per second; 0 disables
	RateBurst   int
}

// Server is the HTTP surface of the agent.
type Server struct {
	agent    Streamer
	parser   *upload.Parser
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	limiter  *clientLimiter
	cors     *cors.Cors
	started  time.Time
}

func New(opts Options) (*Server, error) {
	if opts.Agent == nil {
		return nil, errors.New("server requires an agent")
	}
	parser := opts.Parser
	if parser == nil {
		parser = upload.NewParser()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := &Server{
		agent:    opts.Agent,
		parser:   parser,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
		cors: cors.New(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}),
		started: time.Now(),
	}
	if opts.RateLimit > 0 {
		s.limiter = newClientLimiter(opts.RateLimit, opts.RateBurst)
	}
	return s, nil
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.observe)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/chat-agent", s.handleChatAgent).Methods(http.MethodPost)
	api.HandleFunc("/chat-with-file", s.handleChatWithFile).Methods(http.MethodPost)

	return s.cors.Handler(r)
}

// Serve runs the handler on ln until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}
