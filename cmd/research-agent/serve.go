package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Protocol-Lattice/research-agent/pkg/server"
	"github.com/Protocol-Lattice/research-agent/pkg/tunnel"
)

func serveCmd() *cobra.Command {
	var withTunnel bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if withTunnel {
				cfg.Tunnel.Enabled = true
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
	cmd.Flags().BoolVar(&withTunnel, "tunnel", false, "expose the server through an ngrok tunnel")
	return cmd
}

func runServe(ctx context.Context) error {
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := server.New(server.Options{
		Agent:       a.agent,
		Parser:      a.parser,
		Logger:      logger,
		Metrics:     a.metrics,
		Gatherer:    a.registry,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
	})
	if err != nil {
		return err
	}

	var ln net.Listener
	if cfg.Tunnel.Enabled {
		tl, err := tunnel.Listen(ctx, cfg.Tunnel)
		if err != nil {
			return err
		}
		logger.Info().Str("url", tl.URL()).Msg("public tunnel ready")
		ln = tl
	} else {
		ln, err = net.Listen("tcp", cfg.Addr())
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Addr(), err)
		}
		logger.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	}
	return srv.Serve(ctx, ln)
}
