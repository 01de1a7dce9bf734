// Package tunnel exposes a local HTTP handler on a public ngrok URL.
package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.ngrok.com/ngrok"
	ngrokcfg "golang.ngrok.com/ngrok/config"

	"github.com/Protocol-Lattice/research-agent/pkg/config"
)

// Listener is a public listener with the URL it is reachable at.
type Listener interface {
	net.Listener
	URL() string
}

// Listen opens an ngrok HTTP endpoint. Requests arriving at the returned
// URL are accepted from the listener like any local connection.
func Listen(ctx context.Context, cfg config.TunnelConfig) (Listener, error) {
	if cfg.AuthToken == "" {
		return nil, errors.New("ngrok authtoken is required")
	}
	var opts []ngrokcfg.HTTPEndpointOption
	if cfg.Domain != "" {
		opts = append(opts, ngrokcfg.WithDomain(cfg.Domain))
	}
	ln, err := ngrok.Listen(ctx,
		ngrokcfg.HTTPEndpoint(opts...),
		ngrok.WithAuthtoken(cfg.AuthToken),
	)
	if err != nil {
		return nil, fmt.Errorf("ngrok listen: %w", err)
	}
	return ln, nil
}
