// Package tools holds the tools the research agent can call by directive.
// Every tool takes one string argument and answers with a string.
package tools

import (
	"context"
	"net/http"
	"time"
)

// Generator is the slice of a model client the model-backed tools need.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

func httpClient(c *http.Client, timeout time.Duration) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: timeout}
}
