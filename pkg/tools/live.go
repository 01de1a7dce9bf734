package tools

import (
	"context"
	"fmt"
)

// LiveSearch answers a query with a single completion from a model that
// has live web grounding.
type LiveSearch struct {
	Model Generator
}

func NewLiveSearch(model Generator) *LiveSearch { return &LiveSearch{Model: model} }

func (l *LiveSearch) Name() string { return "gemini_live_search" }
func (l *LiveSearch) Description() string {
	return "Asks a live-grounded model for up-to-date facts. Input is the question."
}

func (l *LiveSearch) Run(ctx context.Context, query string) (string, error) {
	if l.Model == nil {
		return "", fmt.Errorf("live search model is not configured")
	}
	out, err := l.Model.Generate(ctx, query)
	if err != nil {
		return fmt.Sprintf("Error during live query: %v", err), nil
	}
	return out, nil
}
