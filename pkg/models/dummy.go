package models

import (
	"context"
	"fmt"
	"strings"
)

// DummyLLM is a lightweight model implementation useful for local testing without API calls.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyLLM{Prefix: prefix}
}

// Generate echoes the last non-empty prompt line behind the prefix.
func (d *DummyLLM) Generate(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("%s %s", d.Prefix, lastLine(prompt)), nil
}

// GenerateStream emits the Generate reply one word at a time.
func (d *DummyLLM) GenerateStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	reply := fmt.Sprintf("%s %s", d.Prefix, lastLine(req.Prompt))
	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		words := strings.SplitAfter(reply, " ")
		for _, w := range words {
			if !send(ctx, ch, StreamChunk{Delta: w}) {
				return
			}
		}
		send(ctx, ch, StreamChunk{Done: true, FullText: reply})
	}()
	return ch, nil
}

func lastLine(prompt string) string {
	lines := strings.Split(prompt, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if candidate := strings.TrimSpace(lines[i]); candidate != "" {
			return candidate
		}
	}
	return "<empty prompt>"
}

var _ Agent = (*DummyLLM)(nil)
