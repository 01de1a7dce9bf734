package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

const defaultOllamaHost = "http://localhost:11434"

type OllamaLLM struct {
	Client *ollama.Client
	Model  string
}

func NewOllamaLLM(host, model string) (*OllamaLLM, error) {
	if strings.TrimSpace(host) == "" {
		host = defaultOllamaHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	c := ollama.NewClient(u, &http.Client{Timeout: 120 * time.Second})
	return &OllamaLLM{Client: c, Model: model}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	var text strings.Builder
	stream := false
	req := &ollama.ChatRequest{
		Model:    o.Model,
		Messages: []ollama.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
	}
	if err := o.Client.Chat(ctx, req, func(r ollama.ChatResponse) error {
		text.WriteString(r.Message.Content)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return text.String(), nil
}

func (o *OllamaLLM) GenerateStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	chatReq := &ollama.ChatRequest{Model: o.Model, Messages: ollamaMessages(req)}
	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		var full strings.Builder
		err := o.Client.Chat(ctx, chatReq, func(r ollama.ChatResponse) error {
			delta := r.Message.Content
			if delta == "" {
				return nil
			}
			full.WriteString(delta)
			if !send(ctx, ch, StreamChunk{Delta: delta}) {
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			send(ctx, ch, StreamChunk{Done: true, FullText: full.String(), Err: fmt.Errorf("ollama stream: %w", err)})
			return
		}
		send(ctx, ch, StreamChunk{Done: true, FullText: full.String()})
	}()
	return ch, nil
}

func ollamaMessages(req StreamRequest) []ollama.Message {
	var msgs []ollama.Message
	for _, m := range mergeHistory(req.History) {
		role := "user"
		if m.Role == RoleModel {
			role = "assistant"
		}
		msgs = append(msgs, ollama.Message{Role: role, Content: m.Content})
	}
	last := ollama.Message{Role: "user", Content: inlineTextFiles(req.Prompt, req.Files)}
	for _, f := range req.Files {
		if isImageMIME(normalizeMIME(f.Name, f.MIME)) && len(f.Data) > 0 {
			last.Images = append(last.Images, ollama.ImageData(f.Data))
		}
	}
	return append(msgs, last)
}
