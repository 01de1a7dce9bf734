package models

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicLLM implements Agent over Anthropic's Messages API.
type AnthropicLLM struct {
	Client    *anthropic.Client
	Model     string
	MaxTokens int
}

func NewAnthropicLLM(apiKey, model string) *AnthropicLLM {
	cl := anthropic.NewClient(anthropicopt.WithAPIKey(apiKey))
	return &AnthropicLLM{
		Client:    &cl,
		Model:     model, // e.g. "claude-3-5-sonnet-latest"
		MaxTokens: 4096,
	}
}

func (a *AnthropicLLM) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := a.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic generate: %w", err)
	}
	if msg.StopReason == "refusal" {
		return "", ErrContentBlocked
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return b.String(), nil
}

func (a *AnthropicLLM) GenerateStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	stream := a.Client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: int64(a.MaxTokens),
		Messages:  anthropicMessages(req),
	})

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()
		var full strings.Builder
		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				td, ok := ev.Delta.AsAny().(anthropic.TextDelta)
				if !ok || td.Text == "" {
					continue
				}
				full.WriteString(td.Text)
				if !send(ctx, ch, StreamChunk{Delta: td.Text}) {
					return
				}
			case anthropic.MessageDeltaEvent:
				if ev.Delta.StopReason == "refusal" {
					send(ctx, ch, StreamChunk{Done: true, FullText: full.String(), Err: ErrContentBlocked})
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			send(ctx, ch, StreamChunk{Done: true, FullText: full.String(), Err: fmt.Errorf("anthropic stream: %w", err)})
			return
		}
		send(ctx, ch, StreamChunk{Done: true, FullText: full.String()})
	}()
	return ch, nil
}

func anthropicMessages(req StreamRequest) []anthropic.MessageParam {
	var msgs []anthropic.MessageParam
	for _, m := range mergeHistory(req.History) {
		if m.Role == RoleModel {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
			continue
		}
		msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}
	// The API rejects a leading assistant turn.
	if len(msgs) > 0 && msgs[0].Role == anthropic.MessageParamRoleAssistant {
		msgs = msgs[1:]
	}

	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(inlineTextFiles(req.Prompt, req.Files))}
	for _, f := range req.Files {
		mt := normalizeMIME(f.Name, f.MIME)
		if !isImageMIME(mt) || len(f.Data) == 0 {
			continue
		}
		blocks = append(blocks, anthropic.NewImageBlockBase64(mt, base64.StdEncoding.EncodeToString(f.Data)))
	}
	return append(msgs, anthropic.NewUserMessage(blocks...))
}
