package models

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------- OpenAI -----------------------------------------

type OpenAILLM struct {
	Client *openai.Client
	Model  string
}

// NewOpenAILLM builds a chat client. baseURL may point at any
// OpenAI-compatible gateway; empty keeps the default endpoint.
func NewOpenAILLM(apiKey, model, baseURL string) *OpenAILLM {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAILLM{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (o *OpenAILLM) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonContentFilter {
		return "", ErrContentBlocked
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAILLM) GenerateStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	stream, err := o.Client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.Model,
		Messages: openAIMessages(req),
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()
		var full strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, ch, StreamChunk{Done: true, FullText: full.String()})
				return
			}
			if err != nil {
				send(ctx, ch, StreamChunk{Done: true, FullText: full.String(), Err: fmt.Errorf("openai stream: %w", err)})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			if choice.FinishReason == openai.FinishReasonContentFilter {
				send(ctx, ch, StreamChunk{Done: true, FullText: full.String(), Err: ErrContentBlocked})
				return
			}
			if choice.Delta.Content == "" {
				continue
			}
			full.WriteString(choice.Delta.Content)
			if !send(ctx, ch, StreamChunk{Delta: choice.Delta.Content}) {
				return
			}
		}
	}()
	return ch, nil
}

func openAIMessages(req StreamRequest) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	for _, m := range mergeHistory(req.History) {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	text := inlineTextFiles(req.Prompt, req.Files)
	var parts []openai.ChatMessagePart
	for _, f := range req.Files {
		mt := normalizeMIME(f.Name, f.MIME)
		if !isImageMIME(mt) || len(f.Data) == 0 {
			continue
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(f.Data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	if len(parts) == 0 {
		return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})
	}
	parts = append([]openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: text}}, parts...)
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts})
}
