package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

type GeminiLLM struct {
	Client *genai.Client
	Model  string
}

func NewGeminiLLM(ctx context.Context, apiKey, model string) (*GeminiLLM, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: missing api key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client, Model: model}, nil
}

func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.Client.GenerativeModel(g.Model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", geminiError("generate", err)
	}
	if blockedResponse(resp) {
		return "", ErrContentBlocked
	}
	text := responseText(resp)
	if text == "" && (resp == nil || len(resp.Candidates) == 0) {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

func (g *GeminiLLM) GenerateStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	model := g.Client.GenerativeModel(g.Model)
	cs := model.StartChat()
	cs.History = geminiHistory(req.History)

	parts := []genai.Part{genai.Text(inlineTextFiles(req.Prompt, req.Files))}
	for _, f := range req.Files {
		if mt := geminiMediaMIME(normalizeMIME(f.Name, f.MIME)); mt != "" && len(f.Data) > 0 {
			parts = append(parts, genai.Blob{MIMEType: mt, Data: f.Data})
		}
	}

	it := cs.SendMessageStream(ctx, parts...)
	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		var full strings.Builder
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				send(ctx, ch, StreamChunk{Done: true, FullText: full.String()})
				return
			}
			if err != nil {
				send(ctx, ch, StreamChunk{Done: true, FullText: full.String(), Err: geminiError("stream", err)})
				return
			}
			if blockedResponse(resp) {
				send(ctx, ch, StreamChunk{Done: true, FullText: full.String(), Err: ErrContentBlocked})
				return
			}
			delta := responseText(resp)
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if !send(ctx, ch, StreamChunk{Delta: delta}) {
				return
			}
		}
	}()
	return ch, nil
}

func (g *GeminiLLM) Close() error {
	if g == nil || g.Client == nil {
		return nil
	}
	return g.Client.Close()
}

func geminiHistory(history []Message) []*genai.Content {
	merged := mergeHistory(history)
	out := make([]*genai.Content, 0, len(merged))
	for _, m := range merged {
		out = append(out, &genai.Content{Role: m.Role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return out
}

func geminiError(op string, err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return fmt.Errorf("gemini %s: %w: %v", op, ErrContentBlocked, err)
	}
	return fmt.Errorf("gemini %s: %w", op, err)
}

func blockedResponse(resp *genai.GenerateContentResponse) bool {
	if resp == nil {
		return false
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return true
	}
	for _, c := range resp.Candidates {
		if c != nil && c.FinishReason == genai.FinishReasonSafety {
			return true
		}
	}
	return false
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// geminiMediaMIME filters to the inline media types Gemini accepts.
// Return "" to skip attaching.
func geminiMediaMIME(mt string) string {
	switch mt {
	case "image/png", "image/jpeg", "image/webp", "image/heic", "image/heif":
		return mt
	default:
		return ""
	}
}
