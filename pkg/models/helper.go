package models

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

var (
	mimeExtMap = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".heic": "image/heic",
		".heif": "image/heif",
		".txt":  "text/plain",
		".md":   "text/markdown",
		".csv":  "text/csv",
		".json": "application/json",
		".yaml": "application/x-yaml",
		".yml":  "application/x-yaml",
		".xml":  "application/xml",
	}

	mimeAliasMap = map[string]string{
		"image/jpg":   "image/jpeg",
		"image/pjpeg": "image/jpeg",
		"image/x-png": "image/png",
	}
)

// ProviderConfig selects and configures a concrete provider.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint (Ollama host, OpenAI-compatible gateway).
	BaseURL string
	// Timeout bounds every outbound call. Zero disables the bound.
	Timeout time.Duration
}

// NewLLMProvider returns a concrete Agent for cfg.Provider.
func NewLLMProvider(ctx context.Context, cfg ProviderConfig) (Agent, error) {
	var (
		llm Agent
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gemini", "google":
		llm, err = NewGeminiLLM(ctx, cfg.APIKey, cfg.Model)
	case "openai":
		llm = NewOpenAILLM(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "anthropic", "claude":
		llm = NewAnthropicLLM(cfg.APIKey, cfg.Model)
	case "ollama":
		llm, err = NewOllamaLLM(cfg.BaseURL, cfg.Model)
	case "dummy":
		llm = NewDummyLLM("")
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		llm = WithTimeout(llm, cfg.Timeout)
	}
	return llm, nil
}

// Close releases provider resources when the provider holds any.
func Close(a Agent) error {
	if c, ok := a.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Collect drains a stream into its full text.
func Collect(ctx context.Context, ch <-chan StreamChunk) (string, error) {
	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return b.String(), ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return b.String(), nil
			}
			if chunk.Err != nil {
				return b.String(), chunk.Err
			}
			b.WriteString(chunk.Delta)
		}
	}
}

type timeoutAgent struct {
	inner   Agent
	timeout time.Duration
}

// WithTimeout bounds each Generate call, and each stream from start to
// end, by d.
func WithTimeout(a Agent, d time.Duration) Agent {
	return &timeoutAgent{inner: a, timeout: d}
}

func (t *timeoutAgent) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, prompt)
}

func (t *timeoutAgent) GenerateStream(ctx context.Context, req StreamRequest) (<-chan StreamChunk, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	in, err := t.inner.GenerateStream(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}
	out := make(chan StreamChunk, 16)
	go func() {
		defer cancel()
		defer close(out)
		for {
			select {
			case chunk, ok := <-in:
				if !ok {
					// A provider may drop its error chunk once ctx is done.
					failStream(parent, ctx, out)
					return
				}
				select {
				case out <- chunk:
				case <-ctx.Done():
					failStream(parent, ctx, out)
					return
				}
				if chunk.Err != nil || chunk.Done {
					return
				}
			case <-ctx.Done():
				failStream(parent, ctx, out)
				return
			}
		}
	}()
	return out, nil
}

// failStream reports an expired call as an error chunk. The send blocks
// until the consumer reads it or the caller's own context ends.
func failStream(parent, ctx context.Context, out chan<- StreamChunk) {
	err := ctx.Err()
	if err == nil {
		return
	}
	select {
	case out <- StreamChunk{Done: true, Err: err}:
	case <-parent.Done():
	}
}

func (t *timeoutAgent) Close() error { return Close(t.inner) }

// mergeHistory drops empty turns and folds consecutive turns of the same
// role together; chat APIs require strictly alternating roles.
func mergeHistory(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, m := range history {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		role := m.Role
		if role != RoleModel {
			role = RoleUser
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content += "\n\n" + text
			continue
		}
		out = append(out, Message{Role: role, Content: text})
	}
	return out
}

// normalizeMIME fixes alias MIME types and falls back to the file extension.
func normalizeMIME(name, m string) string {
	raw := strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	if alias, ok := mimeAliasMap[raw]; ok {
		return alias
	}
	if raw != "" && strings.Contains(raw, "/") && !strings.HasSuffix(raw, "/") && raw != "application/octet-stream" {
		return raw
	}
	ext := strings.ToLower(filepath.Ext(name))
	if mt, ok := mimeExtMap[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		return strings.TrimSpace(mt)
	}
	return raw
}

func isImageMIME(m string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(m)), "image/")
}

func isTextMIME(m string) bool {
	m = strings.ToLower(strings.TrimSpace(m))
	if strings.HasPrefix(m, "text/") {
		return true
	}
	switch m {
	case "application/json", "application/xml", "application/x-yaml", "application/yaml":
		return true
	}
	return false
}

// inlineTextFiles appends text attachments to the prompt; binary files are
// left to the provider's native media path.
func inlineTextFiles(prompt string, files []File) string {
	var b strings.Builder
	b.WriteString(prompt)
	for i, f := range files {
		mt := normalizeMIME(f.Name, f.MIME)
		if !isTextMIME(mt) || len(f.Data) == 0 {
			continue
		}
		title := strings.TrimSpace(f.Name)
		if title == "" {
			title = fmt.Sprintf("file_%d", i+1)
		}
		fmt.Fprintf(&b, "\n\n<<<FILE %s [%s]>>>\n%s\n<<<END FILE %s>>>", title, mt, f.Data, title)
	}
	return b.String()
}

// send delivers chunk unless ctx ends first.
func send(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
