package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultImageURL     = "https://image.pollinations.ai/prompt/"
	defaultImageTimeout = 90 * time.Second
	maxImagePromptRunes = 250
	browserUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// ImageGenerator renders a picture from a text prompt and answers with the
// base64 encoded image bytes.
type ImageGenerator struct {
	Translator Generator
	BaseURL    string
	Client     *http.Client
}

func NewImageGenerator(translator Generator) *ImageGenerator {
	return &ImageGenerator{Translator: translator, BaseURL: DefaultImageURL}
}

func (g *ImageGenerator) Name() string { return "generate_image" }
func (g *ImageGenerator) Description() string {
	return "Draws an image from a description. Input is what the picture should show."
}
func (g *ImageGenerator) StatusLabel() string {
	return "Sketching your idea, this can take a little while..."
}

func (g *ImageGenerator) Run(ctx context.Context, query string) (string, error) {
	prompt := truncateRunes(g.translate(ctx, query), maxImagePromptRunes)

	base := g.BaseURL
	if base == "" {
		base = DefaultImageURL
	}
	endpoint := strings.TrimRight(base, "/") + "/" + url.PathEscape(prompt) + "?nologo=true&width=1024&height=576"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Sprintf("[image request failed: %v]", err), nil
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := httpClient(g.Client, defaultImageTimeout).Do(req)
	if err != nil {
		return fmt.Sprintf("[image request failed: %v]", err), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Sprintf("[image request failed: %d %s]", resp.StatusCode, http.StatusText(resp.StatusCode)), nil
	}
	if !strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "image") {
		return "[image service did not return a valid image]", nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("[image download failed: %v]", err), nil
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// translate asks the model for an English rendering of text. Any failure
// keeps the original text.
func (g *ImageGenerator) translate(ctx context.Context, text string) string {
	if g.Translator == nil {
		return text
	}
	out, err := g.Translator.Generate(ctx, fmt.Sprintf(
		"Translate the following text to English for an image generation AI. Respond with ONLY the translated English text, nothing else.\n\nText: %q", text))
	if err != nil || strings.TrimSpace(out) == "" {
		return text
	}
	return strings.TrimSpace(out)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
