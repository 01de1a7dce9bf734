package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultSerperURL     = "https://google.serper.dev/search"
	defaultSerperTimeout = 10 * time.Second
	unknownField         = "Unknown"
	noResultsMessage     = "No relevant information found from web search."
)

var (
	taxCodePattern  = regexp.MustCompile(`(\d{10,13})`)
	representativeR = regexp.MustCompile(`(?i)(?:representative|legal representative|đại diện|đại diện pháp luật): (.+?)(?:-|$)`)
	addressR        = regexp.MustCompile(`(?i)(?:address|địa chỉ): (.+?)(?:-|$)`)
)

// SerperSearch queries Google through serper.dev. Results that mention a
// company tax code are folded into one entity per code; otherwise the top
// five results are returned as title and snippet pairs.
type SerperSearch struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

func NewSerperSearch(apiKey string) *SerperSearch {
	return &SerperSearch{APIKey: apiKey, Endpoint: DefaultSerperURL}
}

func (s *SerperSearch) Name() string { return "serper_search" }
func (s *SerperSearch) Description() string {
	return "Searches the web for current information. Input is the search query."
}
func (s *SerperSearch) StatusLabel() string { return "Searching the web..." }

type serperResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Entity is a company record keyed by tax code.
type Entity struct {
	TaxCode        string `json:"tax_code"`
	Name           string `json:"name"`
	Representative string `json:"representative"`
	Address        string `json:"address"`
	Source         string `json:"source"`
}

type snippetResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func (s *SerperSearch) Run(ctx context.Context, query string) (string, error) {
	results, err := s.search(ctx, query)
	if err != nil {
		return "Error during Serper search: " + err.Error(), nil
	}
	if len(results) == 0 {
		return noResultsMessage, nil
	}
	out, err := formatResults(results)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (s *SerperSearch) search(ctx context.Context, query string) ([]serperResult, error) {
	payload, err := json.Marshal(map[string]any{"q": query, "num": 10})
	if err != nil {
		return nil, err
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultSerperURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(s.Client, defaultSerperTimeout).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	var body struct {
		Organic []serperResult `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body.Organic, nil
}

func formatResults(results []serperResult) (string, error) {
	entities := extractEntities(results)
	var v any = entities
	if len(entities) == 0 {
		top := results
		if len(top) > 5 {
			top = top[:5]
		}
		snippets := make([]snippetResult, 0, len(top))
		for _, r := range top {
			snippets = append(snippets, snippetResult{Title: r.Title, Snippet: r.Snippet})
		}
		v = snippets
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// extractEntities keeps first-seen order of tax codes.
func extractEntities(results []serperResult) []Entity {
	var (
		order []string
		byTax = map[string]*Entity{}
	)
	for _, r := range results {
		m := taxCodePattern.FindStringSubmatch(r.Title + " " + r.Snippet)
		if m == nil {
			continue
		}
		code := m[1]
		ent, ok := byTax[code]
		if !ok {
			name, _, _ := strings.Cut(r.Title, " - ")
			ent = &Entity{TaxCode: code, Name: name, Representative: unknownField, Address: unknownField, Source: r.Link}
			byTax[code] = ent
			order = append(order, code)
		}
		if rm := representativeR.FindStringSubmatch(r.Snippet); rm != nil {
			ent.Representative = strings.TrimSpace(rm[1])
		}
		if am := addressR.FindStringSubmatch(r.Snippet); am != nil {
			ent.Address = strings.TrimSpace(am[1])
		}
	}
	out := make([]Entity, 0, len(order))
	for _, code := range order {
		out = append(out, *byTax[code])
	}
	return out
}
