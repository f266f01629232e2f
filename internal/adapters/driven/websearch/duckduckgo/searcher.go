// Package duckduckgo provides the agent's web search tool backed by the
// DuckDuckGo HTML endpoint.
package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/ray/internal/core/domain"
	"github.com/custodia-labs/ray/internal/core/ports/driven"
	"github.com/custodia-labs/ray/internal/logger"
)

// Ensure Searcher implements the interface.
var _ driven.Tool = (*Searcher)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://html.duckduckgo.com/html/"
	DefaultMaxResults = 5
	DefaultTimeout    = 10 * time.Second

	// DefaultRate allows one search per second with no bursting.
	DefaultRate = 1.0

	userAgent = "Mozilla/5.0 (compatible; ray/1.0)"
)

// NoResultsAnswer is returned when a search finds nothing.
const NoResultsAnswer = "I couldn't find any relevant information on the web."

// Config holds configuration for the searcher.
type Config struct {
	// BaseURL is the HTML search endpoint (default: https://html.duckduckgo.com/html/).
	BaseURL string

	// MaxResults caps the results returned (default: 5).
	MaxResults int

	// Timeout is the request timeout (default: 10s).
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing searches (default: 1).
	RequestsPerSecond float64
}

// Result is one organic search result.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher runs web searches against DuckDuckGo.
type Searcher struct {
	client     *http.Client
	baseURL    string
	maxResults int
	limiter    *rate.Limiter
}

// New creates a new Searcher.
func New(cfg Config) *Searcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRate
	}

	return &Searcher{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		maxResults: cfg.MaxResults,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// Invoke searches the web for input and summarises the top results as a
// numbered list with one web citation per result.
func (s *Searcher) Invoke(ctx context.Context, input string, _ []domain.Turn) (domain.ToolResult, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return domain.ToolResult{}, fmt.Errorf("duckduckgo: %w: empty query", domain.ErrInvalidInput)
	}

	results, err := s.Search(ctx, query)
	if err != nil {
		return domain.ToolResult{}, err
	}
	if len(results) == 0 {
		logger.Debug("web search: no results for %q", query)
		return domain.ToolResult{Answer: NoResultsAnswer}, nil
	}

	parts := make([]string, len(results))
	citations := make([]domain.Citation, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("%d. **%s**: %s", i+1, r.Title, r.Snippet)
		citations[i] = domain.Citation{
			Kind:    domain.CitationWeb,
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Snippet,
		}
	}
	logger.Debug("web search: %d results for %q", len(results), query)

	return domain.ToolResult{
		Answer:    strings.Join(parts, "\n\n"),
		Citations: citations,
	}, nil
}

// Search fetches the results page for query and returns at most MaxResults
// organic results. Ads are skipped.
func (s *Searcher) Search(ctx context.Context, query string) ([]Result, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("duckduckgo: rate limiter: %w", err)
	}

	endpoint := s.baseURL + "?" + url.Values{"q": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusAccepted:
		// DuckDuckGo answers 202 with a challenge page when throttling.
		return nil, fmt.Errorf("duckduckgo: %w (status %d)", domain.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("duckduckgo: status %d: %s", resp.StatusCode, string(body))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse results: %w", err)
	}
	return parseResults(doc, s.maxResults), nil
}

// parseResults collects result blocks in document order.
func parseResults(doc *html.Node, limit int) []Result {
	var results []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result") {
			if hasClass(n, "result--ad") {
				return
			}
			if r, ok := parseResult(n); ok {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

func parseResult(n *html.Node) (Result, bool) {
	var r Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a") && r.URL == "":
				r.Title = textContent(n)
				r.URL = unwrapRedirect(attr(n, "href"))
				return
			case hasClass(n, "result__snippet") && r.Snippet == "":
				r.Snippet = textContent(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return r, r.Title != "" && r.URL != ""
}

// unwrapRedirect returns the target of a DuckDuckGo /l/?uddg= redirect link,
// or href unchanged when it is not one.
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
