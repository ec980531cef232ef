// Package search finds a company's website domain via a web search, used as
// the fallback when the company is not in the known-domain table.
package search

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://html.duckduckgo.com/html"

// Client looks up a company's web domain. An empty string with a nil error
// means no plausible domain was found.
type Client interface {
	SearchDomain(ctx context.Context, company string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default search endpoint.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithTimeout sets the overall request timeout. Values <= 0 keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a search client backed by the DuckDuckGo HTML endpoint.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   defaultBaseURL,
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var hrefPattern = regexp.MustCompile(`href="(https?://[^"]+)"`)

// Aggregator and social sites that rank for company queries but are never
// the company's own mail domain.
var skipHosts = []string{
	"duckduckgo", "google", "bing", "yahoo", "wikipedia",
	"linkedin.com", "facebook.com", "twitter.com", "youtube.com",
	"glassdoor", "indeed", "crunchbase", "bloomberg",
}

func (c *httpClient) SearchDomain(ctx context.Context, company string) (string, error) {
	query := url.QueryEscape(company + " official website")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?q="+query, nil)
	if err != nil {
		return "", eris.Wrap(err, "search: create request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "search: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("search: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", eris.Wrap(err, "search: read body")
	}

	return pickDomain(string(body), company), nil
}

// pickDomain scans result links for the first host that looks like the
// company's own site.
func pickDomain(html, company string) string {
	words := companyWords(company)
	matches := hrefPattern.FindAllStringSubmatch(html, 20)

	seen := 0
	for _, m := range matches {
		if seen >= 10 {
			break
		}
		target := resolveRedirect(m[1])
		parsed, err := url.Parse(target)
		if err != nil || parsed.Host == "" {
			continue
		}
		seen++

		host := strings.ToLower(parsed.Host)
		if skipHost(host) {
			continue
		}
		host = strings.TrimPrefix(host, "www.")
		for _, w := range words {
			if strings.Contains(host, w) {
				return host
			}
		}
	}
	return ""
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if uddg := parsed.Query().Get("uddg"); uddg != "" {
		if decoded, err := url.QueryUnescape(uddg); err == nil {
			return decoded
		}
	}
	return raw
}

func skipHost(host string) bool {
	for _, s := range skipHosts {
		if strings.Contains(host, s) {
			return true
		}
	}
	return false
}

// legal suffixes and filler words that never appear in a company's domain
var fillerWords = map[string]bool{
	"inc": true, "llc": true, "ltd": true, "corp": true, "the": true,
	"and": true, "company": true, "group": true, "corporation": true,
}

func companyWords(company string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(company)) {
		w = strings.Trim(w, ".,")
		if len(w) > 2 && !fillerWords[w] {
			words = append(words, w)
		}
	}
	return words
}
