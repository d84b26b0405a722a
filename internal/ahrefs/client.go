// Package ahrefs is the client for the Ahrefs backlink-analytics API.
// All queries are GET requests under a versioned base path with a static
// Bearer key. Every endpoint requires an explicit select list of fields
// and takes a default sort expression.
package ahrefs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AraikT/mcp-seo/internal/apierr"
)

const (
	defaultBaseURL = "https://api.ahrefs.com/v3"
	requestTimeout = 60 * time.Second

	// DefaultLimit is the result cap applied when the caller passes none.
	DefaultLimit = 100

	// Per-endpoint default sort expressions.
	DefaultRefdomainsOrder = "domain_rating:desc"
	DefaultBacklinksOrder  = "domain_rating_source:desc"
	DefaultOrganicOrder    = "best_position:asc"

	refdomainsSelect = "domain,domain_rating,links_to_target,first_seen,last_seen,traffic_domain"
	backlinksSelect  = "url_from,url_to,domain_rating_source,domain_rating_target,traffic,traffic_domain,anchor,name_source,name_target,noindex,page_size,positions,title,url_rating_source"
	organicSelect    = "keyword,best_position,best_position_url,keyword_country,keyword_difficulty,last_update,sum_traffic,volume,volume_desktop_pct,volume_mobile_pct"
)

// Client talks to the Ahrefs API. Credentials are immutable after
// construction.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client. An empty API key is a configuration error,
// reported before any network call is attempted.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, apierr.New(apierr.KindConfig, "Ahrefs API key not found")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromEnv creates a Client from AHREFS_API_KEY.
func NewFromEnv(opts ...Option) (*Client, error) {
	return New(os.Getenv("AHREFS_API_KEY"), opts...)
}

// Rows is a decoded result list. Provider rows are kept as-is under the
// endpoint's key; counts are computed locally from the slice length.
type Rows []map[string]any

// do performs one GET request and classifies the transport outcome,
// returning the raw 200 body.
func (c *Client) do(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u := c.baseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apierr.Newf(apierr.KindUnexpected, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.New(apierr.KindTransport, "No internet connection or API unavailable").
			WithDetails(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.New(apierr.KindTransport, "No internet connection or API unavailable").
			WithDetails(err.Error())
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, apierr.New(apierr.KindAuth, "Invalid API key").WithDetails(string(body))
	case http.StatusForbidden:
		return nil, apierr.New(apierr.KindForbidden, "Insufficient access permissions or credits")
	case http.StatusTooManyRequests:
		// No backoff or retry here: the caller decides whether to try
		// again.
		return nil, apierr.New(apierr.KindRateLimit, "Request limit exceeded")
	default:
		return nil, apierr.Newf(apierr.KindProvider, "API error %d", resp.StatusCode).
			WithDetails(string(body))
	}
}

// list fetches an endpoint and extracts the row list stored under key.
func (c *Client) list(ctx context.Context, endpoint, key string, params url.Values) (Rows, error) {
	body, err := c.do(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, apierr.New(apierr.KindShape, "unexpected response shape from Ahrefs API").
			WithDetails(err.Error())
	}
	raw, ok := decoded[key]
	if !ok || string(raw) == "null" {
		return nil, apierr.Newf(apierr.KindShape, "response is missing the %q list", key).
			WithDetails(truncate(string(body), 500))
	}
	var rows Rows
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, apierr.Newf(apierr.KindShape, "unexpected %q list shape", key).
			WithDetails(err.Error())
	}
	return rows, nil
}

func baseParams(target string, limit int, orderBy, selectList string) url.Values {
	if limit <= 0 {
		limit = DefaultLimit
	}
	params := url.Values{}
	params.Set("target", target)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order_by", orderBy)
	params.Set("select", selectList)
	return params
}

// Refdomains returns referring domains for a target domain, sorted by
// DefaultRefdomainsOrder unless overridden.
func (c *Client) Refdomains(ctx context.Context, target string, limit int, orderBy string) (Rows, error) {
	if orderBy == "" {
		orderBy = DefaultRefdomainsOrder
	}
	return c.list(ctx, "site-explorer/refdomains", "refdomains",
		baseParams(target, limit, orderBy, refdomainsSelect))
}

// Backlinks returns backlinks for a target domain, sorted by
// DefaultBacklinksOrder unless overridden.
func (c *Client) Backlinks(ctx context.Context, target string, limit int, orderBy string) (Rows, error) {
	if orderBy == "" {
		orderBy = DefaultBacklinksOrder
	}
	return c.list(ctx, "site-explorer/all-backlinks", "backlinks",
		baseParams(target, limit, orderBy, backlinksSelect))
}

// OrganicKeywords returns organic keywords for a target domain on the
// given date (today when empty), sorted by DefaultOrganicOrder unless
// overridden.
func (c *Client) OrganicKeywords(ctx context.Context, target string, limit int, orderBy, date string) (Rows, error) {
	if orderBy == "" {
		orderBy = DefaultOrganicOrder
	}
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	params := baseParams(target, limit, orderBy, organicSelect)
	params.Set("date", date)
	return c.list(ctx, "site-explorer/organic-keywords", "keywords", params)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
