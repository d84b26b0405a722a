// Package topvisor is the client for the Topvisor rank-tracking API.
// All queries are POST requests with a JSON payload under a fixed base
// path, authenticated with a static bearer key and a User-Id header.
// Responses are decoded once, here, into typed records; callers never see
// raw provider JSON except for the documented passthrough endpoints.
package topvisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/AraikT/mcp-seo/internal/apierr"
)

const (
	defaultBaseURL = "https://api.topvisor.com/v2/json/get"
	requestTimeout = 60 * time.Second
)

// Client talks to the Topvisor API. Credentials are immutable after
// construction.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userID     string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Tests point this at an
// httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client. An empty API key is a configuration error: it is
// reported before any network call is attempted.
func New(apiKey, userID string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, apierr.New(apierr.KindConfig, "Topvisor API key not found")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		userID:     userID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromEnv creates a Client from TOPVISOR_API_KEY and TOPVISOR_USER_ID.
func NewFromEnv(opts ...Option) (*Client, error) {
	return New(os.Getenv("TOPVISOR_API_KEY"), os.Getenv("TOPVISOR_USER_ID"), opts...)
}

// apiResponse is the outermost Topvisor response shape. A body can carry
// either a result or a provider-level error, never both.
type apiResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *flexString     `json:"error"`
	Detail *flexString     `json:"details"`
}

// do performs one POST request and classifies the transport outcome. On
// success it returns the decoded outer response; every failure path
// returns a classified *apierr.Error.
func (c *Client) do(ctx context.Context, endpoint string, payload any) (*apiResponse, error) {
	body, err := c.doRaw(ctx, endpoint, payload)
	if err != nil {
		return nil, err
	}
	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, apierr.New(apierr.KindShape, "unexpected response shape from Topvisor API").
			WithDetails(err.Error())
	}
	if decoded.Error != nil {
		e := apierr.New(apierr.KindProvider, decoded.Error.String())
		if decoded.Detail != nil {
			e = e.WithDetails(decoded.Detail.String())
		}
		return nil, e
	}
	return &decoded, nil
}

// doRaw performs one POST request and returns the raw 200 body. The
// regions export endpoint uses this directly because it answers with
// semicolon-delimited CSV text instead of JSON.
func (c *Client) doRaw(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apierr.Newf(apierr.KindUnexpected, "encode request payload: %v", err)
	}

	url := c.baseURL + "/" + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, apierr.Newf(apierr.KindUnexpected, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Id", c.userID)
	req.Header.Set("Authorization", "bearer "+c.apiKey)

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

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, apierr.New(apierr.KindAuth, "Invalid API key").WithDetails(string(body))
	case resp.StatusCode == http.StatusForbidden:
		return nil, apierr.New(apierr.KindForbidden, "Insufficient access permissions")
	default:
		return nil, apierr.Newf(apierr.KindProvider, "API error %d", resp.StatusCode).
			WithDetails(string(body))
	}
}

// result extracts the result payload from a response, treating a missing
// or null result as a shape error when data was expected.
func (r *apiResponse) result() (json.RawMessage, error) {
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return nil, apierr.New(apierr.KindShape, "API returned result=null (no data for the request)")
	}
	return r.Result, nil
}

// Projects returns the account's project list.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	resp, err := c.do(ctx, "projects_2/projects", nil)
	if err != nil {
		return nil, err
	}
	raw, err := resp.result()
	if err != nil {
		return nil, err
	}
	var items []rawProject
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apierr.New(apierr.KindShape, "unexpected projects shape").WithDetails(err.Error())
	}
	out := make([]Project, 0, len(items))
	for _, item := range items {
		out = append(out, item.normalize())
	}
	return out, nil
}

// Keywords returns project keywords, optionally filtered by folder or group.
func (c *Client) Keywords(ctx context.Context, projectID int64, folderID, groupID *int64) ([]Keyword, error) {
	payload := map[string]any{"project_id": projectID}
	if folderID != nil {
		payload["folder_id"] = *folderID
	}
	if groupID != nil {
		payload["group_id"] = *groupID
	}
	resp, err := c.do(ctx, "keywords_2/keywords", payload)
	if err != nil {
		return nil, err
	}
	raw, err := resp.result()
	if err != nil {
		return nil, err
	}
	var items []rawKeyword
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apierr.New(apierr.KindShape, "unexpected keywords shape").WithDetails(err.Error())
	}
	out := make([]Keyword, 0, len(items))
	for _, item := range items {
		out = append(out, item.normalize())
	}
	return out, nil
}

// KeywordsRaw returns the undecoded keywords response for diagnostics.
func (c *Client) KeywordsRaw(ctx context.Context, projectID int64) (json.RawMessage, error) {
	body, err := c.doRaw(ctx, "keywords_2/keywords", map[string]any{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Competitors returns the project competitor list.
func (c *Client) Competitors(ctx context.Context, projectID int64) ([]Competitor, error) {
	resp, err := c.do(ctx, "projects_2/competitors", map[string]any{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	raw, err := resp.result()
	if err != nil {
		return nil, err
	}
	var items []rawCompetitor
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apierr.New(apierr.KindShape, "unexpected competitors shape").WithDetails(err.Error())
	}
	out := make([]Competitor, 0, len(items))
	for _, item := range items {
		out = append(out, item.normalize())
	}
	return out, nil
}

// KeywordFolders returns the project keyword folder tree.
func (c *Client) KeywordFolders(ctx context.Context, projectID int64) ([]Folder, error) {
	resp, err := c.do(ctx, "keywords_2/folders", map[string]any{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	raw, err := resp.result()
	if err != nil {
		return nil, err
	}
	var items []rawFolder
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apierr.New(apierr.KindShape, "unexpected folders shape").WithDetails(err.Error())
	}
	out := make([]Folder, 0, len(items))
	for _, item := range items {
		out = append(out, item.normalize())
	}
	return out, nil
}

// KeywordGroups returns the project keyword groups, optionally scoped to
// one folder.
func (c *Client) KeywordGroups(ctx context.Context, projectID int64, folderID *int64) ([]Group, error) {
	payload := map[string]any{"project_id": projectID}
	if folderID != nil {
		payload["folder_id"] = *folderID
	}
	resp, err := c.do(ctx, "keywords_2/groups", payload)
	if err != nil {
		return nil, err
	}
	raw, err := resp.result()
	if err != nil {
		return nil, err
	}
	var items []rawGroup
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apierr.New(apierr.KindShape, "unexpected groups shape").WithDetails(err.Error())
	}
	out := make([]Group, 0, len(items))
	for _, item := range items {
		out = append(out, item.normalize())
	}
	return out, nil
}

// PositionsSummary returns the provider's position summary for the period.
// The summary block is passed through undecoded: its shape varies with the
// project configuration.
func (c *Client) PositionsSummary(ctx context.Context, projectID int64, date1, date2 string) (json.RawMessage, error) {
	date1, date2 = defaultPeriod(date1, date2)
	resp, err := c.do(ctx, "positions_2/summary", map[string]any{
		"project_id": projectID,
		"date1":      date1,
		"date2":      date2,
	})
	if err != nil {
		return nil, err
	}
	return resp.result()
}

// Balance returns account balance information.
func (c *Client) Balance(ctx context.Context) (*Balance, error) {
	resp, err := c.do(ctx, "bank_2/info", nil)
	if err != nil {
		return nil, err
	}
	raw, err := resp.result()
	if err != nil {
		return nil, err
	}
	return decodeBalance(raw)
}

// Period fills empty period bounds with the default reporting window,
// "7 days ago".."today". Exposed so callers can echo the effective period.
func Period(date1, date2 string) (string, string) {
	return defaultPeriod(date1, date2)
}

// defaultPeriod fills empty period bounds with "7 days ago".."today".
func defaultPeriod(date1, date2 string) (string, string) {
	const layout = "2006-01-02"
	if date1 == "" {
		date1 = time.Now().AddDate(0, 0, -7).Format(layout)
	}
	if date2 == "" {
		date2 = time.Now().Format(layout)
	}
	return date1, date2
}

// flexString decodes a JSON string, number, or bool into its text form.
// The Topvisor API is inconsistent about numeric identifiers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(trimmed)
	return nil
}

func (f *flexString) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// ptr returns the value as a plain string pointer, nil when absent.
func (f *flexString) ptr() *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}

var _ fmt.Stringer = (*flexString)(nil)
