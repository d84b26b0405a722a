package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/AraikT/mcp-seo/internal/ahrefs"
	"github.com/AraikT/mcp-seo/internal/arxiv"
	"github.com/AraikT/mcp-seo/internal/envelope"
	"github.com/AraikT/mcp-seo/internal/papers"
	"github.com/AraikT/mcp-seo/internal/topvisor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(httptestDiscard{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type httptestDiscard struct{}

func (httptestDiscard) Write(p []byte) (int, error) { return len(p), nil }

func newAhrefsTestServer(t *testing.T, handler http.HandlerFunc) *Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(papers.NewStore(t.TempDir()), discardLogger(),
		WithAhrefsFactory(func() (*ahrefs.Client, error) {
			return ahrefs.New("test-key", ahrefs.WithBaseURL(srv.URL))
		}))
}

func callRequest(args map[string]any) mcplib.CallToolRequest {
	req := mcplib.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func parseResult(t *testing.T, result *mcplib.CallToolResult) (envelope.Envelope, map[string]any) {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("got %d content blocks, want 1", len(result.Content))
	}
	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	parsed, err := envelope.Parse([]byte(text.Text))
	if err != nil {
		t.Fatalf("result is not an envelope: %v\n%s", err, text.Text)
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(text.Text), &raw); err != nil {
		t.Fatal(err)
	}
	return parsed, raw
}

func TestRefdomainsEndToEndSuccess(t *testing.T) {
	s := newAhrefsTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"refdomains":[{"domain":"blog.example.org","domain_rating":55}]}`))
	})

	result, err := s.handleAhrefsRefdomains(context.Background(), callRequest(map[string]any{"target": "example.com"}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	parsed, raw := parseResult(t, result)
	if parsed.Status() != envelope.StatusSuccess {
		t.Fatalf("status = %s:\n%v", parsed.Status(), raw)
	}
	if raw["target"] != "example.com" {
		t.Errorf("target = %v", raw["target"])
	}
	if raw["total_count"] != float64(1) {
		t.Errorf("total_count = %v", raw["total_count"])
	}
	rows, ok := raw["refdomains"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("refdomains = %v", raw["refdomains"])
	}
}

func TestRefdomainsInvalidKey(t *testing.T) {
	s := newAhrefsTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	})

	result, err := s.handleAhrefsRefdomains(context.Background(), callRequest(map[string]any{"target": "example.com"}))
	if err != nil {
		t.Fatalf("handler must not propagate the failure, got %v", err)
	}
	parsed, raw := parseResult(t, result)
	if parsed.Status() != envelope.StatusError {
		t.Fatalf("status = %s", parsed.Status())
	}
	if raw["message"] != "API error: Invalid API key" {
		t.Errorf("message = %v", raw["message"])
	}
	if raw["error_kind"] != "authentication" {
		t.Errorf("error_kind = %v", raw["error_kind"])
	}
	if _, present := raw["refdomains"]; present {
		t.Error("error envelope must not carry payload rows")
	}
}

func TestRefdomainsMissingTarget(t *testing.T) {
	s := New(papers.NewStore(t.TempDir()), discardLogger())
	result, err := s.handleAhrefsRefdomains(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	parsed, raw := parseResult(t, result)
	if parsed.Status() != envelope.StatusError || raw["error_kind"] != "argument" {
		t.Errorf("envelope = %v", raw)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	s := New(papers.NewStore(t.TempDir()), discardLogger(),
		WithTopvisorFactory(func() (*topvisor.Client, error) {
			return topvisor.New("", "")
		}))

	result, err := s.handleTopvisorProjects(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	parsed, raw := parseResult(t, result)
	if parsed.Status() != envelope.StatusError {
		t.Fatalf("status = %s", parsed.Status())
	}
	if raw["error_kind"] != "configuration" {
		t.Errorf("error_kind = %v", raw["error_kind"])
	}
	if raw["message"] != "API error: Topvisor API key not found" {
		t.Errorf("message = %v", raw["message"])
	}
}

func TestPositionsHistoryEnvelope(t *testing.T) {
	providerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"result":{"keywords":[
			{"name":"seo audit","positionsData":{
				"2025-08-15:1:33":{"position":"5"},
				"2025-08-16:1:33":{"position":"--"}
			}},
			{"name":"site check","positionsData":{"2025-08-15:1:33":{"position":"12"}}}
		]}}`))
	}))
	t.Cleanup(providerSrv.Close)

	s := New(papers.NewStore(t.TempDir()), discardLogger(),
		WithTopvisorFactory(func() (*topvisor.Client, error) {
			return topvisor.New("test-key", "42", topvisor.WithBaseURL(providerSrv.URL))
		}))

	result, err := s.handleTopvisorPositionsHistory(context.Background(),
		callRequest(map[string]any{"project_id": float64(1)}))
	if err != nil {
		t.Fatal(err)
	}
	parsed, raw := parseResult(t, result)
	if parsed.Status() != envelope.StatusSuccess {
		t.Fatalf("status = %s: %v", parsed.Status(), raw)
	}
	if raw["total_count"] != float64(3) {
		t.Errorf("total_count = %v", raw["total_count"])
	}
	if raw["unique_keywords"] != float64(2) {
		t.Errorf("unique_keywords = %v", raw["unique_keywords"])
	}
	dateRange, _ := raw["date_range"].(map[string]any)
	if dateRange["start"] != "2025-08-15" || dateRange["end"] != "2025-08-16" {
		t.Errorf("date_range = %v", dateRange)
	}
}

func TestCheckSetupWarningWhenUnreachable(t *testing.T) {
	t.Setenv("AHREFS_API_KEY", "set-but-unreachable")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	s := New(papers.NewStore(t.TempDir()), discardLogger(),
		WithAhrefsFactory(func() (*ahrefs.Client, error) {
			return ahrefs.New("set-but-unreachable", ahrefs.WithBaseURL(srv.URL))
		}))

	result, err := s.handleCheckAhrefsSetup(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	parsed, raw := parseResult(t, result)
	if parsed.Status() != envelope.StatusWarning {
		t.Fatalf("status = %s: %v", parsed.Status(), raw)
	}
	checks, _ := raw["checks"].(map[string]any)
	if checks["api_key_set"] != true || checks["api_connection"] != false {
		t.Errorf("checks = %v", checks)
	}
}

func TestSearchPapersAndExtractInfo(t *testing.T) {
	const feed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Sample Paper</title>
    <summary>Abstract.</summary>
    <published>2023-01-17T14:00:00Z</published>
    <author><name>Alice</name></author>
  </entry>
</feed>`
	arxivSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(feed))
	}))
	t.Cleanup(arxivSrv.Close)

	s := New(papers.NewStore(t.TempDir()), discardLogger(),
		WithArxivClient(arxiv.New(arxiv.WithBaseURL(arxivSrv.URL))))

	result, err := s.handleSearchPapers(context.Background(),
		callRequest(map[string]any{"topic": "transformers"}))
	if err != nil {
		t.Fatal(err)
	}
	parsed, raw := parseResult(t, result)
	if parsed.Status() != envelope.StatusSuccess {
		t.Fatalf("status = %s: %v", parsed.Status(), raw)
	}
	ids, _ := raw["paper_ids"].([]any)
	if len(ids) != 1 || ids[0] != "2301.07041v1" {
		t.Fatalf("paper_ids = %v", raw["paper_ids"])
	}

	info, err := s.handleExtractInfo(context.Background(),
		callRequest(map[string]any{"paper_id": "2301.07041v1"}))
	if err != nil {
		t.Fatal(err)
	}
	parsed, raw = parseResult(t, info)
	if parsed.Status() != envelope.StatusSuccess || raw["title"] != "Sample Paper" {
		t.Errorf("extract_info = %v", raw)
	}

	missing, err := s.handleExtractInfo(context.Background(),
		callRequest(map[string]any{"paper_id": "0000.00000"}))
	if err != nil {
		t.Fatal(err)
	}
	parsed, _ = parseResult(t, missing)
	if parsed.Status() != envelope.StatusError {
		t.Errorf("missing paper status = %s", parsed.Status())
	}
}

func TestResourceHandlers(t *testing.T) {
	store := papers.NewStore(t.TempDir())
	s := New(store, discardLogger())

	req := mcplib.ReadResourceRequest{}
	req.Params.URI = "papers://folders"
	contents, err := s.readFolders(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcplib.TextResourceContents)
	if text.MIMEType != "text/markdown" {
		t.Errorf("mime = %q", text.MIMEType)
	}

	req.Params.URI = "papers://unknown_topic"
	contents, err = s.readTopic(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	body := contents[0].(mcplib.TextResourceContents).Text
	if body == "" {
		t.Error("topic resource must render a not-found body")
	}
}

func TestGenerateSearchPrompt(t *testing.T) {
	s := New(papers.NewStore(t.TempDir()), discardLogger())

	req := mcplib.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"topic": "graph embeddings", "num_papers": "3"}
	result, err := s.handleGenerateSearchPrompt(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("got %d messages", len(result.Messages))
	}
	content, ok := result.Messages[0].Content.(mcplib.TextContent)
	if !ok {
		t.Fatalf("content is %T", result.Messages[0].Content)
	}
	for _, want := range []string{"graph embeddings", "search_papers", "max_results=3"} {
		if !strings.Contains(content.Text, want) {
			t.Errorf("prompt text missing %q", want)
		}
	}

	req.Params.Arguments = map[string]string{"topic": "x", "num_papers": "zero"}
	if _, err := s.handleGenerateSearchPrompt(context.Background(), req); err == nil {
		t.Error("malformed num_papers must fail")
	}

	req.Params.Arguments = map[string]string{}
	if _, err := s.handleGenerateSearchPrompt(context.Background(), req); err == nil {
		t.Error("missing topic must fail")
	}
}
