// Package server exposes the SEO data providers and the paper search
// utilities as MCP tools, resources, and prompts.
package server

// In this file: MCP server construction and transport management.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/AraikT/mcp-seo/internal/ahrefs"
	"github.com/AraikT/mcp-seo/internal/apierr"
	"github.com/AraikT/mcp-seo/internal/arxiv"
	"github.com/AraikT/mcp-seo/internal/envelope"
	"github.com/AraikT/mcp-seo/internal/papers"
	"github.com/AraikT/mcp-seo/internal/topvisor"
)

const (
	serverName    = "seo-research"
	serverVersion = "1.0.0"
)

// Server wraps an MCP server over the provider clients and the paper
// store. Provider clients are constructed per call so a missing
// credential surfaces as an error envelope instead of a startup failure.
type Server struct {
	mcp    *mcpsrv.MCPServer
	logger *slog.Logger

	papers *papers.Store
	arxiv  *arxiv.Client

	newTopvisor func() (*topvisor.Client, error)
	newAhrefs   func() (*ahrefs.Client, error)
}

// Option configures a Server.
type Option func(*Server)

// WithTopvisorFactory overrides how Topvisor clients are built. Tests
// point the factory at an httptest server.
func WithTopvisorFactory(f func() (*topvisor.Client, error)) Option {
	return func(s *Server) { s.newTopvisor = f }
}

// WithAhrefsFactory overrides how Ahrefs clients are built.
func WithAhrefsFactory(f func() (*ahrefs.Client, error)) Option {
	return func(s *Server) { s.newAhrefs = f }
}

// WithArxivClient overrides the arXiv client.
func WithArxivClient(c *arxiv.Client) Option {
	return func(s *Server) { s.arxiv = c }
}

// New creates a Server with all tools, resources, and prompts registered.
// It does not start listening until one of the Serve* methods is called.
func New(paperStore *papers.Store, lg *slog.Logger, opts ...Option) *Server {
	if lg == nil {
		lg = slog.Default()
	}
	s := &Server{
		logger:      lg,
		papers:      paperStore,
		arxiv:       arxiv.New(),
		newTopvisor: func() (*topvisor.Client, error) { return topvisor.NewFromEnv() },
		newAhrefs:   func() (*ahrefs.Client, error) { return ahrefs.NewFromEnv() },
	}
	for _, opt := range opts {
		opt(s)
	}

	mcpServer := mcpsrv.NewMCPServer(
		serverName,
		serverVersion,
		mcpsrv.WithInstructions(instructions),
	)
	for _, t := range s.tools() {
		mcpServer.AddTool(t.Tool, t.Handler)
	}
	s.registerResources(mcpServer)
	s.registerPrompts(mcpServer)

	s.mcp = mcpServer
	return s
}

const instructions = `You are connected to an SEO research MCP server.

Available tools cover three areas:
- Topvisor rank tracking: projects, keywords, position history and
  summaries, competitors, regions, account balance.
- Ahrefs backlink analytics: referring domains, backlinks, organic
  keywords for a target domain.
- arXiv paper search: find papers by topic and extract saved metadata.

Every tool returns a JSON envelope with a "status" field ("success",
"error", or "warning"). Counts such as total_count are computed from the
returned data.`

// tools returns all MCP tools that this server exposes.
func (s *Server) tools() []mcpsrv.ServerTool {
	return []mcpsrv.ServerTool{
		s.toolCheckTopvisorSetup(),
		s.toolTopvisorProjects(),
		s.toolTopvisorKeywords(),
		s.toolTopvisorPositionsHistory(),
		s.toolTopvisorPositionsSummary(),
		s.toolTopvisorCompetitors(),
		s.toolTopvisorRegions(),
		s.toolTopvisorKeywordFolders(),
		s.toolTopvisorKeywordGroups(),
		s.toolTopvisorBalance(),
		s.toolTopvisorProjectKeywords(),
		s.toolCheckAhrefsSetup(),
		s.toolAhrefsRefdomains(),
		s.toolAhrefsBacklinks(),
		s.toolAhrefsOrganicKeywords(),
		s.toolSearchPapers(),
		s.toolExtractInfo(),
	}
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := mcpsrv.NewStdioServer(s.mcp)
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	if err := srv.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

// ServeHTTP runs the MCP server as a Streamable HTTP server on addr until
// ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr}
	streamSrv := mcpsrv.NewStreamableHTTPServer(s.mcp,
		mcpsrv.WithStreamableHTTPServer(httpSrv),
	)

	s.logger.InfoContext(ctx, "mcp server listening on http", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := streamSrv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mcp http server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "mcp server shutting down")
		if err := streamSrv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// resultEnvelope serializes an envelope as the tool result text. The
// envelope carries the error status itself, so the MCP-level IsError flag
// stays unset and callers always see the same JSON contract.
func resultEnvelope(e envelope.Envelope) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(e.JSON())
}

// failure wraps a classified error into an error envelope with the
// user-facing "API error:" message prefix.
func failure(err error) envelope.Envelope {
	wrapped := apierr.New(apierr.KindOf(err), "API error: "+apierr.MessageOf(err))
	if details := apierr.DetailsOf(err); details != "" {
		wrapped = wrapped.WithDetails(details)
	}
	return envelope.Failure(wrapped)
}

// stringArg extracts a named string argument from a tool call request.
func stringArg(req mcplib.CallToolRequest, name string) (string, bool) {
	args := req.GetArguments()
	if args == nil {
		return "", false
	}
	v, ok := args[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intArg extracts a named int argument. The protocol serialises numbers
// as float64.
func intArg(req mcplib.CallToolRequest, name string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	v, ok := args[name]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return defaultVal
}

// int64Arg extracts a named integer identifier argument. Returns
// (0, false) when absent or not numeric.
func int64Arg(req mcplib.CallToolRequest, name string) (int64, bool) {
	args := req.GetArguments()
	if args == nil {
		return 0, false
	}
	v, ok := args[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// stringsArg extracts a named string-array argument.
func stringsArg(req mcplib.CallToolRequest, name string) []string {
	args := req.GetArguments()
	if args == nil {
		return nil
	}
	items, ok := args[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
