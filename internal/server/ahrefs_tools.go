package server

// In this file: backlink-analytics tool definitions and handlers.

import (
	"context"
	"os"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/AraikT/mcp-seo/internal/apierr"
	"github.com/AraikT/mcp-seo/internal/envelope"
)

// ─── check_ahrefs_setup ───────────────────────────────────────────────────────

func (s *Server) toolCheckAhrefsSetup() mcpsrv.ServerTool {
	tool := mcplib.NewTool("check_ahrefs_setup",
		mcplib.WithDescription("Verify that Ahrefs credentials are configured and the API is reachable. Returns per-check results and a status of success, warning (key set but unreachable), or error (key missing)."),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleCheckAhrefsSetup}
}

func (s *Server) handleCheckAhrefsSetup(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	checks := map[string]any{
		"env_file":       fileExists(".env"),
		"api_key_set":    os.Getenv("AHREFS_API_KEY") != "",
		"api_connection": false,
	}

	client, err := s.newAhrefs()
	if err != nil {
		e := envelope.Errorf(apierr.KindOf(err), "%s", apierr.MessageOf(err)).
			WithHelp("Set AHREFS_API_KEY in the environment or .env file.").
			WithField("checks", checks)
		return resultEnvelope(e), nil
	}

	if _, err := client.Refdomains(ctx, "ahrefs.com", 1, ""); err != nil {
		s.logger.WarnContext(ctx, "ahrefs setup check failed", "error", err)
		e := envelope.Warning("API key is set but the connection check failed: "+apierr.MessageOf(err),
			map[string]any{"checks": checks})
		return resultEnvelope(e), nil
	}

	checks["api_connection"] = true
	return resultEnvelope(envelope.Success(map[string]any{"checks": checks})), nil
}

// ─── get_ahrefs_refdomains ────────────────────────────────────────────────────

func (s *Server) toolAhrefsRefdomains() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_ahrefs_refdomains",
		mcplib.WithDescription("Referring domains for a target domain, sorted by domain rating descending by default."),
		mcplib.WithString("target",
			mcplib.Description("Domain to analyze, e.g. example.com."),
			mcplib.Required(),
		),
		mcplib.WithNumber("limit", mcplib.Description("Maximum rows to return. Defaults to 100.")),
		mcplib.WithString("order_by", mcplib.Description("Sort expression, e.g. domain_rating:desc.")),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleAhrefsRefdomains}
}

func (s *Server) handleAhrefsRefdomains(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	target, ok := stringArg(req, "target")
	if !ok || target == "" {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "target is required")), nil
	}
	orderBy, _ := stringArg(req, "order_by")

	client, err := s.newAhrefs()
	if err != nil {
		return resultEnvelope(failure(err).WithField("target", target)), nil
	}
	rows, err := client.Refdomains(ctx, target, intArg(req, "limit", 0), orderBy)
	if err != nil {
		return resultEnvelope(failure(err).WithField("target", target)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"target":      target,
		"refdomains":  rows,
		"total_count": len(rows),
	})), nil
}

// ─── get_ahrefs_backlinks ─────────────────────────────────────────────────────

func (s *Server) toolAhrefsBacklinks() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_ahrefs_backlinks",
		mcplib.WithDescription("Backlinks pointing at a target domain, sorted by source domain rating descending by default."),
		mcplib.WithString("target",
			mcplib.Description("Domain to analyze, e.g. example.com."),
			mcplib.Required(),
		),
		mcplib.WithNumber("limit", mcplib.Description("Maximum rows to return. Defaults to 100.")),
		mcplib.WithString("order_by", mcplib.Description("Sort expression, e.g. domain_rating_source:desc.")),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleAhrefsBacklinks}
}

func (s *Server) handleAhrefsBacklinks(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	target, ok := stringArg(req, "target")
	if !ok || target == "" {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "target is required")), nil
	}
	orderBy, _ := stringArg(req, "order_by")

	client, err := s.newAhrefs()
	if err != nil {
		return resultEnvelope(failure(err).WithField("target", target)), nil
	}
	rows, err := client.Backlinks(ctx, target, intArg(req, "limit", 0), orderBy)
	if err != nil {
		return resultEnvelope(failure(err).WithField("target", target)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"target":      target,
		"backlinks":   rows,
		"total_count": len(rows),
	})), nil
}

// ─── get_ahrefs_organic_keywords ──────────────────────────────────────────────

func (s *Server) toolAhrefsOrganicKeywords() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_ahrefs_organic_keywords",
		mcplib.WithDescription("Organic keywords a target domain ranks for on a given date, sorted by best position ascending by default."),
		mcplib.WithString("target",
			mcplib.Description("Domain to analyze, e.g. example.com."),
			mcplib.Required(),
		),
		mcplib.WithNumber("limit", mcplib.Description("Maximum rows to return. Defaults to 100.")),
		mcplib.WithString("order_by", mcplib.Description("Sort expression, e.g. best_position:asc.")),
		mcplib.WithString("date", mcplib.Description("Snapshot date, YYYY-MM-DD. Defaults to today.")),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleAhrefsOrganicKeywords}
}

func (s *Server) handleAhrefsOrganicKeywords(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	target, ok := stringArg(req, "target")
	if !ok || target == "" {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "target is required")), nil
	}
	orderBy, _ := stringArg(req, "order_by")
	date, _ := stringArg(req, "date")

	client, err := s.newAhrefs()
	if err != nil {
		return resultEnvelope(failure(err).WithField("target", target)), nil
	}
	rows, err := client.OrganicKeywords(ctx, target, intArg(req, "limit", 0), orderBy, date)
	if err != nil {
		return resultEnvelope(failure(err).WithField("target", target)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"target":      target,
		"keywords":    rows,
		"total_count": len(rows),
		"unique_keywords": envelope.CountDistinct(rows, func(row map[string]any) string {
			keyword, _ := row["keyword"].(string)
			return keyword
		}),
	})), nil
}
