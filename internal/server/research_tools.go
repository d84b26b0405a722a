package server

// In this file: arXiv paper search tool definitions and handlers.

import (
	"context"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/AraikT/mcp-seo/internal/apierr"
	"github.com/AraikT/mcp-seo/internal/envelope"
)

// ─── search_papers ────────────────────────────────────────────────────────────

func (s *Server) toolSearchPapers() mcpsrv.ServerTool {
	tool := mcplib.NewTool("search_papers",
		mcplib.WithDescription("Search arXiv for papers on a topic and persist their metadata. Returns the arXiv ids of the papers found; use extract_info to read a saved paper's details."),
		mcplib.WithString("topic",
			mcplib.Description("Topic to search for."),
			mcplib.Required(),
		),
		mcplib.WithNumber("max_results", mcplib.Description("Maximum papers to retrieve. Defaults to 5.")),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSearchPapers}
}

func (s *Server) handleSearchPapers(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	topic, ok := stringArg(req, "topic")
	if !ok || topic == "" {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "topic is required")), nil
	}
	maxResults := intArg(req, "max_results", 5)

	found, err := s.arxiv.Search(ctx, topic, maxResults)
	if err != nil {
		return resultEnvelope(failure(err).WithField("topic", topic)), nil
	}

	ids, err := s.papers.Save(topic, found)
	if err != nil {
		return resultEnvelope(failure(err).WithField("topic", topic)), nil
	}

	s.logger.InfoContext(ctx, "papers saved", "topic", topic, "count", len(ids))
	return resultEnvelope(envelope.Success(map[string]any{
		"topic":       topic,
		"paper_ids":   ids,
		"total_count": len(ids),
	})), nil
}

// ─── extract_info ─────────────────────────────────────────────────────────────

func (s *Server) toolExtractInfo() mcpsrv.ServerTool {
	tool := mcplib.NewTool("extract_info",
		mcplib.WithDescription("Look up saved metadata for a paper by its arXiv id across all topic folders."),
		mcplib.WithString("paper_id",
			mcplib.Description("arXiv paper id, e.g. 2301.07041v1."),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleExtractInfo}
}

func (s *Server) handleExtractInfo(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	paperID, ok := stringArg(req, "paper_id")
	if !ok || paperID == "" {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "paper_id is required")), nil
	}

	rec, found := s.papers.Lookup(paperID)
	if !found {
		e := envelope.Errorf(apierr.KindArgument, "no saved information related to paper %s", paperID).
			WithField("paper_id", paperID)
		return resultEnvelope(e), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"paper_id":  paperID,
		"title":     rec.Title,
		"authors":   rec.Authors,
		"summary":   rec.Summary,
		"pdf_url":   rec.PDFURL,
		"published": rec.Published,
	})), nil
}
