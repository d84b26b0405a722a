package server

// In this file: papers:// resource registration.

import (
	"context"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
)

const markdownMIME = "text/markdown"

func (s *Server) registerResources(srv *mcpsrv.MCPServer) {
	folders := mcplib.NewResource("papers://folders", "Available paper topics",
		mcplib.WithResourceDescription("List of topic folders that contain saved paper metadata."),
		mcplib.WithMIMEType(markdownMIME),
	)
	srv.AddResource(folders, s.readFolders)

	topic := mcplib.NewResourceTemplate("papers://{topic}", "Papers on a topic",
		mcplib.WithTemplateDescription("Saved paper metadata for one topic folder, rendered as markdown."),
		mcplib.WithTemplateMIMEType(markdownMIME),
	)
	srv.AddResourceTemplate(topic, s.readTopic)
}

func (s *Server) readFolders(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return markdownContents(req.Params.URI, s.papers.FoldersMarkdown()), nil
}

func (s *Server) readTopic(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	topic := strings.TrimPrefix(req.Params.URI, "papers://")
	return markdownContents(req.Params.URI, s.papers.TopicMarkdown(topic)), nil
}

func markdownContents(uri, text string) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: markdownMIME,
			Text:     text,
		},
	}
}
