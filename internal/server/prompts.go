package server

// In this file: prompt registration.

import (
	"context"
	"fmt"
	"strconv"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
)

func (s *Server) registerPrompts(srv *mcpsrv.MCPServer) {
	prompt := mcplib.NewPrompt("generate_search_prompt",
		mcplib.WithPromptDescription("Generate a prompt for an LLM to find and discuss academic papers on a specific topic."),
		mcplib.WithArgument("topic",
			mcplib.ArgumentDescription("Topic to research."),
			mcplib.RequiredArgument(),
		),
		mcplib.WithArgument("num_papers",
			mcplib.ArgumentDescription("Number of papers to search for. Defaults to 5."),
		),
	)
	srv.AddPrompt(prompt, s.handleGenerateSearchPrompt)
}

func (s *Server) handleGenerateSearchPrompt(_ context.Context, req mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	numPapers := 5
	if text := req.Params.Arguments["num_papers"]; text != "" {
		n, err := strconv.Atoi(text)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("num_papers must be a positive integer, got %q", text)
		}
		numPapers = n
	}

	text := searchPromptText(topic, numPapers)
	return mcplib.NewGetPromptResult(
		fmt.Sprintf("Research prompt for %q", topic),
		[]mcplib.PromptMessage{
			mcplib.NewPromptMessage(mcplib.RoleUser, mcplib.NewTextContent(text)),
		},
	), nil
}

func searchPromptText(topic string, numPapers int) string {
	return fmt.Sprintf(`Search for %d academic papers about '%s' using the search_papers tool.

Follow these instructions:
1. First, search for papers using search_papers(topic='%s', max_results=%d)
2. For each paper found, extract and organize the following information:
   - Paper title
   - Authors
   - Publication date
   - Brief summary of the key findings
   - Main contributions or innovations
   - Methodologies used
   - Relevance to the topic '%s'

3. Provide a comprehensive summary that includes:
   - Overview of the current state of research in '%s'
   - Common themes and trends across the papers
   - Key research gaps or areas for future investigation
   - Most impactful or influential papers in this area

4. Organize your findings in a clear, structured format with headings and bullet points for easy readability.

Please present both detailed information about each paper and a high-level synthesis of the research landscape in %s.`,
		numPapers, topic, topic, numPapers, topic, topic, topic)
}
