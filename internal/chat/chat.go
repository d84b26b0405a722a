// Package chat implements the interactive session loop: it classifies
// each input line as a resource fetch, a slash-command, or a free-text
// LLM query, and routes it through the tool-session registry.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AraikT/mcp-seo/internal/history"
	"github.com/AraikT/mcp-seo/internal/registry"
)

// Session is the interactive chat loop. Single-threaded: one input line
// is fully processed, including nested LLM tool round-trips, before the
// next prompt is shown.
type Session struct {
	reg  *registry.Registry
	hist *history.Store
	llm  *LLM
	in   io.Reader
	out  io.Writer
}

// New creates a Session. hist and llm may be nil; the corresponding
// features degrade with a printed notice instead of failing the loop.
func New(reg *registry.Registry, hist *history.Store, llm *LLM, in io.Reader, out io.Writer) *Session {
	return &Session{reg: reg, hist: hist, llm: llm, in: in, out: out}
}

// Run reads and processes input lines until "quit" or EOF.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "SEO Research Chat. Type /topvisor or /ahrefs for command help, quit to exit.")
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(s.out, "\nQuery: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return nil
		}
		s.handleLine(ctx, line)
	}
}

// handleLine processes one input line. Any residual panic is recovered so
// a single bad line never terminates the session.
func (s *Session) handleLine(ctx context.Context, line string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(s.out, "Error: %v\n", r)
		}
	}()

	var err error
	switch {
	case strings.HasPrefix(line, "@"):
		err = s.fetchResource(ctx, strings.TrimPrefix(line, "@"))
	case strings.HasPrefix(line, "/"):
		err = s.runCommand(ctx, line)
	default:
		err = s.runQuery(ctx, line)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

// fetchResource resolves @folders and @<topic> to papers:// URIs.
func (s *Session) fetchResource(ctx context.Context, name string) error {
	uri := "papers://" + name
	result, err := s.reg.ReadResource(ctx, uri)
	if err != nil {
		return err
	}
	for _, contents := range result.Contents {
		if text, ok := contents.(mcp.TextResourceContents); ok {
			fmt.Fprintln(s.out, text.Text)
		}
	}
	return nil
}

// runQuery forwards free text to the LLM, exposing every registered tool.
func (s *Session) runQuery(ctx context.Context, text string) error {
	if s.llm == nil {
		return fmt.Errorf("LLM queries are unavailable: ANTHROPIC_API_KEY is not set")
	}
	tools := make([]ToolDef, 0)
	for _, entry := range s.reg.Tools() {
		tools = append(tools, ToolDef{
			Name:        entry.Tool.Name,
			Description: entry.Tool.Description,
			InputSchema: entry.Tool.InputSchema,
		})
	}
	return s.llm.Query(ctx, text, tools, s.callTool, s.out)
}

// callTool dispatches one tool call through the registry and records it
// in the call history.
func (s *Session) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	started := time.Now()
	result, service, err := s.reg.CallTool(ctx, name, args)
	s.record(service, name, args, started, err)
	if err != nil {
		return "", err
	}
	return resultText(result), nil
}

func (s *Session) record(service, tool string, args map[string]any, started time.Time, callErr error) {
	if s.hist == nil {
		return
	}
	item := history.Item{
		At:         started,
		Server:     service,
		Tool:       tool,
		Args:       args,
		Success:    callErr == nil,
		DurationMs: time.Since(started).Milliseconds(),
	}
	if callErr != nil {
		item.Error = callErr.Error()
	}
	if err := s.hist.Insert(item); err != nil {
		fmt.Fprintf(s.out, "(history not recorded: %v)\n", err)
	}
}

// resultText joins the text blocks of a tool result.
func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// runCommand parses a slash-command line and dispatches it.
func (s *Session) runCommand(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	command, args := fields[0], fields[1:]

	switch command {
	case "/prompts":
		return s.listPrompts()
	case "/prompt":
		return s.runPrompt(ctx, args)
	case "/topvisor":
		s.printTopvisorHelp()
		return nil
	case "/ahrefs":
		s.printAhrefsHelp()
		return nil
	case "/setup":
		return s.invoke(ctx, "check_topvisor_setup", nil)
	case "/ahrefs_setup":
		return s.invoke(ctx, "check_ahrefs_setup", nil)
	case "/projects":
		return s.invoke(ctx, "get_topvisor_projects", nil)
	case "/keywords":
		return s.keywordsCommand(ctx, args)
	case "/positions":
		return s.positionsCommand(ctx, args)
	case "/competitors":
		return s.projectCommand(ctx, "get_topvisor_competitors", args,
			"usage: /competitors <project_id>")
	case "/balance":
		return s.invoke(ctx, "get_topvisor_balance", nil)
	case "/refdomains":
		return s.domainCommand(ctx, "get_ahrefs_refdomains", args,
			"usage: /refdomains <domain> [limit] [order_by]")
	case "/backlinks":
		return s.domainCommand(ctx, "get_ahrefs_backlinks", args,
			"usage: /backlinks <domain> [limit] [order_by]")
	case "/organic":
		return s.organicCommand(ctx, args)
	case "/history":
		return s.historyCommand(args)
	default:
		return fmt.Errorf("unknown command %s (try /topvisor or /ahrefs for help)", command)
	}
}

// invoke calls a tool and prints its envelope text.
func (s *Session) invoke(ctx context.Context, tool string, args map[string]any) error {
	text, err := s.callTool(ctx, tool, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, text)
	return nil
}

func (s *Session) keywordsCommand(ctx context.Context, args []string) error {
	const usage = "usage: /keywords <project_id> [folder_id] [group_id]"
	if len(args) < 1 || len(args) > 3 {
		return fmt.Errorf("%s", usage)
	}
	callArgs := map[string]any{}
	names := []string{"project_id", "folder_id", "group_id"}
	for i, arg := range args {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q (%s)", names[i], arg, usage)
		}
		callArgs[names[i]] = n
	}
	return s.invoke(ctx, "get_topvisor_keywords", callArgs)
}

func (s *Session) positionsCommand(ctx context.Context, args []string) error {
	const usage = "usage: /positions <project_id> [date1] [date2]"
	if len(args) < 1 || len(args) > 3 {
		return fmt.Errorf("%s", usage)
	}
	projectID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("project_id must be an integer, got %q (%s)", args[0], usage)
	}
	callArgs := map[string]any{"project_id": projectID}
	if len(args) > 1 {
		callArgs["date1"] = args[1]
	}
	if len(args) > 2 {
		callArgs["date2"] = args[2]
	}
	return s.invoke(ctx, "get_topvisor_positions_history", callArgs)
}

func (s *Session) projectCommand(ctx context.Context, tool string, args []string, usage string) error {
	if len(args) != 1 {
		return fmt.Errorf("%s", usage)
	}
	projectID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("project_id must be an integer, got %q (%s)", args[0], usage)
	}
	return s.invoke(ctx, tool, map[string]any{"project_id": projectID})
}

func (s *Session) domainCommand(ctx context.Context, tool string, args []string, usage string) error {
	if len(args) < 1 || len(args) > 3 {
		return fmt.Errorf("%s", usage)
	}
	callArgs := map[string]any{"target": args[0]}
	if len(args) > 1 {
		limit, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("limit must be an integer, got %q (%s)", args[1], usage)
		}
		callArgs["limit"] = limit
	}
	if len(args) > 2 {
		callArgs["order_by"] = args[2]
	}
	return s.invoke(ctx, tool, callArgs)
}

func (s *Session) organicCommand(ctx context.Context, args []string) error {
	const usage = "usage: /organic <domain> [limit] [order_by] [date]"
	if len(args) < 1 || len(args) > 4 {
		return fmt.Errorf("%s", usage)
	}
	callArgs := map[string]any{"target": args[0]}
	if len(args) > 1 {
		limit, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("limit must be an integer, got %q (%s)", args[1], usage)
		}
		callArgs["limit"] = limit
	}
	if len(args) > 2 {
		callArgs["order_by"] = args[2]
	}
	if len(args) > 3 {
		callArgs["date"] = args[3]
	}
	return s.invoke(ctx, "get_ahrefs_organic_keywords", callArgs)
}

func (s *Session) historyCommand(args []string) error {
	const usage = "usage: /history [limit]"
	if s.hist == nil {
		return fmt.Errorf("call history is unavailable")
	}
	limit := 20
	if len(args) > 1 {
		return fmt.Errorf("%s", usage)
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("limit must be an integer, got %q (%s)", args[0], usage)
		}
		limit = n
	}

	items, err := s.hist.List("", "", limit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(s.out, "No calls recorded yet.")
		return nil
	}
	for _, item := range items {
		status := "ok"
		if !item.Success {
			status = "failed: " + item.Error
		}
		fmt.Fprintf(s.out, "%s  %s/%s  %dms  %s\n",
			item.At.Local().Format("2006-01-02 15:04:05"), item.Server, item.Tool, item.DurationMs, status)
	}
	return nil
}

func (s *Session) listPrompts() error {
	prompts := s.reg.Prompts()
	if len(prompts) == 0 {
		fmt.Fprintln(s.out, "No prompts available.")
		return nil
	}
	for _, entry := range prompts {
		fmt.Fprintf(s.out, "%s (%s)\n", entry.Prompt.Name, entry.Service)
		if entry.Prompt.Description != "" {
			fmt.Fprintf(s.out, "  %s\n", entry.Prompt.Description)
		}
		for _, arg := range entry.Prompt.Arguments {
			required := ""
			if arg.Required {
				required = " (required)"
			}
			fmt.Fprintf(s.out, "  - %s%s: %s\n", arg.Name, required, arg.Description)
		}
	}
	return nil
}

// runPrompt fetches a prompt by name with key=value arguments and feeds
// the generated text into the LLM conversation.
func (s *Session) runPrompt(ctx context.Context, args []string) error {
	const usage = "usage: /prompt <name> [key=value ...]"
	if len(args) < 1 {
		return fmt.Errorf("%s", usage)
	}
	name := args[0]
	promptArgs := map[string]string{}
	for _, pair := range args[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("malformed argument %q (%s)", pair, usage)
		}
		promptArgs[key] = value
	}

	result, err := s.reg.GetPrompt(ctx, name, promptArgs)
	if err != nil {
		return err
	}
	var text strings.Builder
	for _, msg := range result.Messages {
		if content, ok := msg.Content.(mcp.TextContent); ok {
			text.WriteString(content.Text)
			text.WriteString("\n")
		}
	}
	if text.Len() == 0 {
		return fmt.Errorf("prompt %q produced no text", name)
	}
	return s.runQuery(ctx, text.String())
}

func (s *Session) printTopvisorHelp() {
	fmt.Fprint(s.out, `Topvisor commands:
  /setup                                   check credentials and connectivity
  /projects                                list projects
  /keywords <project_id> [folder] [group]  list keywords
  /positions <project_id> [date1] [date2]  keyword position history
  /competitors <project_id>                list competitors
  /balance                                 account balance
`)
}

func (s *Session) printAhrefsHelp() {
	fmt.Fprint(s.out, `Ahrefs commands:
  /ahrefs_setup                            check credentials and connectivity
  /refdomains <domain> [limit] [order_by]  referring domains
  /backlinks <domain> [limit] [order_by]   backlinks
  /organic <domain> [limit] [order_by] [date]  organic keywords
`)
}
