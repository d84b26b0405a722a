package server

// In this file: rank-tracker tool definitions and handlers.

import (
	"context"
	"os"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/AraikT/mcp-seo/internal/apierr"
	"github.com/AraikT/mcp-seo/internal/envelope"
	"github.com/AraikT/mcp-seo/internal/topvisor"
)

// ─── check_topvisor_setup ─────────────────────────────────────────────────────

func (s *Server) toolCheckTopvisorSetup() mcpsrv.ServerTool {
	tool := mcplib.NewTool("check_topvisor_setup",
		mcplib.WithDescription("Verify that Topvisor credentials are configured and the API is reachable. Returns per-check results and a status of success, warning (key set but unreachable), or error (key missing)."),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleCheckTopvisorSetup}
}

func (s *Server) handleCheckTopvisorSetup(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	checks := map[string]any{
		"env_file":       fileExists(".env"),
		"api_key_set":    os.Getenv("TOPVISOR_API_KEY") != "",
		"api_connection": false,
	}

	client, err := s.newTopvisor()
	if err != nil {
		e := envelope.Errorf(apierr.KindOf(err), "%s", apierr.MessageOf(err)).
			WithHelp("Set TOPVISOR_API_KEY (and TOPVISOR_USER_ID) in the environment or .env file.").
			WithField("checks", checks)
		return resultEnvelope(e), nil
	}

	projects, err := client.Projects(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "topvisor setup check failed", "error", err)
		e := envelope.Warning("API key is set but the connection check failed: "+apierr.MessageOf(err),
			map[string]any{"checks": checks})
		return resultEnvelope(e), nil
	}

	checks["api_connection"] = true
	return resultEnvelope(envelope.Success(map[string]any{
		"checks":         checks,
		"projects_count": len(projects),
	})), nil
}

// ─── get_topvisor_projects ────────────────────────────────────────────────────

func (s *Server) toolTopvisorProjects() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_projects",
		mcplib.WithDescription("List all Topvisor projects in the account with id, name, url, status, and creation date."),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorProjects}
}

func (s *Server) handleTopvisorProjects(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err)), nil
	}
	projects, err := client.Projects(ctx)
	if err != nil {
		return resultEnvelope(failure(err)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"projects":    projects,
		"total_count": len(projects),
	})), nil
}

// ─── get_topvisor_keywords ────────────────────────────────────────────────────

func (s *Server) toolTopvisorKeywords() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_keywords",
		mcplib.WithDescription("List keywords for a Topvisor project, optionally scoped to one folder or group."),
		mcplib.WithNumber("project_id",
			mcplib.Description("Topvisor project identifier."),
			mcplib.Required(),
		),
		mcplib.WithNumber("folder_id", mcplib.Description("Optional keyword folder filter.")),
		mcplib.WithNumber("group_id", mcplib.Description("Optional keyword group filter.")),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorKeywords}
}

func (s *Server) handleTopvisorKeywords(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID, ok := int64Arg(req, "project_id")
	if !ok {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "project_id is required")), nil
	}
	var folderID, groupID *int64
	if v, ok := int64Arg(req, "folder_id"); ok {
		folderID = &v
	}
	if v, ok := int64Arg(req, "group_id"); ok {
		groupID = &v
	}

	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	keywords, err := client.Keywords(ctx, projectID, folderID, groupID)
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"project_id":  projectID,
		"keywords":    keywords,
		"total_count": len(keywords),
	})), nil
}

// ─── get_topvisor_positions_history ───────────────────────────────────────────

func (s *Server) toolTopvisorPositionsHistory() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_positions_history",
		mcplib.WithDescription(`Keyword position history for a Topvisor project over a date range.

Positions are flattened to one record per keyword, date, and region. A
position of "--" means the keyword did not rank within the tracked depth;
its position_numeric is null and is_not_ranking is true.`),
		mcplib.WithNumber("project_id",
			mcplib.Description("Topvisor project identifier."),
			mcplib.Required(),
		),
		mcplib.WithArray("regions_indexes",
			mcplib.Description(`Region indexes to query, e.g. ["33"]. Defaults to ["33"].`),
		),
		mcplib.WithString("date1", mcplib.Description("Period start, YYYY-MM-DD. Defaults to 7 days ago.")),
		mcplib.WithString("date2", mcplib.Description("Period end, YYYY-MM-DD. Defaults to today.")),
		mcplib.WithNumber("limit", mcplib.Description("Maximum keywords to fetch. Defaults to 100.")),
		mcplib.WithNumber("offset", mcplib.Description("Keyword list offset. Defaults to 0.")),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorPositionsHistory}
}

func (s *Server) handleTopvisorPositionsHistory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID, ok := int64Arg(req, "project_id")
	if !ok {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "project_id is required")), nil
	}
	date1, _ := stringArg(req, "date1")
	date2, _ := stringArg(req, "date2")
	query := &topvisor.PositionsQuery{
		ProjectID:      projectID,
		RegionsIndexes: stringsArg(req, "regions_indexes"),
		Date1:          date1,
		Date2:          date2,
		Limit:          intArg(req, "limit", 0),
		Offset:         intArg(req, "offset", 0),
	}

	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	records, err := client.PositionsHistory(ctx, query)
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}

	start, end := topvisor.DateRange(records)
	return resultEnvelope(envelope.Success(map[string]any{
		"project_id":      projectID,
		"regions_indexes": query.RegionsIndexes,
		"period":          map[string]string{"date1": query.Date1, "date2": query.Date2},
		"positions":       records,
		"total_count":     len(records),
		"unique_keywords": envelope.CountDistinct(records, func(r topvisor.PositionRecord) string { return r.KeywordName }),
		"date_range":      map[string]string{"start": start, "end": end},
	})), nil
}

// ─── get_topvisor_positions_summary ───────────────────────────────────────────

func (s *Server) toolTopvisorPositionsSummary() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_positions_summary",
		mcplib.WithDescription("Provider-computed position summary for a Topvisor project over a period. The summary block is passed through as-is; its shape depends on the project configuration."),
		mcplib.WithNumber("project_id",
			mcplib.Description("Topvisor project identifier."),
			mcplib.Required(),
		),
		mcplib.WithString("date1", mcplib.Description("Period start, YYYY-MM-DD. Defaults to 7 days ago.")),
		mcplib.WithString("date2", mcplib.Description("Period end, YYYY-MM-DD. Defaults to today.")),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorPositionsSummary}
}

func (s *Server) handleTopvisorPositionsSummary(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID, ok := int64Arg(req, "project_id")
	if !ok {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "project_id is required")), nil
	}
	date1, _ := stringArg(req, "date1")
	date2, _ := stringArg(req, "date2")
	date1, date2 = topvisor.Period(date1, date2)

	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	summary, err := client.PositionsSummary(ctx, projectID, date1, date2)
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"project_id": projectID,
		"period":     map[string]string{"date1": date1, "date2": date2},
		"summary":    summary,
	})), nil
}

// ─── get_topvisor_competitors ─────────────────────────────────────────────────

func (s *Server) toolTopvisorCompetitors() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_competitors",
		mcplib.WithDescription("List competitors configured for a Topvisor project."),
		mcplib.WithNumber("project_id",
			mcplib.Description("Topvisor project identifier."),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorCompetitors}
}

func (s *Server) handleTopvisorCompetitors(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID, ok := int64Arg(req, "project_id")
	if !ok {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "project_id is required")), nil
	}
	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	competitors, err := client.Competitors(ctx, projectID)
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"project_id":  projectID,
		"competitors": competitors,
		"total_count": len(competitors),
	})), nil
}

// ─── get_topvisor_regions ─────────────────────────────────────────────────────

func (s *Server) toolTopvisorRegions() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_regions",
		mcplib.WithDescription("List the search engines and regions tracked by a Topvisor project."),
		mcplib.WithNumber("project_id",
			mcplib.Description("Topvisor project identifier."),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorRegions}
}

func (s *Server) handleTopvisorRegions(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID, ok := int64Arg(req, "project_id")
	if !ok {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "project_id is required")), nil
	}
	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	regions, err := client.Regions(ctx, projectID)
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"project_id":  projectID,
		"regions":     regions,
		"total_count": len(regions),
	})), nil
}

// ─── get_topvisor_keyword_folders ─────────────────────────────────────────────

func (s *Server) toolTopvisorKeywordFolders() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_keyword_folders",
		mcplib.WithDescription("List the keyword folder tree of a Topvisor project."),
		mcplib.WithNumber("project_id",
			mcplib.Description("Topvisor project identifier."),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorKeywordFolders}
}

func (s *Server) handleTopvisorKeywordFolders(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID, ok := int64Arg(req, "project_id")
	if !ok {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "project_id is required")), nil
	}
	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	folders, err := client.KeywordFolders(ctx, projectID)
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"project_id":  projectID,
		"folders":     folders,
		"total_count": len(folders),
	})), nil
}

// ─── get_topvisor_keyword_groups ──────────────────────────────────────────────

func (s *Server) toolTopvisorKeywordGroups() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_keyword_groups",
		mcplib.WithDescription("List keyword groups of a Topvisor project, optionally scoped to one folder."),
		mcplib.WithNumber("project_id",
			mcplib.Description("Topvisor project identifier."),
			mcplib.Required(),
		),
		mcplib.WithNumber("folder_id", mcplib.Description("Optional keyword folder filter.")),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorKeywordGroups}
}

func (s *Server) handleTopvisorKeywordGroups(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID, ok := int64Arg(req, "project_id")
	if !ok {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "project_id is required")), nil
	}
	var folderID *int64
	if v, ok := int64Arg(req, "folder_id"); ok {
		folderID = &v
	}
	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	groups, err := client.KeywordGroups(ctx, projectID, folderID)
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"project_id":  projectID,
		"groups":      groups,
		"total_count": len(groups),
	})), nil
}

// ─── get_topvisor_balance ─────────────────────────────────────────────────────

func (s *Server) toolTopvisorBalance() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_balance",
		mcplib.WithDescription("Topvisor account balance, currency, and XML limits."),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorBalance}
}

func (s *Server) handleTopvisorBalance(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err)), nil
	}
	balance, err := client.Balance(ctx)
	if err != nil {
		return resultEnvelope(failure(err)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"balance":      balance.Balance,
		"currency":     balance.Currency,
		"xml_limits":   balance.XMLLimits,
		"account_info": balance.Account,
	})), nil
}

// ─── get_topvisor_project_keywords ────────────────────────────────────────────

func (s *Server) toolTopvisorProjectKeywords() mcpsrv.ServerTool {
	tool := mcplib.NewTool("get_topvisor_project_keywords",
		mcplib.WithDescription("Diagnostic passthrough: the undecoded keywords response for a Topvisor project, useful when the normalized view hides a provider field."),
		mcplib.WithNumber("project_id",
			mcplib.Description("Topvisor project identifier."),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleTopvisorProjectKeywords}
}

func (s *Server) handleTopvisorProjectKeywords(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	projectID, ok := int64Arg(req, "project_id")
	if !ok {
		return resultEnvelope(envelope.Errorf(apierr.KindArgument, "project_id is required")), nil
	}
	client, err := s.newTopvisor()
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	raw, err := client.KeywordsRaw(ctx, projectID)
	if err != nil {
		return resultEnvelope(failure(err).WithField("project_id", projectID)), nil
	}
	return resultEnvelope(envelope.Success(map[string]any{
		"project_id":   projectID,
		"raw_response": raw,
	})), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
