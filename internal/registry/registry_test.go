package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AraikT/mcp-seo/internal/config"
)

type fakeConnection struct {
	tools     []mcp.Tool
	prompts   []mcp.Prompt
	resources []mcp.Resource

	calledTool   string
	readURI      string
	promptName   string
	closed       bool
	listToolsErr error
}

func (f *fakeConnection) ListTools(context.Context, mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if f.listToolsErr != nil {
		return nil, f.listToolsErr
	}
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeConnection) ListPrompts(context.Context, mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error) {
	return &mcp.ListPromptsResult{Prompts: f.prompts}, nil
}

func (f *fakeConnection) ListResources(context.Context, mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error) {
	return &mcp.ListResourcesResult{Resources: f.resources}, nil
}

func (f *fakeConnection) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.calledTool = req.Params.Name
	return mcp.NewToolResultText("ok"), nil
}

func (f *fakeConnection) GetPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	f.promptName = req.Params.Name
	return &mcp.GetPromptResult{}, nil
}

func (f *fakeConnection) ReadResource(_ context.Context, req mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	f.readURI = req.Params.URI
	return &mcp.ReadResourceResult{}, nil
}

func (f *fakeConnection) Close() error {
	f.closed = true
	return nil
}

func twoServiceConfig() *config.ServerConfig {
	return &config.ServerConfig{Servers: map[string]config.ServerSpec{
		"alpha": {Command: "alpha"},
		"beta":  {Command: "beta"},
	}}
}

func TestConnectAllRegistersEverything(t *testing.T) {
	alpha := &fakeConnection{
		tools:     []mcp.Tool{{Name: "search_papers"}},
		prompts:   []mcp.Prompt{{Name: "generate_search_prompt"}},
		resources: []mcp.Resource{{URI: "papers://folders"}},
	}
	beta := &fakeConnection{tools: []mcp.Tool{{Name: "get_topvisor_projects"}}}
	conns := map[string]Connection{"alpha": alpha, "beta": beta}

	reg := New(nil)
	reg.ConnectAll(context.Background(), twoServiceConfig(),
		func(_ context.Context, name string, _ config.ServerSpec) (Connection, error) {
			return conns[name], nil
		})

	if got := reg.ServiceStatus("alpha"); got != StatusReady {
		t.Errorf("alpha status = %s", got)
	}
	if len(reg.Tools()) != 2 {
		t.Errorf("got %d tools, want 2", len(reg.Tools()))
	}
	if len(reg.Prompts()) != 1 {
		t.Errorf("got %d prompts, want 1", len(reg.Prompts()))
	}

	if _, service, err := reg.CallTool(context.Background(), "search_papers", nil); err != nil || service != "alpha" {
		t.Errorf("CallTool: service=%q err=%v", service, err)
	}
	if alpha.calledTool != "search_papers" {
		t.Errorf("dispatched to wrong connection: %q", alpha.calledTool)
	}
}

func TestConnectAllPartialFailure(t *testing.T) {
	beta := &fakeConnection{tools: []mcp.Tool{{Name: "get_topvisor_projects"}}}

	var logged []string
	reg := New(func(format string, _ ...any) { logged = append(logged, format) })
	reg.ConnectAll(context.Background(), twoServiceConfig(),
		func(_ context.Context, name string, _ config.ServerSpec) (Connection, error) {
			if name == "alpha" {
				return nil, errors.New("spawn failed")
			}
			return beta, nil
		})

	if got := reg.ServiceStatus("alpha"); got != StatusFailed {
		t.Errorf("alpha status = %s", got)
	}
	if got := reg.ServiceStatus("beta"); got != StatusReady {
		t.Errorf("beta status = %s", got)
	}
	if len(reg.Tools()) != 1 {
		t.Errorf("got %d tools, want 1", len(reg.Tools()))
	}
	if len(logged) == 0 {
		t.Error("connection failure was not logged")
	}
}

func TestIntrospectionFailureClosesConnection(t *testing.T) {
	broken := &fakeConnection{listToolsErr: errors.New("no tools for you")}
	reg := New(nil)
	reg.ConnectAll(context.Background(),
		&config.ServerConfig{Servers: map[string]config.ServerSpec{"x": {Command: "x"}}},
		func(context.Context, string, config.ServerSpec) (Connection, error) { return broken, nil })

	if got := reg.ServiceStatus("x"); got != StatusFailed {
		t.Errorf("status = %s", got)
	}
	if !broken.closed {
		t.Error("failed connection must be closed")
	}
}

func TestUnknownStatusIsUninitialized(t *testing.T) {
	reg := New(nil)
	if got := reg.ServiceStatus("nope"); got != StatusUninitialized {
		t.Errorf("status = %s", got)
	}
}

func TestDuplicateToolOverwrites(t *testing.T) {
	alpha := &fakeConnection{tools: []mcp.Tool{{Name: "shared"}}}
	beta := &fakeConnection{tools: []mcp.Tool{{Name: "shared"}}}
	conns := map[string]Connection{"alpha": alpha, "beta": beta}

	reg := New(nil)
	reg.ConnectAll(context.Background(), twoServiceConfig(),
		func(_ context.Context, name string, _ config.ServerSpec) (Connection, error) {
			return conns[name], nil
		})

	// Names connect in sorted order, so beta registers last and wins.
	_, service, err := reg.CallTool(context.Background(), "shared", nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if service != "beta" {
		t.Errorf("owner = %q, want beta", service)
	}
	if len(reg.Tools()) != 2 {
		t.Errorf("registration list is append-only, got %d entries", len(reg.Tools()))
	}
}

func TestResourceSchemeFallback(t *testing.T) {
	alpha := &fakeConnection{resources: []mcp.Resource{{URI: "papers://folders"}}}
	reg := New(nil)
	reg.ConnectAll(context.Background(),
		&config.ServerConfig{Servers: map[string]config.ServerSpec{"alpha": {Command: "a"}}},
		func(context.Context, string, config.ServerSpec) (Connection, error) { return alpha, nil })

	// Exact match.
	if _, err := reg.ReadResource(context.Background(), "papers://folders"); err != nil {
		t.Fatalf("exact read: %v", err)
	}

	// No exact match, same scheme: falls back to the scheme owner.
	if _, err := reg.ReadResource(context.Background(), "papers://machine_learning"); err != nil {
		t.Fatalf("fallback read: %v", err)
	}
	if alpha.readURI != "papers://machine_learning" {
		t.Errorf("read URI = %q", alpha.readURI)
	}

	// Different scheme: not found.
	if _, err := reg.ReadResource(context.Background(), "files://x"); err == nil {
		t.Error("foreign scheme must not fall back")
	}
}

func TestLookupMisses(t *testing.T) {
	reg := New(nil)
	if _, _, err := reg.CallTool(context.Background(), "absent", nil); err == nil {
		t.Error("missing tool must error")
	}
	if _, err := reg.GetPrompt(context.Background(), "absent", nil); err == nil {
		t.Error("missing prompt must error")
	}
}

func TestClose(t *testing.T) {
	alpha := &fakeConnection{tools: []mcp.Tool{{Name: "t"}}}
	reg := New(nil)
	reg.ConnectAll(context.Background(),
		&config.ServerConfig{Servers: map[string]config.ServerSpec{"alpha": {Command: "a"}}},
		func(context.Context, string, config.ServerSpec) (Connection, error) { return alpha, nil })

	reg.Close()
	if !alpha.closed {
		t.Error("Close must close connections")
	}
}
