// Package registry maps tool names, prompt names, and resource URIs to
// the sub-service connection that serves them. The registry is built once
// during startup and is read-only afterwards.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AraikT/mcp-seo/internal/config"
)

// Status is a sub-service connection lifecycle state.
type Status string

const (
	StatusUninitialized Status = "UNINITIALIZED"
	StatusConnecting    Status = "CONNECTING"
	StatusReady         Status = "READY"
	StatusFailed        Status = "FAILED"
)

// Connection is the subset of the MCP client the registry dispatches
// through. Tests substitute fakes.
type Connection interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	ListResources(ctx context.Context, req mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
	ReadResource(ctx context.Context, req mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)
	Close() error
}

// ToolEntry is one registered tool with its owning service.
type ToolEntry struct {
	Service string
	Tool    mcp.Tool
}

// PromptEntry is one registered prompt with its owning service.
type PromptEntry struct {
	Service string
	Prompt  mcp.Prompt
}

// Registry is the shared name-to-connection mapping. It is append-only
// during Connect and read-only during the session; duplicates silently
// overwrite.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]Connection
	statuses    map[string]Status
	tools       []ToolEntry
	prompts     []PromptEntry
	toolOwner   map[string]string
	promptOwner map[string]string
	uriOwner    map[string]string
	uriOrder    []string
	logf        func(format string, args ...any)
}

// New creates an empty Registry. logf receives connection progress lines;
// nil discards them.
func New(logf func(format string, args ...any)) *Registry {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Registry{
		connections: map[string]Connection{},
		statuses:    map[string]Status{},
		toolOwner:   map[string]string{},
		promptOwner: map[string]string{},
		uriOwner:    map[string]string{},
		logf:        logf,
	}
}

// Dialer opens a connection to one configured sub-service. The default
// dialer launches the service over stdio.
type Dialer func(ctx context.Context, name string, spec config.ServerSpec) (Connection, error)

// StdioDialer starts the service process and completes the MCP handshake.
func StdioDialer(ctx context.Context, name string, spec config.ServerSpec) (Connection, error) {
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}
	cli, err := mcpclient.NewStdioMCPClient(spec.Command, env, spec.Args...)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "seo-chat", Version: "1.0.0"}
	if _, err := cli.Initialize(ctx, initReq); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("initialize %s: %w", name, err)
	}
	return cli, nil
}

// ConnectAll connects every configured sub-service and registers what it
// advertises. A failure on one service is logged and skipped; the others
// still connect.
func (r *Registry) ConnectAll(ctx context.Context, cfg *config.ServerConfig, dial Dialer) {
	if dial == nil {
		dial = StdioDialer
	}
	for _, name := range cfg.Names() {
		r.setStatus(name, StatusConnecting)
		conn, err := dial(ctx, name, cfg.Servers[name])
		if err != nil {
			r.setStatus(name, StatusFailed)
			r.logf("failed to connect to %s: %v", name, err)
			continue
		}
		if err := r.register(ctx, name, conn); err != nil {
			r.setStatus(name, StatusFailed)
			r.logf("failed to introspect %s: %v", name, err)
			_ = conn.Close()
			continue
		}
		r.setStatus(name, StatusReady)
	}
}

// register lists the service's tools, prompts, and resources and records
// each by name/URI.
func (r *Registry) register(ctx context.Context, name string, conn Connection) error {
	tools, err := conn.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[name] = conn
	for _, tool := range tools.Tools {
		r.tools = append(r.tools, ToolEntry{Service: name, Tool: tool})
		r.toolOwner[tool.Name] = name
	}

	// Prompts and resources are optional capabilities; a service that
	// offers neither still registers its tools.
	if prompts, err := conn.ListPrompts(ctx, mcp.ListPromptsRequest{}); err == nil {
		for _, prompt := range prompts.Prompts {
			r.prompts = append(r.prompts, PromptEntry{Service: name, Prompt: prompt})
			r.promptOwner[prompt.Name] = name
		}
	}
	if resources, err := conn.ListResources(ctx, mcp.ListResourcesRequest{}); err == nil {
		for _, res := range resources.Resources {
			if _, seen := r.uriOwner[res.URI]; !seen {
				r.uriOrder = append(r.uriOrder, res.URI)
			}
			r.uriOwner[res.URI] = name
		}
	}
	return nil
}

func (r *Registry) setStatus(name string, status Status) {
	r.mu.Lock()
	r.statuses[name] = status
	r.mu.Unlock()
}

// ServiceStatus reports a sub-service's lifecycle state.
func (r *Registry) ServiceStatus(name string) Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if status, ok := r.statuses[name]; ok {
		return status
	}
	return StatusUninitialized
}

// Tools lists every registered tool across services, in registration order.
func (r *Registry) Tools() []ToolEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolEntry, len(r.tools))
	copy(out, r.tools)
	return out
}

// Prompts lists every registered prompt across services.
func (r *Registry) Prompts() []PromptEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PromptEntry, len(r.prompts))
	copy(out, r.prompts)
	return out
}

// CallTool dispatches a tool call to the owning connection.
func (r *Registry) CallTool(ctx context.Context, tool string, args map[string]any) (*mcp.CallToolResult, string, error) {
	conn, service, ok := r.lookup(r.toolOwner, tool)
	if !ok {
		return nil, "", fmt.Errorf("tool %q not found", tool)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args
	res, err := conn.CallTool(ctx, req)
	return res, service, err
}

// GetPrompt dispatches a prompt request to the owning connection.
func (r *Registry) GetPrompt(ctx context.Context, prompt string, args map[string]string) (*mcp.GetPromptResult, error) {
	conn, _, ok := r.lookup(r.promptOwner, prompt)
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", prompt)
	}
	req := mcp.GetPromptRequest{}
	req.Params.Name = prompt
	req.Params.Arguments = args
	return conn.GetPrompt(ctx, req)
}

// ReadResource resolves a resource URI to its owning connection and reads
// it. When no exact URI is registered, URIs under the same scheme are
// tried in registration order and the first owner handles the read; this
// loose fallback covers templated URIs like papers://{topic}.
func (r *Registry) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	conn, _, ok := r.lookup(r.uriOwner, uri)
	if !ok {
		conn, ok = r.schemeFallback(uri)
	}
	if !ok {
		return nil, fmt.Errorf("resource %q not found", uri)
	}
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return conn.ReadResource(ctx, req)
}

func (r *Registry) lookup(owner map[string]string, key string) (Connection, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	service, ok := owner[key]
	if !ok {
		return nil, "", false
	}
	conn, ok := r.connections[service]
	return conn, service, ok
}

func (r *Registry) schemeFallback(uri string) (Connection, bool) {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, registered := range r.uriOrder {
		if strings.HasPrefix(registered, scheme+"://") {
			conn, ok := r.connections[r.uriOwner[registered]]
			return conn, ok
		}
	}
	return nil, false
}

// Close closes every connection.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, conn := range r.connections {
		if err := conn.Close(); err != nil {
			r.logf("close %s: %v", name, err)
		}
	}
	r.connections = map[string]Connection{}
}
