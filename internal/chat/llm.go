package chat

// In this file: the Anthropic Messages API driver. Raw HTTP, no SDK; the
// tool_use loop keeps calling tools until the model answers with plain
// text only.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	llmTimeout       = 120 * time.Second
)

// ToolDef describes one tool offered to the model.
type ToolDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

// message is one conversation turn. Content is either a plain string or a
// list of content blocks.
type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentBlock covers the block types this client sends and receives:
// text, tool_use, and tool_result.
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
	Tools     []ToolDef `json:"tools,omitempty"`
}

type anthropicResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ToolCaller executes one tool invocation requested by the model and
// returns the result text shown back to it.
type ToolCaller func(ctx context.Context, name string, args map[string]any) (string, error)

// LLM drives a conversation with the Anthropic Messages API. The message
// history persists across Query calls so follow-up questions keep context.
type LLM struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	messages   []message
}

// NewLLM creates a driver from the chat settings and ANTHROPIC_API_KEY.
func NewLLM(model string, maxTokens int) (*LLM, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not found")
	}
	return &LLM{
		httpClient: &http.Client{Timeout: llmTimeout},
		baseURL:    anthropicBaseURL,
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
	}, nil
}

// Query sends one user turn and processes the model's response, invoking
// tools through call until the model stops requesting them. Text output
// is streamed turn-by-turn to out.
func (l *LLM) Query(ctx context.Context, userText string, tools []ToolDef, call ToolCaller, out io.Writer) error {
	l.messages = append(l.messages, message{Role: "user", Content: userText})

	for {
		resp, err := l.send(ctx, tools)
		if err != nil {
			return err
		}

		var toolResults []contentBlock
		for _, block := range resp.Content {
			switch block.Type {
			case "text":
				fmt.Fprintln(out, block.Text)
			case "tool_use":
				args := map[string]any{}
				if len(block.Input) > 0 {
					// A malformed input block still gets a tool_result so
					// the conversation stays well-formed.
					_ = json.Unmarshal(block.Input, &args)
				}
				fmt.Fprintf(out, "Calling tool %s with args %v\n", block.Name, args)

				text, err := call(ctx, block.Name, args)
				if err != nil {
					text = fmt.Sprintf("tool %s failed: %v", block.Name, err)
				}
				toolResults = append(toolResults, contentBlock{
					Type:      "tool_result",
					ToolUseID: block.ID,
					Content:   text,
				})
			}
		}

		l.messages = append(l.messages, message{Role: "assistant", Content: resp.Content})
		if len(toolResults) == 0 {
			return nil
		}
		l.messages = append(l.messages, message{Role: "user", Content: toolResults})
	}
}

func (l *LLM) send(ctx context.Context, tools []ToolDef) (*anthropicResponse, error) {
	payload := anthropicRequest{
		Model:     l.model,
		MaxTokens: l.maxTokens,
		Messages:  l.messages,
		Tools:     tools,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode LLM request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build LLM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LLM request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read LLM response: %w", err)
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode LLM response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			return nil, fmt.Errorf("LLM API error (%s): %s", decoded.Error.Type, decoded.Error.Message)
		}
		return nil, fmt.Errorf("LLM API error: HTTP %d", resp.StatusCode)
	}
	return &decoded, nil
}
