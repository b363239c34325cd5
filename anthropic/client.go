package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/sitegen"
)

var _ sitegen.Provider = (*Client)(nil)

// Client talks to the Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request, including reading the streamed body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// New creates a Client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream starts one model turn. The response body is bound to ctx, so
// cancelling ctx unblocks a pending Next.
func (c *Client) Stream(ctx context.Context, req sitegen.ModelRequest) (sitegen.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w: %w", sitegen.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, httpError(resp)
	}
	return newStream(ctx, resp.Body), nil
}

func (c *Client) buildRequest(req sitegen.ModelRequest) apiRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	out := apiRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Stream:      true,
		Messages:    convertMessages(req.Messages),
		Tools:       convertTools(req.Tools),
		Temperature: req.Temperature,
	}
	if req.SystemPrompt != "" {
		out.System = []apiBlock{{Type: "text", Text: req.SystemPrompt}}
	}

	// Cache breakpoints: message window, system prompt, tool definitions.
	cc := &cacheControl{Type: "ephemeral"}
	out.Cache = cc
	if n := len(out.System); n > 0 {
		out.System[n-1].Cache = cc
	}
	if n := len(out.Tools); n > 0 {
		out.Tools[n-1].Cache = cc
	}
	return out
}

func convertMessages(msgs []sitegen.Message) []apiMessage {
	var out []apiMessage
	for _, msg := range msgs {
		switch m := msg.(type) {
		case sitegen.UserMessage:
			out = append(out, apiMessage{Role: "user", Content: convertBlocks(m.Content)})
		case sitegen.AssistantMessage:
			out = append(out, apiMessage{Role: "assistant", Content: convertBlocks(m.Content)})
		case sitegen.ToolResultMessage:
			block := apiBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   convertBlocks(m.Content),
				IsError:   m.IsError,
			}
			// Consecutive results belong to one user turn.
			if n := len(out); n > 0 && out[n-1].Role == "user" && len(out[n-1].Content) > 0 && out[n-1].Content[0].Type == "tool_result" {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, apiMessage{Role: "user", Content: []apiBlock{block}})
		}
	}
	return out
}

func convertBlocks(blocks []sitegen.ContentBlock) []apiBlock {
	out := make([]apiBlock, 0, len(blocks))
	for _, b := range blocks {
		switch bl := b.(type) {
		case sitegen.TextBlock:
			out = append(out, apiBlock{Type: "text", Text: bl.Text})
		case sitegen.ToolCallBlock:
			args := bl.Arguments
			if len(args) == 0 {
				args = json.RawMessage("{}")
			}
			out = append(out, apiBlock{Type: "tool_use", ID: bl.ID, Name: bl.Name, Input: args})
		}
	}
	return out
}

func convertTools(tools []sitegen.Tool) []apiTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]apiTool, len(tools))
	for i, t := range tools {
		out[i] = apiTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters}
	}
	return out
}

func httpError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d: %w: %w", resp.StatusCode, sitegen.ErrUpstream, err)
	}
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Type == "" {
		return fmt.Errorf("anthropic: HTTP %d: %s: %w", resp.StatusCode, bytes.TrimSpace(body), sitegen.ErrUpstream)
	}
	return fmt.Errorf("anthropic: HTTP %d: %s: %s: %w", resp.StatusCode, payload.Error.Type, payload.Error.Message, sitegen.ErrUpstream)
}
