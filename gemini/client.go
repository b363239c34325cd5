package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/fwojciec/sitegen"
)

var _ sitegen.Provider = (*Client)(nil)

// Client wraps a genai client.
type Client struct {
	client *genai.Client
	model  string
}

type settings struct {
	model   string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*settings)

// WithModel sets the default model ID.
func WithModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithTimeout bounds every HTTP request made by the SDK.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	s := settings{model: defaultModel}
	for _, o := range opts {
		o(&s)
	}
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if s.timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: s.timeout}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w: %w", sitegen.ErrConfiguration, err)
	}
	return &Client{client: gc, model: s.model}, nil
}

// Stream starts one model turn. The SDK binds its HTTP calls to ctx.
func (c *Client) Stream(ctx context.Context, req sitegen.ModelRequest) (sitegen.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	model := req.Model
	if model == "" {
		model = c.model
	}
	chunks := c.client.Models.GenerateContentStream(ctx, model, ConvertMessages(req.Messages), buildConfig(req))
	return NewStreamFromIter(ctx, chunks), nil
}

func buildConfig(req sitegen.ModelRequest) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Tools:           ConvertTools(req.Tools),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}
	return cfg
}

// ConvertMessages maps conversation messages to genai contents. Tool
// results travel as function responses keyed "output" or "error".
func ConvertMessages(msgs []sitegen.Message) []*genai.Content {
	var out []*genai.Content
	for _, msg := range msgs {
		switch m := msg.(type) {
		case sitegen.UserMessage:
			out = append(out, &genai.Content{Role: "user", Parts: convertParts(m.Content)})
		case sitegen.AssistantMessage:
			out = append(out, &genai.Content{Role: "model", Parts: convertParts(m.Content)})
		case sitegen.ToolResultMessage:
			key := "output"
			if m.IsError {
				key = "error"
			}
			text := (&sitegen.ToolResult{Content: m.Content}).Text()
			out = append(out, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     m.ToolName,
					Response: map[string]any{key: text},
				}}},
			})
		}
	}
	return out
}

func convertParts(blocks []sitegen.ContentBlock) []*genai.Part {
	var parts []*genai.Part
	for _, b := range blocks {
		switch bl := b.(type) {
		case sitegen.TextBlock:
			parts = append(parts, &genai.Part{Text: bl.Text})
		case sitegen.ToolCallBlock:
			var args map[string]any
			_ = json.Unmarshal(bl.Arguments, &args)
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{ID: bl.ID, Name: bl.Name, Args: args}})
		}
	}
	return parts
}

// ConvertTools packs every tool into one genai.Tool of declarations.
func ConvertTools(tools []sitegen.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		var schema map[string]any
		_ = json.Unmarshal(t.Parameters, &schema)
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: schema,
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
