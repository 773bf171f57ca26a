package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/imyashkale/sitebuilder/internal/logger"
)

// AnthropicClient implements Client on top of the Anthropic Messages API
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates a client authenticated with apiKey.
// baseURL is optional and mainly useful for proxies and tests.
func NewAnthropicClient(apiKey, baseURL string) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicClient{client: anthropic.NewClient(opts...)}
}

// CallTool sends a single request with tool_choice pinned to req.Tool
func (c *AnthropicClient) CallTool(ctx context.Context, req ToolRequest) (*ToolResult, error) {
	schema := anthropic.ToolInputSchemaParam{Properties: req.Tool.InputSchema["properties"]}
	if required, ok := req.Tool.InputSchema["required"].([]string); ok {
		schema.Required = required
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Tools: []anthropic.ToolUnionParam{{
			OfTool: &anthropic.ToolParam{
				Name:        req.Tool.Name,
				Description: anthropic.String(req.Tool.Description),
				InputSchema: schema,
			},
		}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.Tool.Name},
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	logger.WithFields(map[string]interface{}{
		"model": req.Model,
		"tool":  req.Tool.Name,
	}).Debug("Calling model with forced tool choice")

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic tool call failed: %w", err)
	}

	result := &ToolResult{
		Model: string(message.Model),
		Usage: usageOf(message),
	}
	for _, block := range message.Content {
		if block.Type == "tool_use" && block.Name == req.Tool.Name {
			result.Input = block.Input
			break
		}
	}

	return result, nil
}

// StreamText streams a response and returns the concatenated text blocks of the final message
func (c *AnthropicClient) StreamText(ctx context.Context, req TextRequest) (*TextResult, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.ThinkingBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(req.ThinkingBudget)
	}

	logger.WithFields(map[string]interface{}{
		"model":           req.Model,
		"max_tokens":      req.MaxTokens,
		"thinking_budget": req.ThinkingBudget,
	}).Debug("Streaming model response")

	stream := c.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	message := anthropic.Message{}
	for stream.Next() {
		if err := message.Accumulate(stream.Current()); err != nil {
			return nil, fmt.Errorf("failed to accumulate stream event: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic stream failed: %w", err)
	}

	result := &TextResult{
		Model:     string(message.Model),
		Truncated: message.StopReason == anthropic.StopReasonMaxTokens,
		Usage:     usageOf(&message),
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			result.HasText = true
			text.WriteString(block.Text)
		}
	}
	result.Text = text.String()

	return result, nil
}

// usageOf maps provider usage onto Usage. Reasoning tokens are billed inside
// output_tokens by this provider, so ThinkingTokens stays zero.
func usageOf(message *anthropic.Message) Usage {
	return Usage{
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}
}
