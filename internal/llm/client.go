package llm

import (
	"context"
	"encoding/json"
)

// Usage is the token accounting reported for a single model call
type Usage struct {
	InputTokens    int64
	OutputTokens   int64
	ThinkingTokens int64
}

// Tool describes the single structured-output contract a model is forced to call
type Tool struct {
	Name        string
	Description string
	// InputSchema is a JSON schema object with "properties" and "required" keys
	InputSchema map[string]any
}

// ToolRequest asks the model to answer by calling Tool exactly once
type ToolRequest struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int64
	Tool      Tool
}

// ToolResult is the outcome of a forced tool call.
// Input is nil when the response held no tool-call block for the requested tool.
type ToolResult struct {
	Model string
	Input json.RawMessage
	Usage Usage
}

// TextRequest asks the model for free text, optionally with a reasoning budget
type TextRequest struct {
	Model          string
	System         string
	Prompt         string
	MaxTokens      int64
	ThinkingBudget int64
}

// TextResult is the assembled text of a streamed response.
// HasText is false when the response held no text content block at all.
type TextResult struct {
	Model     string
	Text      string
	HasText   bool
	Truncated bool
	Usage     Usage
}

// Client is the narrow port the pipeline uses to talk to a language model
type Client interface {
	CallTool(ctx context.Context, req ToolRequest) (*ToolResult, error)
	StreamText(ctx context.Context, req TextRequest) (*TextResult, error)
}
