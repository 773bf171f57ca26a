package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/models"
)

func TestBrandExtractor_Extract(t *testing.T) {
	client := newPipelineLLM(testFiles())
	extractor := NewBrandExtractor(client, "claude-sonnet-4-5", 4096)

	profile, usage, err := extractor.Extract(context.Background(), "Mia sells tamales from her kitchen in Austin.")
	require.NoError(t, err)

	assert.Equal(t, "Mia's Cocinita", profile.Business.Name)
	assert.Equal(t, models.OperationExtractBrand, usage.Operation)
	assert.Equal(t, "claude-sonnet-4-5", usage.Model)
	assert.Equal(t, int64(1200), usage.InputTokens)
	assert.Empty(t, usage.EntityType)

	require.Len(t, client.toolRequests, 1)
	req := client.toolRequests[0]
	assert.Equal(t, brandProfileTool, req.Tool.Name)
	assert.Equal(t, int64(4096), req.MaxTokens)
	assert.Equal(t, "Mia sells tamales from her kitchen in Austin.", req.Prompt)
	assert.Contains(t, req.Tool.InputSchema, "properties")
}

func TestBrandExtractor_NoToolCall(t *testing.T) {
	client := &MockLLMClient{
		callToolFunc: func(_ context.Context, req llm.ToolRequest) (*llm.ToolResult, error) {
			return &llm.ToolResult{Model: req.Model, Usage: llm.Usage{InputTokens: 10}}, nil
		},
	}
	extractor := NewBrandExtractor(client, "claude-sonnet-4-5", 4096)

	_, usage, err := extractor.Extract(context.Background(), "text")

	var noTool *NoStructuredOutputError
	require.True(t, errors.As(err, &noTool))
	assert.Equal(t, brandProfileTool, noTool.Tool)
	assert.Equal(t, KindContract, KindOf(err))
	assert.Equal(t, int64(10), usage.InputTokens)
}

func TestBrandExtractor_SchemaFailure(t *testing.T) {
	client := &MockLLMClient{
		callToolFunc: func(_ context.Context, req llm.ToolRequest) (*llm.ToolResult, error) {
			return &llm.ToolResult{
				Model: req.Model,
				Input: json.RawMessage(`{"business": {"name": "Mia's Cocinita"}}`),
			}, nil
		},
	}
	extractor := NewBrandExtractor(client, "claude-sonnet-4-5", 4096)

	_, _, err := extractor.Extract(context.Background(), "text")

	var schemaErr *ExtractionSchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.NotEmpty(t, schemaErr.Problems)
	assert.Contains(t, schemaErr.Payload, "Mia's Cocinita")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestBrandExtractor_CallError(t *testing.T) {
	client := &MockLLMClient{
		callToolFunc: func(context.Context, llm.ToolRequest) (*llm.ToolResult, error) {
			return nil, errors.New("overloaded")
		},
	}
	extractor := NewBrandExtractor(client, "claude-sonnet-4-5", 4096)

	_, usage, err := extractor.Extract(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
	assert.Empty(t, usage.Operation)
}

func TestSiteGenerator_Generate(t *testing.T) {
	client := newPipelineLLM(testFiles())
	generator := NewSiteGenerator(client, "claude-opus-4-1", 32000, 0)

	files, usage, err := generator.Generate(context.Background(), testProfile(t))
	require.NoError(t, err)

	assert.Equal(t, testFiles().Paths(), files.Paths())
	assert.Equal(t, models.OperationGenerateSite, usage.Operation)
	assert.Equal(t, int64(9000), usage.OutputTokens)

	require.Len(t, client.textRequests, 1)
	req := client.textRequests[0]
	assert.Equal(t, int64(32000), req.MaxTokens)
	assert.Zero(t, req.ThinkingBudget)
	assert.Contains(t, req.Prompt, "Mia's Cocinita")
}

func TestSiteGenerator_NoTextBlock(t *testing.T) {
	client := &MockLLMClient{
		streamTextFunc: func(_ context.Context, req llm.TextRequest) (*llm.TextResult, error) {
			return &llm.TextResult{Model: req.Model, Usage: llm.Usage{OutputTokens: 5}}, nil
		},
	}
	generator := NewSiteGenerator(client, "claude-opus-4-1", 32000, 0)

	_, usage, err := generator.Generate(context.Background(), testProfile(t))

	var noText *NoTextBlockError
	require.True(t, errors.As(err, &noText))
	assert.Equal(t, KindContract, KindOf(err))
	assert.Equal(t, int64(5), usage.OutputTokens)
}

func TestSiteGenerator_Unparseable(t *testing.T) {
	client := &MockLLMClient{
		streamTextFunc: func(_ context.Context, req llm.TextRequest) (*llm.TextResult, error) {
			return &llm.TextResult{Model: req.Model, Text: "I could not build that site.", HasText: true}, nil
		},
	}
	generator := NewSiteGenerator(client, "claude-opus-4-1", 32000, 0)

	_, _, err := generator.Generate(context.Background(), testProfile(t))

	var parseErr *GenerationParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestSiteEditor_ApplyEdits(t *testing.T) {
	costs := &recordingCosts{}
	changed := models.FileSet{
		{Path: AppShellPath, Content: "export default function App() { return <main>Now open Sundays</main>; }"},
		{Path: "src/Hours.tsx", Content: "export const Hours = () => null;"},
	}
	client := &MockLLMClient{
		streamTextFunc: func(_ context.Context, req llm.TextRequest) (*llm.TextResult, error) {
			return &llm.TextResult{
				Model:   req.Model,
				Text:    fileSetText(changed),
				HasText: true,
				Usage:   llm.Usage{InputTokens: 3000, OutputTokens: 400},
			}, nil
		},
	}
	editor := NewSiteEditor(client, "claude-sonnet-4-5", 16000, costs)

	merged, err := editor.ApplyEdits(context.Background(), testFiles(), "Say we are open Sundays", "site-1")
	require.NoError(t, err)

	assert.Len(t, merged, len(testFiles())+1)
	app, ok := merged.Get(AppShellPath)
	require.True(t, ok)
	assert.Contains(t, app.Content, "Now open Sundays")
	entry, ok := merged.Get(EntryPagePath)
	require.True(t, ok)
	assert.Equal(t, testEntryPage, entry.Content)

	require.Len(t, costs.records, 1)
	assert.Equal(t, models.OperationEditSite, costs.records[0].Operation)
	assert.Equal(t, models.EntitySite, costs.records[0].EntityType)
	assert.Equal(t, "site-1", costs.records[0].EntityId)

	require.Len(t, client.textRequests, 1)
	assert.Contains(t, client.textRequests[0].Prompt, "Say we are open Sundays")
}

func TestSiteEditor_RecordsUsageOnParseFailure(t *testing.T) {
	costs := &recordingCosts{}
	client := &MockLLMClient{
		streamTextFunc: func(_ context.Context, req llm.TextRequest) (*llm.TextResult, error) {
			return &llm.TextResult{Model: req.Model, Text: "no files here", HasText: true, Usage: llm.Usage{InputTokens: 50}}, nil
		},
	}
	editor := NewSiteEditor(client, "claude-sonnet-4-5", 16000, costs)

	_, err := editor.ApplyEdits(context.Background(), testFiles(), "change the color", "")
	require.Error(t, err)

	require.Len(t, costs.records, 1)
	assert.Empty(t, costs.records[0].EntityType)
}
