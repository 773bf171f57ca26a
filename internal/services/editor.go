package services

import (
	"context"
	"fmt"

	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// SiteEditor applies natural-language change requests to an existing file set
type SiteEditor struct {
	client    llm.Client
	model     string
	maxTokens int64
	costs     CostRecorder
}

// NewSiteEditor creates a new site editor. costs may be nil.
func NewSiteEditor(client llm.Client, model string, maxTokens int64, costs CostRecorder) *SiteEditor {
	return &SiteEditor{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		costs:     costs,
	}
}

// ApplyEdits asks the model for the changed files only and merges them over files.
// Usage is recorded against ownerID when given, unattributed otherwise.
func (e *SiteEditor) ApplyEdits(ctx context.Context, files models.FileSet, instruction, ownerID string) (models.FileSet, error) {
	prompt := ComposeEditPrompt(files, instruction)

	logger.WithFields(map[string]interface{}{
		"model":    e.model,
		"owner_id": ownerID,
		"files":    len(files),
	}).Debug("Applying site edits")

	result, err := e.client.StreamText(ctx, llm.TextRequest{
		Model:     e.model,
		System:    prompt.System,
		Prompt:    prompt.User,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("site edit call failed: %w", err)
	}

	usage := usageRecord(models.OperationEditSite, e.model, result.Model, result.Usage)
	if ownerID != "" {
		usage.EntityType = models.EntitySite
		usage.EntityId = ownerID
	}
	if e.costs != nil {
		e.costs.Record(ctx, usage)
	}

	changed, err := parseTextResult("edit", result)
	if err != nil {
		return nil, err
	}

	merged := files.Merge(changed)

	logger.WithFields(map[string]interface{}{
		"owner_id": ownerID,
		"changed":  changed.Paths(),
		"total":    len(merged),
	}).Info("Site edits applied")

	return merged, nil
}
