package services

import (
	"context"
	"fmt"

	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// SiteGenerator produces a complete file set for a brand profile
type SiteGenerator struct {
	client         llm.Client
	model          string
	maxTokens      int64
	thinkingBudget int64
}

// NewSiteGenerator creates a new site generator
func NewSiteGenerator(client llm.Client, model string, maxTokens, thinkingBudget int64) *SiteGenerator {
	return &SiteGenerator{
		client:         client,
		model:          model,
		maxTokens:      maxTokens,
		thinkingBudget: thinkingBudget,
	}
}

// Generate streams a site from the model and parses its files out of the final text
func (g *SiteGenerator) Generate(ctx context.Context, profile models.BrandProfile) (models.FileSet, models.UsageRecord, error) {
	prompt := ComposeGenerationPrompt(profile)

	logger.WithFields(map[string]interface{}{
		"model":           g.model,
		"business":        profile.Business.Name,
		"thinking_budget": g.thinkingBudget,
	}).Debug("Generating site files")

	result, err := g.client.StreamText(ctx, llm.TextRequest{
		Model:          g.model,
		System:         prompt.System,
		Prompt:         prompt.User,
		MaxTokens:      g.maxTokens,
		ThinkingBudget: g.thinkingBudget,
	})
	if err != nil {
		return nil, models.UsageRecord{}, fmt.Errorf("site generation call failed: %w", err)
	}

	usage := usageRecord(models.OperationGenerateSite, g.model, result.Model, result.Usage)
	files, err := parseTextResult("generate", result)
	if err != nil {
		return nil, usage, err
	}

	logger.WithFields(map[string]interface{}{
		"business": profile.Business.Name,
		"files":    len(files),
	}).Info("Site files generated")

	return files, usage, nil
}

// parseTextResult parses the file set out of a streamed result
func parseTextResult(operation string, result *llm.TextResult) (models.FileSet, error) {
	if !result.HasText {
		return nil, &NoTextBlockError{Operation: operation}
	}
	if result.Truncated {
		logger.WithField("operation", operation).Warn("Model output hit the token limit, parse will likely fail")
	}

	files, err := ParseFileSet(result.Text)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"operation": operation,
			"raw_bytes": len(result.Text),
			"error":     err.Error(),
		}).Error("Failed to parse model output")
		return nil, err
	}
	return files, nil
}
