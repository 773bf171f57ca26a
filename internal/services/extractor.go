package services

import (
	"context"
	"fmt"
	"time"

	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
)

const brandProfileTool = "record_brand_profile"

const extractionSystemPrompt = `You turn an unstructured description of a small food business into a brand profile.
Call the record_brand_profile tool exactly once. Fill every field the text supports and never invent contact details, prices or reviews.
When the text is silent, apply these defaults:
- business.vendorType: "home_based" unless the text describes a truck, cart or stall ("mobile") or a storefront or restaurant ("fixed_location").
- brand.primaryColor and brand.accentColor: pick hex colors that suit the cuisine, e.g. "#C2410C" and "#FDE68A".
- brand.tagline: write one of at most 8 words.
- brand.voice: a short phrase such as "warm and familiar".
- business.stage: "launching" if the business has not sold yet, otherwise "established".`

// BrandExtractor turns free text into a validated brand profile via a forced tool call
type BrandExtractor struct {
	client    llm.Client
	model     string
	maxTokens int64
}

// NewBrandExtractor creates a new brand extractor
func NewBrandExtractor(client llm.Client, model string, maxTokens int64) *BrandExtractor {
	return &BrandExtractor{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Extract returns the brand profile described by document together with the call's usage
func (e *BrandExtractor) Extract(ctx context.Context, document string) (models.BrandProfile, models.UsageRecord, error) {
	logger.WithFields(map[string]interface{}{
		"model":          e.model,
		"document_bytes": len(document),
	}).Debug("Extracting brand profile")

	result, err := e.client.CallTool(ctx, llm.ToolRequest{
		Model:     e.model,
		System:    extractionSystemPrompt,
		Prompt:    document,
		MaxTokens: e.maxTokens,
		Tool: llm.Tool{
			Name:        brandProfileTool,
			Description: "Record the structured brand profile of the business",
			InputSchema: models.BrandProfileSchema,
		},
	})
	if err != nil {
		return models.BrandProfile{}, models.UsageRecord{}, fmt.Errorf("brand extraction call failed: %w", err)
	}

	usage := usageRecord(models.OperationExtractBrand, e.model, result.Model, result.Usage)

	if result.Input == nil {
		logger.WithField("model", e.model).Warn("Model returned no tool call for brand extraction")
		return models.BrandProfile{}, usage, &NoStructuredOutputError{Tool: brandProfileTool}
	}

	profile, problems, err := models.ValidateBrandProfile(result.Input)
	if err != nil {
		return models.BrandProfile{}, usage, err
	}
	if len(problems) > 0 {
		logger.WithFields(map[string]interface{}{
			"problems": problems,
		}).Warn("Brand profile failed schema validation")
		return models.BrandProfile{}, usage, &ExtractionSchemaError{Problems: problems, Payload: string(result.Input)}
	}

	logger.WithFields(map[string]interface{}{
		"business":    profile.Business.Name,
		"vendor_type": profile.Business.VendorType,
		"menu_items":  len(profile.Menu),
	}).Info("Brand profile extracted")

	return profile, usage, nil
}

// usageRecord builds an unattributed usage row; reported overrides requested when the provider names the model
func usageRecord(operation, requested, reported string, usage llm.Usage) models.UsageRecord {
	model := requested
	if reported != "" {
		model = reported
	}

	return models.UsageRecord{
		Operation:      operation,
		Model:          model,
		InputTokens:    usage.InputTokens,
		OutputTokens:   usage.OutputTokens,
		ThinkingTokens: usage.ThinkingTokens,
		CreatedAt:      time.Now(),
	}
}
