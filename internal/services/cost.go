package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/metrics"
	"github.com/imyashkale/sitebuilder/internal/models"
	"github.com/imyashkale/sitebuilder/internal/repository"
)

// CostRecorder receives usage for every model call. Record never fails the caller.
type CostRecorder interface {
	Record(ctx context.Context, usage models.UsageRecord)
}

// ErrUsageUnavailable is returned when cost totals are asked of a ledger without a store
var ErrUsageUnavailable = errors.New("usage store not configured")

// CostLedger prices usage with a rate table and appends it to the usage store
type CostLedger struct {
	rates llm.RateTable
	repo  repository.UsageRepository
}

// NewCostLedger creates a new cost ledger. repo may be nil to only log and count.
func NewCostLedger(rates llm.RateTable, repo repository.UsageRepository) *CostLedger {
	return &CostLedger{
		rates: rates,
		repo:  repo,
	}
}

// Estimate returns the USD estimate for usage without recording it
func (l *CostLedger) Estimate(usage models.UsageRecord) float64 {
	return l.rates.EstimateCost(usage.Model, llm.Usage{
		InputTokens:    usage.InputTokens,
		OutputTokens:   usage.OutputTokens,
		ThinkingTokens: usage.ThinkingTokens,
	})
}

// Record prices and stores usage. Storage failures are logged and swallowed.
func (l *CostLedger) Record(ctx context.Context, usage models.UsageRecord) {
	if usage.Id == "" {
		usage.Id = uuid.New().String()
	}
	usage.EstimatedCostUSD = l.Estimate(usage)

	metrics.LLMTokens.WithLabelValues(usage.Operation, usage.Model, "input").Add(float64(usage.InputTokens))
	metrics.LLMTokens.WithLabelValues(usage.Operation, usage.Model, "output").Add(float64(usage.OutputTokens))
	metrics.LLMTokens.WithLabelValues(usage.Operation, usage.Model, "thinking").Add(float64(usage.ThinkingTokens))
	metrics.LLMCostUSD.WithLabelValues(usage.Operation, usage.Model).Add(usage.EstimatedCostUSD)

	fields := map[string]interface{}{
		"operation":     usage.Operation,
		"model":         usage.Model,
		"entity_type":   usage.EntityType,
		"entity_id":     usage.EntityId,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
		"cost_usd":      usage.EstimatedCostUSD,
	}

	if l.repo == nil {
		logger.WithFields(fields).Info("Model usage recorded")
		return
	}

	if err := l.repo.Create(ctx, &usage); err != nil {
		fields["error"] = err.Error()
		logger.WithFields(fields).Error("Failed to persist model usage")
		return
	}

	logger.WithFields(fields).Info("Model usage recorded")
}

// Summary totals the stored usage attributed to one entity
func (l *CostLedger) Summary(ctx context.Context, entityType, entityID string) (models.CostSummary, error) {
	if l == nil || l.repo == nil {
		return models.CostSummary{}, ErrUsageUnavailable
	}

	records, err := l.repo.GetByEntity(ctx, entityType, entityID)
	if err != nil {
		return models.CostSummary{}, fmt.Errorf("failed to load usage for %s %s: %w", entityType, entityID, err)
	}
	return models.SummarizeUsage(entityType, entityID, records), nil
}
