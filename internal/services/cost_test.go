package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyashkale/sitebuilder/internal/llm"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// memoryUsage is an in-memory UsageRepository
type memoryUsage struct {
	rows      []*models.UsageRecord
	createErr error
}

func (m *memoryUsage) Create(_ context.Context, usage *models.UsageRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.rows = append(m.rows, usage)
	return nil
}

func (m *memoryUsage) GetByEntity(_ context.Context, entityType, entityId string) ([]*models.UsageRecord, error) {
	var out []*models.UsageRecord
	for _, r := range m.rows {
		if r.EntityType == entityType && r.EntityId == entityId {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestCostLedgerEstimate(t *testing.T) {
	rates := llm.DefaultRates()
	ledger := NewCostLedger(rates, nil)

	sonnet := rates[llm.TierSonnet]
	cost := ledger.Estimate(models.UsageRecord{
		Model:        "claude-sonnet-4-5",
		InputTokens:  1_000_000,
		OutputTokens: 1_000_000,
	})
	assert.InDelta(t, sonnet.InputPer1M+sonnet.OutputPer1M, cost, 1e-9)

	opus := rates[llm.TierOpus]
	cost = ledger.Estimate(models.UsageRecord{
		Model:          "claude-opus-4-1",
		InputTokens:    500_000,
		ThinkingTokens: 100_000,
	})
	assert.InDelta(t, 0.5*opus.InputPer1M+0.1*opus.ThinkingPer1M, cost, 1e-9)

	assert.Zero(t, ledger.Estimate(models.UsageRecord{Model: "claude-haiku-4-5"}))
}

func TestCostLedgerRecord(t *testing.T) {
	repo := &memoryUsage{}
	ledger := NewCostLedger(llm.DefaultRates(), repo)

	ledger.Record(context.Background(), models.UsageRecord{
		Operation:    models.OperationExtractBrand,
		EntityType:   models.EntityProspect,
		EntityId:     "prospect-1",
		Model:        "claude-sonnet-4-5",
		InputTokens:  1000,
		OutputTokens: 200,
	})

	require.Len(t, repo.rows, 1)
	row := repo.rows[0]
	assert.NotEmpty(t, row.Id)
	assert.InDelta(t, 0.001*3.0+0.0002*15.0, row.EstimatedCostUSD, 1e-9)

	rows, err := repo.GetByEntity(context.Background(), models.EntityProspect, "prospect-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestCostLedgerRecord_KeepsExistingId(t *testing.T) {
	repo := &memoryUsage{}
	ledger := NewCostLedger(llm.DefaultRates(), repo)

	ledger.Record(context.Background(), models.UsageRecord{Id: "usage-1", Operation: models.OperationEditSite, Model: "claude-sonnet-4-5"})

	require.Len(t, repo.rows, 1)
	assert.Equal(t, "usage-1", repo.rows[0].Id)
}

func TestCostLedgerRecord_SwallowsStoreErrors(t *testing.T) {
	repo := &memoryUsage{createErr: errors.New("throttled")}
	ledger := NewCostLedger(llm.DefaultRates(), repo)

	assert.NotPanics(t, func() {
		ledger.Record(context.Background(), models.UsageRecord{Operation: models.OperationGenerateSite, Model: "claude-opus-4-1"})
	})
	assert.Empty(t, repo.rows)
}

func TestCostLedgerRecord_NilRepository(t *testing.T) {
	ledger := NewCostLedger(llm.DefaultRates(), nil)

	assert.NotPanics(t, func() {
		ledger.Record(context.Background(), models.UsageRecord{Operation: models.OperationGenerateSite, Model: "claude-opus-4-1"})
	})
}
