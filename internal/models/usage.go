package models

import "time"

// UsageRecord is one LLM call's token usage, written once to the cost ledger
type UsageRecord struct {
	Id               string    `json:"id" dynamodbav:"Id"`
	Operation        string    `json:"operation" dynamodbav:"Operation"`
	EntityType       string    `json:"entity_type,omitempty" dynamodbav:"EntityType,omitempty"`
	EntityId         string    `json:"entity_id,omitempty" dynamodbav:"EntityId,omitempty"`
	Model            string    `json:"model" dynamodbav:"Model"`
	InputTokens      int64     `json:"input_tokens" dynamodbav:"InputTokens"`
	OutputTokens     int64     `json:"output_tokens" dynamodbav:"OutputTokens"`
	ThinkingTokens   int64     `json:"thinking_tokens,omitempty" dynamodbav:"ThinkingTokens,omitempty"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd" dynamodbav:"EstimatedCostUSD"`
	CreatedAt        time.Time `json:"created_at" dynamodbav:"-"`
}

// Operation names used in the cost ledger
const (
	OperationExtractBrand = "extract_brand_profile"
	OperationGenerateSite = "generate_site"
	OperationEditSite     = "edit_site"
)

// Entity types used for cost attribution
const (
	EntityProspect = "prospect"
	EntitySite     = "site"
)

// CostSummary totals the usage rows attributed to one entity
type CostSummary struct {
	EntityType       string             `json:"entity_type"`
	EntityId         string             `json:"entity_id"`
	Calls            int                `json:"calls"`
	InputTokens      int64              `json:"input_tokens"`
	OutputTokens     int64              `json:"output_tokens"`
	ThinkingTokens   int64              `json:"thinking_tokens,omitempty"`
	EstimatedCostUSD float64            `json:"estimated_cost_usd"`
	ByOperation      map[string]float64 `json:"by_operation,omitempty"`
}

// SummarizeUsage adds up records for one entity
func SummarizeUsage(entityType, entityID string, records []*UsageRecord) CostSummary {
	summary := CostSummary{
		EntityType:  entityType,
		EntityId:    entityID,
		ByOperation: make(map[string]float64),
	}
	for _, r := range records {
		summary.Calls++
		summary.InputTokens += r.InputTokens
		summary.OutputTokens += r.OutputTokens
		summary.ThinkingTokens += r.ThinkingTokens
		summary.EstimatedCostUSD += r.EstimatedCostUSD
		summary.ByOperation[r.Operation] += r.EstimatedCostUSD
	}
	return summary
}

// SiteCostResponse reports model spend for a site. Generation runs are
// attributed to the owning record, so Owner covers every site it launched.
type SiteCostResponse struct {
	SiteId           string      `json:"site_id"`
	Edits            CostSummary `json:"edits"`
	Owner            CostSummary `json:"owner"`
	EstimatedCostUSD float64     `json:"estimated_cost_usd"`
}
