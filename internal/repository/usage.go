package repository

import (
	"context"

	"github.com/imyashkale/sitebuilder/internal/database"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// UsageRepository defines the append-only store for model usage rows
type UsageRepository interface {
	Create(ctx context.Context, usage *models.UsageRecord) error
	GetByEntity(ctx context.Context, entityType, entityId string) ([]*models.UsageRecord, error)
}

type dynamoUsageRepository struct {
	db *database.UsageOperations
}

// NewUsageRepository creates a new DynamoDB-backed usage repository
func NewUsageRepository(db *database.UsageOperations) UsageRepository {
	return &dynamoUsageRepository{
		db: db,
	}
}

func (r *dynamoUsageRepository) Create(ctx context.Context, usage *models.UsageRecord) error {
	return r.db.CreateUsage(ctx, usage)
}

func (r *dynamoUsageRepository) GetByEntity(ctx context.Context, entityType, entityId string) ([]*models.UsageRecord, error) {
	return r.db.GetUsageByEntity(ctx, entityType, entityId)
}
