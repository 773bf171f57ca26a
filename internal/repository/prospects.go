package repository

import (
	"context"

	"github.com/imyashkale/sitebuilder/internal/database"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// ProspectRepository looks up the owning business record of a site
type ProspectRepository interface {
	Get(ctx context.Context, id string) (*models.Prospect, error)
}

type dynamoProspectRepository struct {
	db *database.ProspectOperations
}

// NewProspectRepository creates a new DynamoDB-backed prospect repository
func NewProspectRepository(db *database.ProspectOperations) ProspectRepository {
	return &dynamoProspectRepository{
		db: db,
	}
}

func (r *dynamoProspectRepository) Get(ctx context.Context, id string) (*models.Prospect, error) {
	return r.db.GetProspect(ctx, id)
}
