package repository

import (
	"context"

	"github.com/imyashkale/sitebuilder/internal/database"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// Re-export errors from database package so callers need not import it
var (
	ErrNotFound      = database.ErrNotFound
	ErrAlreadyExists = database.ErrAlreadyExists
)

// SiteRepository defines the interface for site build operations
type SiteRepository interface {
	Create(ctx context.Context, site *models.SiteBuild) error
	Get(ctx context.Context, siteId string) (*models.SiteBuild, error)
	Update(ctx context.Context, site *models.SiteBuild) error
	GetByOwnerId(ctx context.Context, ownerId string) ([]*models.SiteBuild, error)
}

// dynamoSiteRepository implements SiteRepository using DynamoDB
type dynamoSiteRepository struct {
	db *database.SiteOperations
}

// NewSiteRepository creates a new DynamoDB-backed site repository
func NewSiteRepository(db *database.SiteOperations) SiteRepository {
	return &dynamoSiteRepository{
		db: db,
	}
}

// Create stores a new site build
func (r *dynamoSiteRepository) Create(ctx context.Context, site *models.SiteBuild) error {
	return r.db.CreateSite(ctx, site)
}

// Get retrieves a site build by id
func (r *dynamoSiteRepository) Get(ctx context.Context, siteId string) (*models.SiteBuild, error) {
	return r.db.GetSite(ctx, siteId)
}

// Update updates a site build record with all fields
func (r *dynamoSiteRepository) Update(ctx context.Context, site *models.SiteBuild) error {
	return r.db.UpdateSite(ctx, site)
}

// GetByOwnerId retrieves all site builds of an owning record
func (r *dynamoSiteRepository) GetByOwnerId(ctx context.Context, ownerId string) ([]*models.SiteBuild, error) {
	return r.db.GetSitesByOwnerId(ctx, ownerId)
}
