package repo

import (
	"context"
	"fmt"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/catalog/internal/models"
)

var ErrListingNotFound = fmt.Errorf("%w: Item not found", apperr.ErrNotFound)

// Repo is the listing store. Lists are ordered newest first.
type Repo interface {
	Create(ctx context.Context, l *models.Listing) error
	Get(ctx context.Context, id string) (*models.Listing, error)
	ListActive(ctx context.Context) ([]models.Listing, error)
	ListAll(ctx context.Context) ([]models.Listing, error)
	ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]models.Listing, error)
	// Update writes every content field of l; moderation fields are untouched.
	Update(ctx context.Context, l *models.Listing) error
	SetStatus(ctx context.Context, id string, status moderation.Status, bannedBy *string) (*models.Listing, error)
	Delete(ctx context.Context, id string) error
}
