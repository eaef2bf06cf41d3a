package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/catalog/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func NewGorm(db *gorm.DB) *GormRepo { return &GormRepo{DB: db} }

func (r *GormRepo) Migrate() error {
	return r.DB.AutoMigrate(&models.Listing{})
}

func (r *GormRepo) Create(ctx context.Context, l *models.Listing) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *GormRepo) Get(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *GormRepo) ListActive(ctx context.Context) ([]models.Listing, error) {
	return r.list(r.DB.WithContext(ctx).Where("status = ? AND in_stock = ?", moderation.StatusActive, true))
}

func (r *GormRepo) ListAll(ctx context.Context) ([]models.Listing, error) {
	return r.list(r.DB.WithContext(ctx))
}

func (r *GormRepo) ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]models.Listing, error) {
	q := r.DB.WithContext(ctx).Where("owner_id = ?", ownerID)
	if activeOnly {
		q = q.Where("status = ?", moderation.StatusActive)
	}
	return r.list(q)
}

func (r *GormRepo) list(q *gorm.DB) ([]models.Listing, error) {
	items := make([]models.Listing, 0)
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) Update(ctx context.Context, l *models.Listing) error {
	res := r.DB.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", l.ID).
		Select("Name", "Description", "Price", "Image", "Category", "InStock").
		Updates(l)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}

func (r *GormRepo) SetStatus(ctx context.Context, id string, status moderation.Status, bannedBy *string) (*models.Listing, error) {
	res := r.DB.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", id).
		Select("Status", "BannedBy").
		Updates(models.Listing{Status: status, BannedBy: bannedBy})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrListingNotFound
	}
	return r.Get(ctx, id)
}

func (r *GormRepo) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Listing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}
