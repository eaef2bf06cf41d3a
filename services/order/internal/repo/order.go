package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/services/order/internal/models"
)

var (
	ErrOrderNotFound = fmt.Errorf("%w: order not found", apperr.ErrNotFound)
	ErrDuplicateKey  = errors.New("order with this idempotency key already exists")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo { return &GormRepo{DB: db} }

func (r *GormRepo) Migrate() error {
	return r.DB.AutoMigrate(&models.Order{}, &models.OrderItem{})
}

// CreateOrder writes the order and its items in one transaction.
func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := order.Items
		if err := tx.Omit("Items").Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderRef = order.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		order.Items = items
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

func (r *GormRepo) FindByIdempotencyKey(ctx context.Context, buyerID, key string) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).Preload("Items").
		Where("buyer_id = ? AND idempotency_key = ?", buyerID, key).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) ListByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	return r.list(r.DB.WithContext(ctx).Where("buyer_id = ?", buyerID))
}

func (r *GormRepo) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.list(r.DB.WithContext(ctx))
}

func (r *GormRepo) list(q *gorm.DB) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	if err := q.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Order, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return r.Get(ctx, id)
}
