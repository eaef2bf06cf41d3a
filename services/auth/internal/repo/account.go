package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/auth/internal/models"
)

func (r *GormRepo) CreateAccount(ctx context.Context, a *models.Account) error {
	if err := r.DB.WithContext(ctx).Create(a).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: username or email already exists", apperr.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *GormRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username = ?", username)
}

func (r *GormRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER(?)", email)
}

func (r *GormRepo) exists(ctx context.Context, query string, arg any) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Account{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &a, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err, ErrAccountNotFound)
	}
	return &a, nil
}

func (r *GormRepo) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var out []models.Account
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus updates moderation fields. Banning also revokes every refresh
// token of the account in the same transaction.
func (r *GormRepo) SetStatus(ctx context.Context, id uuid.UUID, status moderation.Status, bannedBy *string) (*models.Account, error) {
	var a models.Account
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&a).Error; err != nil {
			return notFound(err, ErrAccountNotFound)
		}
		if err := tx.Model(&a).Select("Status", "BannedBy").Updates(models.Account{Status: status, BannedBy: bannedBy}).Error; err != nil {
			return err
		}
		if status == moderation.StatusBanned {
			return revokeAll(tx, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.Status = status
	a.BannedBy = bannedBy
	return &a, nil
}

func (r *GormRepo) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Account{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}
		return nil
	})
}
