package repo

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/services/auth/internal/models"
)

var (
	ErrAccountNotFound = fmt.Errorf("%w: user not found", apperr.ErrNotFound)
	ErrRefreshNotFound = errors.New("refresh token not found")
	ErrRefreshRevoked  = errors.New("refresh token expired or revoked")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo { return &GormRepo{DB: db} }

func (r *GormRepo) Migrate() error {
	return r.DB.AutoMigrate(&models.Account{}, &models.RefreshToken{})
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
