package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradezone/marketplace/pkg/moderation"
)

type Account struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey"      json:"id"`
	Username       string            `gorm:"uniqueIndex;not null"      json:"username"`
	Email          string            `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash   string            `gorm:"not null"                  json:"-"`
	ContactDetails string            `gorm:"not null;default:''"       json:"contact_details"`
	Role           moderation.Role   `gorm:"type:varchar(16);not null" json:"role"`
	Status         moderation.Status `gorm:"type:varchar(16);not null" json:"status"`
	BannedBy       *string           `gorm:"default:null"              json:"banned_by"`
	CreatedAt      time.Time         `gorm:"not null"                  json:"created_at"`
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = moderation.StatusActive
	}
	return nil
}

func (a Account) ModerationStatus() moderation.Status { return a.Status }

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	AccountID uuid.UUID `gorm:"type:uuid;index"      json:"account_id"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	ExpiresAt int64     `gorm:"not null"             json:"expires_at"`
	Revoked   bool      `gorm:"default:false"        json:"revoked"`
}
