package models

import (
	"time"

	"github.com/tradezone/marketplace/pkg/moderation"
)

// Listing is stored by gorm (postgres) or the mongo driver; both use the
// string id as primary key.
type Listing struct {
	ID            string            `gorm:"primaryKey;type:varchar(36)" bson:"_id"            json:"id"`
	Name          string            `gorm:"not null"                    bson:"name"           json:"name"`
	Description   string            `gorm:"not null;default:''"         bson:"description"    json:"description"`
	Price         float64           `gorm:"not null"                    bson:"price"          json:"price"`
	Image         string            `gorm:"not null;default:''"         bson:"image"          json:"image"`
	Category      string            `gorm:"not null"                    bson:"category"       json:"category"`
	OwnerID       string            `gorm:"index;not null"              bson:"owner_id"       json:"owner_id"`
	OwnerUsername string            `gorm:"not null"                    bson:"owner_username" json:"owner_username"`
	InStock       bool              `gorm:"not null"                    bson:"in_stock"       json:"in_stock"`
	Status        moderation.Status `gorm:"type:varchar(16);index"      bson:"status"         json:"status"`
	BannedBy      *string           `gorm:"default:null"                bson:"banned_by"      json:"banned_by"`
	CreatedAt     time.Time         `gorm:"index"                       bson:"created_at"     json:"created_at"`
}

func (l Listing) ModerationStatus() moderation.Status { return l.Status }

func (l Listing) OwnedBy(p moderation.Principal) bool {
	return p.Matches(l.OwnerID, l.OwnerUsername)
}

const DefaultCategory = "General"
