package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradezone/marketplace/pkg/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusCompleted, StatusCancelled, StatusRefunded:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown order status %q", apperr.ErrValidation, s)
}

type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentPayPal       PaymentMethod = "paypal"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCreditCard, PaymentBankTransfer, PaymentPayPal:
		return true
	}
	return false
}

type Delivery struct {
	Name          string        `gorm:"not null" json:"name"`
	Address       string        `gorm:"not null" json:"address"`
	Phone         string        `gorm:"not null" json:"phone"`
	PaymentMethod PaymentMethod `gorm:"not null" json:"payment_method"`
}

type OrderItem struct {
	ID        uint      `gorm:"primaryKey"                  json:"-"`
	OrderRef  uuid.UUID `gorm:"type:uuid;index;not null"    json:"-"`
	ListingID string    `gorm:"not null"                    json:"listing_id"`
	Name      string    `gorm:"not null"                    json:"name"`
	Price     float64   `gorm:"not null"                    json:"price"`
	Quantity  int       `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

// Order is immutable after creation except for Status.
type Order struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"                           json:"id"`
	OrderID        string      `gorm:"uniqueIndex;not null"                           json:"order_id"`
	BuyerID        string      `gorm:"index;not null;uniqueIndex:idx_orders_buyer_idem" json:"buyer_id"`
	BuyerUsername  string      `gorm:"not null"                                       json:"buyer_username"`
	Items          []OrderItem `gorm:"foreignKey:OrderRef;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount    float64     `gorm:"not null"                                       json:"total_amount"`
	Status         Status      `gorm:"type:varchar(16);not null;default:completed"    json:"status"`
	Delivery       Delivery    `gorm:"embedded;embeddedPrefix:delivery_"              json:"delivery"`
	IdempotencyKey *string     `gorm:"uniqueIndex:idx_orders_buyer_idem"              json:"-"`
	CreatedAt      time.Time   `gorm:"index"                                          json:"created_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
