package api

import (
	"time"

	"github.com/tradezone/marketplace/pkg/moderation"
)

type Account struct {
	ID             string            `json:"id"`
	Username       string            `json:"username"`
	Email          string            `json:"email"`
	ContactDetails string            `json:"contact_details"`
	Role           moderation.Role   `json:"role"`
	Status         moderation.Status `json:"status"`
	BannedBy       *string           `json:"banned_by"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (a Account) ModerationStatus() moderation.Status { return a.Status }

type AuthPayload struct {
	Success      bool     `json:"success"`
	Message      string   `json:"message"`
	Reason       string   `json:"reason,omitempty"`
	Token        string   `json:"token,omitempty"`
	RefreshToken string   `json:"refresh_token,omitempty"`
	AccessExp    int64    `json:"access_exp,omitempty"`
	RefreshExp   int64    `json:"refresh_exp,omitempty"`
	User         *Account `json:"user"`
}

type RegisterRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	ContactDetails string `json:"contact_details"`
	Role           string `json:"role,omitempty"`
	AdminKey       string `json:"admin_key,omitempty"`
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccessExp    int64  `json:"access_exp"`
	RefreshExp   int64  `json:"refresh_exp"`
	Role         string `json:"role"`
}

type Listing struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Price         float64           `json:"price"`
	Image         string            `json:"image"`
	Category      string            `json:"category"`
	OwnerID       string            `json:"owner_id"`
	OwnerUsername string            `json:"owner_username"`
	InStock       bool              `json:"in_stock"`
	Status        moderation.Status `json:"status"`
	BannedBy      *string           `json:"banned_by"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (l Listing) ModerationStatus() moderation.Status { return l.Status }

func (l Listing) OwnedBy(p moderation.Principal) bool {
	return p.Matches(l.OwnerID, l.OwnerUsername)
}

type ListingInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	InStock     *bool   `json:"in_stock,omitempty"`
}

// ListingPatch leaves nil fields unchanged.
type ListingPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Image       *string  `json:"image,omitempty"`
	Category    *string  `json:"category,omitempty"`
	InStock     *bool    `json:"in_stock,omitempty"`
}

type Delivery struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	PaymentMethod string `json:"payment_method"`
}

type OrderLine struct {
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Items    []OrderLine `json:"items"`
	Delivery Delivery    `json:"delivery"`
}

type OrderItem struct {
	ListingID string  `json:"listing_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type Order struct {
	ID            string      `json:"id"`
	OrderID       string      `json:"order_id"`
	BuyerID       string      `json:"buyer_id"`
	BuyerUsername string      `json:"buyer_username"`
	Items         []OrderItem `json:"items"`
	TotalAmount   float64     `json:"total_amount"`
	Status        string      `json:"status"`
	Delivery      Delivery    `json:"delivery"`
	CreatedAt     time.Time   `json:"created_at"`
}
