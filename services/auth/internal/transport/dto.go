package transport

import (
	"time"

	"github.com/tradezone/marketplace/services/auth/internal/models"
)

type RegisterRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	ContactDetails string `json:"contact_details"`
	Role           string `json:"role"`
	AdminKey       string `json:"admin_key"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AccountView struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	ContactDetails string    `json:"contact_details"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	BannedBy       *string   `json:"banned_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuthPayload is the body of register and login responses, successful or not.
type AuthPayload struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	Reason       string       `json:"reason,omitempty"`
	Token        string       `json:"token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	AccessExp    int64        `json:"access_exp,omitempty"`
	RefreshExp   int64        `json:"refresh_exp,omitempty"`
	User         *AccountView `json:"user"`
}

func ToView(a *models.Account) *AccountView {
	if a == nil {
		return nil
	}
	return &AccountView{
		ID:             a.ID.String(),
		Username:       a.Username,
		Email:          a.Email,
		ContactDetails: a.ContactDetails,
		Role:           string(a.Role),
		Status:         string(a.Status),
		BannedBy:       a.BannedBy,
		CreatedAt:      a.CreatedAt,
	}
}

func ToViews(list []models.Account) []AccountView {
	out := make([]AccountView, 0, len(list))
	for i := range list {
		out = append(out, *ToView(&list[i]))
	}
	return out
}
