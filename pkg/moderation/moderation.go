// Package moderation holds the predicates every component consults before
// letting a listing or account take part in a purchase or an admin action.
package moderation

import (
	"fmt"
	"strings"

	"github.com/tradezone/marketplace/pkg/apperr"
)

type Status string

const (
	StatusActive Status = "active"
	StatusBanned Status = "banned"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusBanned:
		return StatusBanned, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", apperr.ErrValidation, s)
}

type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleGuest, RoleUser, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Subject is anything carrying a moderation status.
type Subject interface {
	ModerationStatus() Status
}

// Ownable is a purchasable subject with an owner.
type Ownable interface {
	Subject
	OwnedBy(p Principal) bool
}

// Principal is the acting identity as seen by a check.
type Principal struct {
	ID       string
	Username string
	Role     Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Matches compares by id when both sides carry one, otherwise by username.
func (p Principal) Matches(id, username string) bool {
	if p.ID != "" && id != "" {
		return p.ID == id
	}
	return p.Username != "" && p.Username == username
}

func IsUsable(s Subject) bool {
	return s != nil && s.ModerationStatus() == StatusActive
}

func IsUsableListing(l Subject) bool { return IsUsable(l) }

func IsUsableAccount(a Subject) bool { return IsUsable(a) }

func RequireAdmin(p Principal) error {
	if !p.IsAdmin() {
		return fmt.Errorf("%w: admin access required", apperr.ErrForbidden)
	}
	return nil
}

func RequireOwnerOrAdmin(p Principal, ownerID string) error {
	if p.IsAdmin() || (p.ID != "" && p.ID == ownerID) {
		return nil
	}
	return fmt.Errorf("%w: only the owner or an admin may do this", apperr.ErrForbidden)
}

// CanPurchase rejects own and banned listings.
func CanPurchase(p Principal, item Ownable) error {
	if item.OwnedBy(p) {
		return fmt.Errorf("%w: cannot buy your own listing", apperr.ErrForbidden)
	}
	if !IsUsable(item) {
		return fmt.Errorf("%w: listing is banned", apperr.ErrForbidden)
	}
	return nil
}
