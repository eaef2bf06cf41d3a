package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/auth/internal/models"
)

func parseAccountID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad user id", apperr.ErrValidation)
	}
	return uid, nil
}

func (s *AuthService) ListAccounts(ctx context.Context, actor moderation.Principal) ([]models.Account, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.Repo.ListAccounts(ctx)
}

func (s *AuthService) GetAccount(ctx context.Context, actor moderation.Principal, id string) (*models.Account, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	uid, err := parseAccountID(id)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, uid)
}

// SetAccountStatus bans or unbans. A ban records the acting admin and ends
// every open session of the account; unban clears BannedBy.
func (s *AuthService) SetAccountStatus(ctx context.Context, actor moderation.Principal, id string, status moderation.Status) (*models.Account, error) {
	l := logging.FromContext(ctx).With("svc", "auth.set_status", "target", id, "status", status)

	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	uid, err := parseAccountID(id)
	if err != nil {
		return nil, err
	}
	if status == moderation.StatusBanned && actor.ID == uid.String() {
		return nil, fmt.Errorf("%w: admins cannot ban themselves", apperr.ErrForbidden)
	}

	var bannedBy *string
	if status == moderation.StatusBanned {
		by := actor.Username
		bannedBy = &by
	}

	acc, err := s.Repo.SetStatus(ctx, uid, status, bannedBy)
	if err != nil {
		l.Warn("set_status_failed", "error", err)
		return nil, err
	}

	typ := "account.unbanned"
	if status == moderation.StatusBanned {
		typ = "account.banned"
	}
	s.publish(ctx, typ, acc)
	l.Info("set_status_successful", "admin", actor.Username)
	return acc, nil
}

func (s *AuthService) DeleteAccount(ctx context.Context, actor moderation.Principal, id string) error {
	if err := moderation.RequireAdmin(actor); err != nil {
		return err
	}
	uid, err := parseAccountID(id)
	if err != nil {
		return err
	}
	acc, err := s.Repo.FindByID(ctx, uid)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteAccount(ctx, uid); err != nil {
		return err
	}
	s.publish(ctx, "account.deleted", acc)
	logging.FromContext(ctx).Info("delete_account_successful", "target", id, "admin", actor.Username)
	return nil
}
