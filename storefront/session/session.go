// Package session holds who is logged in on this client. It is the only
// holder of the credential and mirrors every change to durable storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/storefront/mirror"
)

const (
	KeyUsername     = "session.username"
	KeyRole         = "session.role"
	KeyID           = "session.id"
	KeyAccountID    = "session.account_id"
	KeyToken        = "session.token"
	KeyRefreshToken = "session.refresh_token"
)

var allKeys = []string{KeyUsername, KeyRole, KeyID, KeyAccountID, KeyToken, KeyRefreshToken}

type Session struct {
	Username     string
	Role         moderation.Role
	ID           string
	AccountID    string
	Token        string
	RefreshToken string
}

func Guest() Session {
	return Session{Role: moderation.RoleGuest}
}

func (s Session) LoggedIn() bool {
	return s.Username != "" && s.Role != moderation.RoleGuest
}

// Principal is the session as seen by the moderation checks.
func (s Session) Principal() moderation.Principal {
	return moderation.Principal{ID: s.AccountID, Username: s.Username, Role: s.Role}
}

type Status int

const (
	StatusLoading Status = iota
	StatusReady
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "loading"
}

// LogoutHook runs after the session was reset; prev is the session that
// just ended.
type LogoutHook func(ctx context.Context, prev Session) error

type Store struct {
	mu     sync.RWMutex
	mirror mirror.Store
	log    *slog.Logger

	cur    Session
	status Status
	hooks  []LogoutHook
}

func New(m mirror.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		mirror: m,
		log:    logger.With("component", "session"),
		cur:    Guest(),
	}
}

func (s *Store) OnLogout(h LogoutHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Current reports guest until Rehydrate has finished.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusReady {
		return Guest()
	}
	return s.cur
}

// Rehydrate restores the session from the mirror. Only the first call reads
// storage; later calls are no-ops.
func (s *Store) Rehydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusReady {
		return nil
	}

	vals := make(map[string]string, len(allKeys))
	for _, k := range allKeys {
		v, ok, err := s.mirror.Get(ctx, k)
		if err != nil {
			s.log.Error("rehydrate_error", "key", k, "error", err)
			return fmt.Errorf("read session mirror: %w", err)
		}
		if ok {
			vals[k] = v
		}
	}

	restored := Guest()
	role, ok := moderation.ParseRole(vals[KeyRole])
	if ok && role != moderation.RoleGuest && vals[KeyUsername] != "" {
		restored = Session{
			Username:     vals[KeyUsername],
			Role:         role,
			ID:           vals[KeyID],
			AccountID:    vals[KeyAccountID],
			Token:        vals[KeyToken],
			RefreshToken: vals[KeyRefreshToken],
		}
		if restored.ID == "" {
			restored.ID = uuid.NewString()
		}
	}

	s.cur = restored
	s.status = StatusReady
	s.log.Info("session_rehydrated", "logged_in", restored.LoggedIn(), "role", restored.Role)
	return nil
}

// Login persists next to the mirror and then makes it current. A missing
// session id is generated.
func (s *Store) Login(ctx context.Context, next Session) error {
	if next.Username == "" {
		return fmt.Errorf("%w: username required", apperr.ErrValidation)
	}
	if next.Role != moderation.RoleUser && next.Role != moderation.RoleAdmin {
		return fmt.Errorf("%w: role %q cannot log in", apperr.ErrValidation, next.Role)
	}
	if next.ID == "" {
		next.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.mirror.SetMany(ctx, map[string]string{
		KeyUsername:     next.Username,
		KeyRole:         string(next.Role),
		KeyID:           next.ID,
		KeyAccountID:    next.AccountID,
		KeyToken:        next.Token,
		KeyRefreshToken: next.RefreshToken,
	})
	if err != nil {
		s.log.Error("login_error", "reason", "mirror write", "error", err)
		return fmt.Errorf("write session mirror: %w", err)
	}

	s.cur = next
	s.status = StatusReady
	s.log.Info("login_success", "username", next.Username, "role", next.Role)
	return nil
}

// UpdateTokens replaces the credential of the current session.
func (s *Store) UpdateTokens(ctx context.Context, token, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cur.LoggedIn() {
		return fmt.Errorf("%w: not logged in", apperr.ErrUnauthorized)
	}
	err := s.mirror.SetMany(ctx, map[string]string{
		KeyToken:        token,
		KeyRefreshToken: refreshToken,
	})
	if err != nil {
		return fmt.Errorf("write session mirror: %w", err)
	}
	s.cur.Token = token
	s.cur.RefreshToken = refreshToken
	return nil
}

// Logout resets to guest and runs every logout hook. Memory is reset even
// when the mirror or a hook fails; those errors are returned joined.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	prev := s.cur
	s.cur = Guest()
	s.status = StatusReady
	hooks := append([]LogoutHook(nil), s.hooks...)
	s.mu.Unlock()

	var errs []error
	if err := s.mirror.Delete(ctx, allKeys...); err != nil {
		s.log.Error("logout_error", "reason", "mirror delete", "error", err)
		errs = append(errs, fmt.Errorf("clear session mirror: %w", err))
	}
	for _, h := range hooks {
		if err := h(ctx, prev); err != nil {
			errs = append(errs, err)
		}
	}

	s.log.Info("logout", "username", prev.Username)
	return errors.Join(errs...)
}
