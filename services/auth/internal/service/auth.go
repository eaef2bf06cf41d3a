package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/events"
	"github.com/tradezone/marketplace/pkg/hash"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/pkg/tokens"
	"github.com/tradezone/marketplace/services/auth/internal/models"
	"github.com/tradezone/marketplace/services/auth/internal/repo"
)

var (
	ErrUsernameTaken       = fmt.Errorf("%w: Username already exists", apperr.ErrConflict)
	ErrEmailTaken          = fmt.Errorf("%w: Email already exists", apperr.ErrConflict)
	ErrUnknownUser         = fmt.Errorf("%w: User not found", apperr.ErrUnauthorized)
	ErrWrongPassword       = fmt.Errorf("%w: Invalid password", apperr.ErrUnauthorized)
	ErrAccountBanned       = fmt.Errorf("%w: Your account has been banned.", apperr.ErrForbidden)
	ErrInvalidRefreshToken = fmt.Errorf("%w: invalid refresh token", apperr.ErrUnauthorized)
)

const minPasswordLen = 6

type AuthService struct {
	Repo           *repo.GormRepo
	JWTSecret      []byte
	RefreshSecret  []byte
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	AdminInviteKey string
	Events         events.Publisher
}

type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	ContactDetails string
	Role           string
	AdminKey       string
}

type AuthResult struct {
	Account      *models.Account
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// LoginReason names the failure for clients that render distinct messages.
func LoginReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrAccountBanned):
		return "banned"
	case errors.Is(err, ErrWrongPassword):
		return "wrong_password"
	}
	return ""
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	role, err := s.validateRegister(in)
	if err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return nil, err
	}

	if taken, err := s.Repo.UsernameExists(ctx, in.Username); err != nil {
		l.Error("register_error", "status", 500, "reason", "username lookup failed", "error", err)
		return nil, err
	} else if taken {
		l.Warn("register_error", "status", 409, "reason", "username taken")
		return nil, ErrUsernameTaken
	}
	if taken, err := s.Repo.EmailExists(ctx, in.Email); err != nil {
		l.Error("register_error", "status", 500, "reason", "email lookup failed", "error", err)
		return nil, err
	} else if taken {
		l.Warn("register_error", "status", 409, "reason", "email taken")
		return nil, ErrEmailTaken
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	acc := &models.Account{
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   pwHash,
		ContactDetails: in.ContactDetails,
		Role:           role,
		Status:         moderation.StatusActive,
	}
	if err := s.Repo.CreateAccount(ctx, acc); err != nil {
		l.Error("register_error", "reason", "create failed", "error", err)
		return nil, err
	}

	s.publish(ctx, "account.registered", acc)
	l.Info("register_successful", "user_id", acc.ID, "role", acc.Role)

	return s.issue(ctx, acc)
}

func (s *AuthService) validateRegister(in RegisterInput) (moderation.Role, error) {
	if in.Username == "" {
		return "", fmt.Errorf("%w: username is required", apperr.ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return "", fmt.Errorf("%w: a valid email is required", apperr.ErrValidation)
	}
	if len(in.Password) < minPasswordLen {
		return "", fmt.Errorf("%w: password must be at least %d characters", apperr.ErrValidation, minPasswordLen)
	}

	switch moderation.Role(in.Role) {
	case "", moderation.RoleUser:
		return moderation.RoleUser, nil
	case moderation.RoleAdmin:
		if s.AdminInviteKey == "" || in.AdminKey != s.AdminInviteKey {
			return "", fmt.Errorf("%w: admin registration requires a valid invite key", apperr.ErrForbidden)
		}
		return moderation.RoleAdmin, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", apperr.ErrValidation, in.Role)
}

// Login reports unknown users and banned accounts before checking the password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", apperr.ErrValidation)
	}

	acc, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown_user")
			return nil, ErrUnknownUser
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	if !moderation.IsUsableAccount(acc) {
		l.Warn("login_failed", "status", 403, "reason", "banned")
		return nil, ErrAccountBanned
	}
	if !hash.CheckPassword(acc.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong_password")
		return nil, ErrWrongPassword
	}

	l.Info("login_successful")
	return s.issue(ctx, acc)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "bad token", "error", err)
		return nil, ErrInvalidRefreshToken
	}
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	acc, err := s.Repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "account deleted")
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !moderation.IsUsableAccount(acc) {
		l.Warn("refresh_failed", "status", 403, "reason", "banned", "user_id", acc.ID)
		return nil, ErrAccountBanned
	}

	res, next, err := s.newPair(acc)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, next); err != nil {
		if errors.Is(err, repo.ErrRefreshNotFound) || errors.Is(err, repo.ErrRefreshRevoked) {
			l.Warn("refresh_failed", "status", 401, "reason", err.Error())
			return nil, ErrInvalidRefreshToken
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}
	return res, nil
}

func (s *AuthService) LogOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, refreshToken)
}

func (s *AuthService) Me(ctx context.Context, id string) (*models.Account, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user id", apperr.ErrUnauthorized)
	}
	return s.Repo.FindByID(ctx, uid)
}

func (s *AuthService) issue(ctx context.Context, acc *models.Account) (*AuthResult, error) {
	res, rt, err := s.newPair(acc)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, rt); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *AuthService) newPair(acc *models.Account) (*AuthResult, *models.RefreshToken, error) {
	now := time.Now()
	accessExp := now.Add(s.accessTTL())
	refreshExp := now.Add(s.refreshTTL())

	access, err := tokens.NewAccessToken(s.JWTSecret, acc.ID.String(), acc.Username, string(acc.Role), accessExp)
	if err != nil {
		return nil, nil, err
	}
	refresh, jti, err := tokens.NewRefreshToken(s.RefreshSecret, acc.ID.String(), refreshExp)
	if err != nil {
		return nil, nil, err
	}

	rt := &models.RefreshToken{
		Token:     tokens.Sha256Hex(refresh),
		AccountID: acc.ID,
		JTI:       jti,
		ExpiresAt: refreshExp.Unix(),
	}
	return &AuthResult{
		Account:      acc,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, rt, nil
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return 15 * time.Minute
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return 7 * 24 * time.Hour
}

func (s *AuthService) publish(ctx context.Context, typ string, acc *models.Account) {
	if s.Events == nil {
		return
	}
	err := s.Events.Publish(ctx, events.TopicAccounts, acc.ID.String(), events.Event{
		Type: typ,
		Payload: map[string]any{
			"id":        acc.ID,
			"username":  acc.Username,
			"status":    acc.Status,
			"banned_by": acc.BannedBy,
		},
	})
	if err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", typ, "error", err)
	}
}
