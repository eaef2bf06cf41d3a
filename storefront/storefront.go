// Package storefront is the client core of the marketplace: the session,
// the cart and checkout, kept in a durable mirror and backed by the gateway.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/storefront/api"
	"github.com/tradezone/marketplace/storefront/cart"
	"github.com/tradezone/marketplace/storefront/checkout"
	"github.com/tradezone/marketplace/storefront/mirror"
	"github.com/tradezone/marketplace/storefront/session"
)

var (
	ErrAccountBanned  = fmt.Errorf("%w: your account has been banned", apperr.ErrForbidden)
	ErrUnknownUser    = fmt.Errorf("%w: user not found", apperr.ErrUnauthorized)
	ErrWrongPassword  = fmt.Errorf("%w: invalid password", apperr.ErrUnauthorized)
	ErrNotLoggedIn    = fmt.Errorf("%w: not logged in", apperr.ErrUnauthorized)
	ErrSessionExpired = fmt.Errorf("%w: session expired, log in again", apperr.ErrUnauthorized)
	ErrListingGone    = fmt.Errorf("%w: listing no longer exists, refresh the list", apperr.ErrNotFound)
)

type Config struct {
	GatewayURL string
	MirrorPath string
	Logger     *slog.Logger
	HTTPClient *http.Client
}

type Client struct {
	API       *api.Client
	Mirror    *mirror.GormStore
	Sessions  *session.Store
	Cart      *cart.Store
	Finalizer *checkout.Finalizer

	log *slog.Logger
}

// New opens the mirror and wires the stores. Call Start before use.
func New(cfg Config) (*Client, error) {
	if cfg.GatewayURL == "" {
		return nil, fmt.Errorf("%w: gateway url is required", apperr.ErrValidation)
	}
	if cfg.MirrorPath == "" {
		return nil, fmt.Errorf("%w: mirror path is required", apperr.ErrValidation)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	m, err := mirror.Open(cfg.MirrorPath)
	if err != nil {
		return nil, err
	}

	opts := []api.Option{api.WithLogger(logger)}
	if cfg.HTTPClient != nil {
		opts = append(opts, api.WithHTTPClient(cfg.HTTPClient))
	}

	c := &Client{
		API:      api.New(cfg.GatewayURL, opts...),
		Mirror:   m,
		Sessions: session.New(m, logger),
		log:      logger.With("component", "storefront"),
	}
	c.Cart = cart.New(m, c.Sessions, logger)
	c.Finalizer = checkout.New(c.Cart, orderCreator{c}, c.API, logger)
	return c, nil
}

// Start restores the session and its cart from the mirror.
func (c *Client) Start(ctx context.Context) error {
	if err := c.Sessions.Rehydrate(ctx); err != nil {
		return err
	}
	return c.Cart.Rehydrate(ctx)
}

func (c *Client) Close() error {
	return c.Mirror.Close()
}

func (c *Client) Session() session.Session {
	return c.Sessions.Current()
}

// Login authenticates against the server and then records the session.
func (c *Client) Login(ctx context.Context, username, password string) (session.Session, error) {
	payload, err := c.API.Login(ctx, username, password)
	if err != nil {
		switch api.Reason(err) {
		case "banned":
			return session.Session{}, ErrAccountBanned
		case "unknown_user":
			return session.Session{}, ErrUnknownUser
		case "wrong_password":
			return session.Session{}, ErrWrongPassword
		}
		return session.Session{}, err
	}
	return c.startSession(ctx, payload)
}

// Register creates the account and logs straight into it.
func (c *Client) Register(ctx context.Context, in api.RegisterRequest) (session.Session, error) {
	payload, err := c.API.Register(ctx, in)
	if err != nil {
		return session.Session{}, err
	}
	return c.startSession(ctx, payload)
}

func (c *Client) startSession(ctx context.Context, payload *api.AuthPayload) (session.Session, error) {
	if payload.User == nil {
		return session.Session{}, fmt.Errorf("%w: auth response without user", apperr.ErrTransport)
	}
	if err := c.Sessions.Logout(ctx); err != nil {
		c.log.Warn("previous_session_cleanup_error", "error", err)
	}
	err := c.Sessions.Login(ctx, session.Session{
		Username:     payload.User.Username,
		Role:         payload.User.Role,
		AccountID:    payload.User.ID,
		Token:        payload.Token,
		RefreshToken: payload.RefreshToken,
	})
	if err != nil {
		return session.Session{}, err
	}
	if err := c.Cart.Rehydrate(ctx); err != nil {
		c.log.Warn("cart_rehydrate_error", "error", err)
	}
	return c.Sessions.Current(), nil
}

// Logout revokes the refresh token when the server is reachable and always
// ends the local session.
func (c *Client) Logout(ctx context.Context) error {
	cur := c.Sessions.Current()
	if cur.LoggedIn() {
		if err := c.API.Logout(ctx, cur.Token, cur.RefreshToken); err != nil {
			c.log.Warn("logout_revoke_error", "error", err)
		}
	}
	return c.Sessions.Logout(ctx)
}

func (c *Client) Listings(ctx context.Context) ([]api.Listing, error) {
	return c.API.ListListings(ctx)
}

func (c *Client) Listing(ctx context.Context, id string) (*api.Listing, error) {
	return c.API.GetListing(ctx, id)
}

func (c *Client) SellerListings(ctx context.Context, sellerID string) ([]api.Listing, error) {
	return c.API.ListSellerListings(ctx, sellerID)
}

func (c *Client) MyListings(ctx context.Context) ([]api.Listing, error) {
	return withAuth(ctx, c, func(tok string) ([]api.Listing, error) {
		return c.API.ListMyListings(ctx, tok)
	})
}

func (c *Client) CreateListing(ctx context.Context, in api.ListingInput) (*api.Listing, error) {
	return withAuth(ctx, c, func(tok string) (*api.Listing, error) {
		return c.API.CreateListing(ctx, tok, in)
	})
}

func (c *Client) UpdateListing(ctx context.Context, id string, patch api.ListingPatch) (*api.Listing, error) {
	return withAuth(ctx, c, func(tok string) (*api.Listing, error) {
		return c.API.UpdateListing(ctx, tok, id, patch)
	})
}

func (c *Client) DeleteListing(ctx context.Context, id string) error {
	_, err := withAuth(ctx, c, func(tok string) (struct{}, error) {
		return struct{}{}, c.API.DeleteListing(ctx, tok, id)
	})
	return err
}

// AddToCart fetches the listing so the cart checks its current status. A
// listing that no longer exists is also dropped from the cart.
func (c *Client) AddToCart(ctx context.Context, listingID string) error {
	if !c.Sessions.Current().LoggedIn() {
		return cart.ErrNotLoggedIn
	}
	l, err := c.API.GetListing(ctx, listingID)
	if errors.Is(err, apperr.ErrNotFound) {
		if rerr := c.Cart.Remove(ctx, listingID); rerr != nil {
			c.log.Warn("cart_prune_error", "listing_id", listingID, "error", rerr)
		}
		return fmt.Errorf("%w: %s", ErrListingGone, listingID)
	}
	if err != nil {
		return err
	}
	return c.Cart.Add(ctx, *l)
}

func (c *Client) RemoveFromCart(ctx context.Context, listingID string) error {
	return c.Cart.Remove(ctx, listingID)
}

func (c *Client) Checkout(ctx context.Context, d api.Delivery) (*api.Order, error) {
	return c.Finalizer.Submit(ctx, d)
}

func (c *Client) MyOrders(ctx context.Context) ([]api.Order, error) {
	return withAuth(ctx, c, func(tok string) ([]api.Order, error) {
		return c.API.MyOrders(ctx, tok)
	})
}

type orderCreator struct{ c *Client }

func (o orderCreator) CreateOrder(ctx context.Context, in api.CreateOrderRequest, key string) (*api.Order, error) {
	return withAuth(ctx, o.c, func(tok string) (*api.Order, error) {
		return o.c.API.CreateOrder(ctx, tok, in, key)
	})
}

// withAuth calls fn with the session token. An expired token is refreshed
// once and fn retried; a refused refresh ends the session.
func withAuth[T any](ctx context.Context, c *Client, fn func(token string) (T, error)) (T, error) {
	var zero T
	cur := c.Sessions.Current()
	if !cur.LoggedIn() {
		return zero, ErrNotLoggedIn
	}

	out, err := fn(cur.Token)
	if err == nil || !api.IsExpired(err) || cur.RefreshToken == "" {
		return out, err
	}

	tok, rerr := c.API.Refresh(ctx, cur.RefreshToken)
	if rerr != nil {
		if errors.Is(rerr, apperr.ErrTransport) {
			return zero, rerr
		}
		c.log.Warn("refresh_error", "error", rerr)
		if lerr := c.Sessions.Logout(ctx); lerr != nil {
			c.log.Warn("logout_error", "error", lerr)
		}
		if errors.Is(rerr, apperr.ErrForbidden) {
			return zero, ErrAccountBanned
		}
		return zero, ErrSessionExpired
	}
	if err := c.Sessions.UpdateTokens(ctx, tok.AccessToken, tok.RefreshToken); err != nil {
		return zero, err
	}
	return fn(tok.AccessToken)
}

func (c *Client) requireAdmin() error {
	cur := c.Sessions.Current()
	if !cur.LoggedIn() {
		return ErrNotLoggedIn
	}
	return moderation.RequireAdmin(cur.Principal())
}
