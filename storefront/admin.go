package storefront

import (
	"context"

	"github.com/tradezone/marketplace/storefront/api"
)

// The admin operations are refused locally for non-admin sessions.

func (c *Client) Accounts(ctx context.Context) ([]api.Account, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	return withAuth(ctx, c, func(tok string) ([]api.Account, error) {
		return c.API.ListAccounts(ctx, tok)
	})
}

func (c *Client) SetAccountBanned(ctx context.Context, accountID string, banned bool) (*api.Account, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	return withAuth(ctx, c, func(tok string) (*api.Account, error) {
		return c.API.SetAccountStatus(ctx, tok, accountID, banned)
	})
}

func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	if err := c.requireAdmin(); err != nil {
		return err
	}
	_, err := withAuth(ctx, c, func(tok string) (struct{}, error) {
		return struct{}{}, c.API.DeleteAccount(ctx, tok, accountID)
	})
	return err
}

func (c *Client) AllListings(ctx context.Context) ([]api.Listing, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	return withAuth(ctx, c, func(tok string) ([]api.Listing, error) {
		return c.API.ListAllListings(ctx, tok)
	})
}

func (c *Client) SetListingBanned(ctx context.Context, listingID string, banned bool) (*api.Listing, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	return withAuth(ctx, c, func(tok string) (*api.Listing, error) {
		return c.API.SetListingStatus(ctx, tok, listingID, banned)
	})
}

func (c *Client) AllOrders(ctx context.Context) ([]api.Order, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	return withAuth(ctx, c, func(tok string) ([]api.Order, error) {
		return c.API.AllOrders(ctx, tok)
	})
}

func (c *Client) OrdersByUser(ctx context.Context, accountID string) ([]api.Order, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	return withAuth(ctx, c, func(tok string) ([]api.Order, error) {
		return c.API.OrdersByUser(ctx, tok, accountID)
	})
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) (*api.Order, error) {
	if err := c.requireAdmin(); err != nil {
		return nil, err
	}
	return withAuth(ctx, c, func(tok string) (*api.Order, error) {
		return c.API.UpdateOrderStatus(ctx, tok, orderID, status)
	})
}
