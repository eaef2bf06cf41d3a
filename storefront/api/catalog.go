package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListListings(ctx context.Context) ([]Listing, error) {
	return c.listings(ctx, "/catalog/listings", "")
}

func (c *Client) ListAllListings(ctx context.Context, token string) ([]Listing, error) {
	return c.listings(ctx, "/catalog/listings/all", token)
}

func (c *Client) ListMyListings(ctx context.Context, token string) ([]Listing, error) {
	return c.listings(ctx, "/catalog/listings/mine", token)
}

func (c *Client) ListSellerListings(ctx context.Context, sellerID string) ([]Listing, error) {
	return c.listings(ctx, "/catalog/sellers/"+url.PathEscape(sellerID)+"/listings", "")
}

func (c *Client) listings(ctx context.Context, path, token string) ([]Listing, error) {
	var out []Listing
	if err := c.do(ctx, request{method: http.MethodGet, path: path, token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetListing(ctx context.Context, id string) (*Listing, error) {
	return c.listing(ctx, request{method: http.MethodGet, path: "/catalog/listings/" + url.PathEscape(id)})
}

func (c *Client) CreateListing(ctx context.Context, token string, in ListingInput) (*Listing, error) {
	return c.listing(ctx, request{method: http.MethodPost, path: "/catalog/listings", token: token, body: in})
}

func (c *Client) UpdateListing(ctx context.Context, token, id string, patch ListingPatch) (*Listing, error) {
	return c.listing(ctx, request{method: http.MethodPatch, path: "/catalog/listings/" + url.PathEscape(id), token: token, body: patch})
}

func (c *Client) DeleteListing(ctx context.Context, token, id string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/catalog/listings/" + url.PathEscape(id), token: token}, nil)
}

func (c *Client) SetListingStatus(ctx context.Context, token, id string, banned bool) (*Listing, error) {
	return c.listing(ctx, request{method: http.MethodPost, path: "/catalog/listings/" + url.PathEscape(id) + banPath(banned), token: token})
}

func (c *Client) listing(ctx context.Context, r request) (*Listing, error) {
	var out Listing
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
