package catalogclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/moderation"
)

// Listing is the slice of a catalog listing the order service prices from.
type Listing struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Price         float64           `json:"price"`
	OwnerID       string            `json:"owner_id"`
	OwnerUsername string            `json:"owner_username"`
	InStock       bool              `json:"in_stock"`
	Status        moderation.Status `json:"status"`
}

func (l Listing) ModerationStatus() moderation.Status { return l.Status }

func (l Listing) OwnedBy(p moderation.Principal) bool {
	return p.Matches(l.OwnerID, l.OwnerUsername)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(catalogURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(catalogURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *Client) GetListing(ctx context.Context, id string) (*Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/catalog/listings/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", apperr.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: listing %s", apperr.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: catalog returned %d", apperr.ErrTransport, resp.StatusCode)
	}

	var l Listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &l, nil
}
