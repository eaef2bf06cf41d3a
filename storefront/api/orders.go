package api

import (
	"context"
	"net/http"
	"net/url"
)

// CreateOrder submits an order. A non-empty idemKey makes retries of the
// same submission return the order that was already created.
func (c *Client) CreateOrder(ctx context.Context, token string, in CreateOrderRequest, idemKey string) (*Order, error) {
	r := request{method: http.MethodPost, path: "/orders", token: token, body: in}
	if idemKey != "" {
		r.headers = map[string]string{headerIdempotencyKey: idemKey}
	}
	return c.order(ctx, r)
}

func (c *Client) MyOrders(ctx context.Context, token string) ([]Order, error) {
	return c.orders(ctx, "/orders/mine", token)
}

func (c *Client) AllOrders(ctx context.Context, token string) ([]Order, error) {
	return c.orders(ctx, "/orders", token)
}

func (c *Client) OrdersByUser(ctx context.Context, token, userID string) ([]Order, error) {
	return c.orders(ctx, "/orders/users/"+url.PathEscape(userID), token)
}

func (c *Client) GetOrder(ctx context.Context, token, id string) (*Order, error) {
	return c.order(ctx, request{method: http.MethodGet, path: "/orders/" + url.PathEscape(id), token: token})
}

func (c *Client) UpdateOrderStatus(ctx context.Context, token, id, status string) (*Order, error) {
	return c.order(ctx, request{
		method: http.MethodPatch,
		path:   "/orders/" + url.PathEscape(id) + "/status",
		token:  token,
		body:   map[string]string{"status": status},
	})
}

func (c *Client) orders(ctx context.Context, path, token string) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, request{method: http.MethodGet, path: path, token: token}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) order(ctx context.Context, r request) (*Order, error) {
	var out Order
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
