package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/storefront/api"
	"github.com/tradezone/marketplace/storefront/cart"
)

type fakeCart struct {
	mu       sync.Mutex
	entries  []cart.Entry
	clearErr error
}

func (c *fakeCart) Entries() []cart.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]cart.Entry(nil), c.entries...)
}

func (c *fakeCart) Remove(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.entries[:0:0]
	for _, e := range c.entries {
		if e.ListingID != id {
			out = append(out, e)
		}
	}
	c.entries = out
	return nil
}

func (c *fakeCart) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clearErr != nil {
		return c.clearErr
	}
	c.entries = nil
	return nil
}

type fakeListings map[string]api.Listing

func (l fakeListings) GetListing(_ context.Context, id string) (*api.Listing, error) {
	if id == "flaky" {
		return nil, fmt.Errorf("%w: connection refused", apperr.ErrTransport)
	}
	got, ok := l[id]
	if !ok {
		return nil, fmt.Errorf("%w: Item not found", apperr.ErrNotFound)
	}
	return &got, nil
}

type fakeOrders struct {
	mu    sync.Mutex
	keys  []string
	reqs  []api.CreateOrderRequest
	errs  []error
	block chan struct{}
	ready chan struct{}
}

func (o *fakeOrders) CreateOrder(_ context.Context, in api.CreateOrderRequest, key string) (*api.Order, error) {
	if o.ready != nil {
		close(o.ready)
	}
	if o.block != nil {
		<-o.block
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keys = append(o.keys, key)
	o.reqs = append(o.reqs, in)
	if len(o.errs) > 0 {
		err := o.errs[0]
		o.errs = o.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &api.Order{OrderID: "ORD_1_aaaaaaaaa", TotalAmount: 35}, nil
}

func (o *fakeOrders) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.keys)
}

var (
	chairLamp = []cart.Entry{
		{ListingID: "chair", Name: "Chair", Price: 25, Quantity: 1},
		{ListingID: "lamp", Name: "Lamp", Price: 10, Quantity: 1},
	}
	delivery = api.Delivery{Name: "Bob", Address: "1 Main St", Phone: "555-0100", PaymentMethod: "credit_card"}
)

func TestSubmitSuccessClearsCart(t *testing.T) {
	c := &fakeCart{entries: chairLamp}
	orders := &fakeOrders{}
	f := New(c, orders, nil, nil)
	assert.Equal(t, StateIdle, f.State())

	order, err := f.Submit(context.Background(), delivery)
	require.NoError(t, err)
	assert.Equal(t, 35.0, order.TotalAmount)
	assert.Equal(t, StateSucceeded, f.State())
	assert.Same(t, order, f.Order())
	assert.Empty(t, c.Entries())

	require.Len(t, orders.reqs, 1)
	assert.Equal(t, []api.OrderLine{{ListingID: "chair", Quantity: 1}, {ListingID: "lamp", Quantity: 1}}, orders.reqs[0].Items)
	assert.NotEmpty(t, orders.keys[0])
}

func TestValidationNeverCallsServer(t *testing.T) {
	tests := []struct {
		name     string
		entries  []cart.Entry
		delivery api.Delivery
	}{
		{"empty cart", nil, delivery},
		{"blank item name", []cart.Entry{{ListingID: "x", Price: 1, Quantity: 1}}, delivery},
		{"zero price", []cart.Entry{{ListingID: "x", Name: "X", Quantity: 1}}, delivery},
		{"blank address", chairLamp, api.Delivery{Name: "Bob", Address: "  ", Phone: "1", PaymentMethod: "paypal"}},
		{"blank phone", chairLamp, api.Delivery{Name: "Bob", Address: "a", PaymentMethod: "paypal"}},
		{"no payment method", chairLamp, api.Delivery{Name: "Bob", Address: "a", Phone: "1"}},
		{"unknown payment method", chairLamp, api.Delivery{Name: "Bob", Address: "a", Phone: "1", PaymentMethod: "cash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCart{entries: tt.entries}
			orders := &fakeOrders{}
			f := New(c, orders, nil, nil)

			_, err := f.Submit(context.Background(), tt.delivery)
			var fl *Failure
			require.ErrorAs(t, err, &fl)
			assert.Equal(t, KindValidation, fl.Kind)
			require.ErrorIs(t, err, apperr.ErrValidation)

			assert.Equal(t, StateFailed, f.State())
			assert.Zero(t, orders.calls())
			assert.Equal(t, tt.entries, c.Entries())
		})
	}
}

func TestServerFailureKeepsCartAndReusesKey(t *testing.T) {
	c := &fakeCart{entries: chairLamp}
	orders := &fakeOrders{errs: []error{fmt.Errorf("%w: connection reset", apperr.ErrTransport)}}
	f := New(c, orders, nil, nil)

	_, err := f.Submit(context.Background(), delivery)
	var fl *Failure
	require.ErrorAs(t, err, &fl)
	assert.Equal(t, KindServer, fl.Kind)
	assert.Same(t, fl, f.Failure())
	assert.Len(t, c.Entries(), 2)

	_, err = f.Submit(context.Background(), delivery)
	require.NoError(t, err)
	require.Len(t, orders.keys, 2)
	assert.Equal(t, orders.keys[0], orders.keys[1])
	assert.Nil(t, f.Failure())
}

func TestForbiddenIsServerKind(t *testing.T) {
	orders := &fakeOrders{errs: []error{fmt.Errorf("%w: listing is banned", apperr.ErrForbidden)}}
	f := New(&fakeCart{entries: chairLamp}, orders, nil, nil)

	_, err := f.Submit(context.Background(), delivery)
	var fl *Failure
	require.True(t, errors.As(err, &fl))
	assert.Equal(t, KindServer, fl.Kind)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestChangedContentGetsNewKey(t *testing.T) {
	c := &fakeCart{entries: chairLamp}
	orders := &fakeOrders{errs: []error{apperr.ErrTransport}}
	f := New(c, orders, nil, nil)

	_, _ = f.Submit(context.Background(), delivery)
	other := delivery
	other.Address = "2 Side St"
	_, err := f.Submit(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, orders.keys[0], orders.keys[1])

	c.entries = chairLamp
	_, err = f.Submit(context.Background(), other)
	require.NoError(t, err)
	assert.NotEqual(t, orders.keys[1], orders.keys[2])
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	c := &fakeCart{entries: chairLamp}
	orders := &fakeOrders{block: make(chan struct{}), ready: make(chan struct{})}
	f := New(c, orders, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background(), delivery)
		done <- err
	}()
	<-orders.ready
	assert.Equal(t, StateSubmitting, f.State())

	_, err := f.Submit(context.Background(), delivery)
	require.ErrorIs(t, err, ErrSubmitInFlight)

	close(orders.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, orders.calls())
}

func TestReset(t *testing.T) {
	f := New(&fakeCart{entries: chairLamp}, &fakeOrders{}, nil, nil)
	_, err := f.Submit(context.Background(), delivery)
	require.NoError(t, err)

	f.Reset()
	assert.Equal(t, StateIdle, f.State())
	assert.Nil(t, f.Order())
}

func TestDeletedItemIsPrunedFromCart(t *testing.T) {
	c := &fakeCart{entries: append(chairLamp, cart.Entry{ListingID: "flaky", Name: "Flaky", Price: 1, Quantity: 1})}
	orders := &fakeOrders{errs: []error{fmt.Errorf("%w: Item not found", apperr.ErrNotFound)}}
	listings := fakeListings{"lamp": {ID: "lamp", Name: "Lamp", Price: 10}}
	f := New(c, orders, listings, nil)

	_, err := f.Submit(context.Background(), delivery)
	var fl *Failure
	require.ErrorAs(t, err, &fl)
	assert.Equal(t, KindStale, fl.Kind)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, []string{"chair"}, fl.Removed)
	assert.Equal(t, StateFailed, f.State())

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "lamp", entries[0].ListingID)
	assert.Equal(t, "flaky", entries[1].ListingID)

	_, err = f.Submit(context.Background(), delivery)
	require.NoError(t, err)
	require.Len(t, orders.reqs, 2)
	assert.Len(t, orders.reqs[1].Items, 2)
	assert.NotEqual(t, orders.keys[0], orders.keys[1])
}

func TestFailedClearKeepsKey(t *testing.T) {
	c := &fakeCart{entries: chairLamp, clearErr: errors.New("disk full")}
	orders := &fakeOrders{}
	f := New(c, orders, nil, nil)

	_, err := f.Submit(context.Background(), delivery)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, f.State())

	_, err = f.Submit(context.Background(), delivery)
	require.NoError(t, err)
	require.Len(t, orders.keys, 2)
	assert.Equal(t, orders.keys[0], orders.keys[1])

	c.clearErr = nil
	_, err = f.Submit(context.Background(), delivery)
	require.NoError(t, err)
	c.entries = chairLamp
	_, err = f.Submit(context.Background(), delivery)
	require.NoError(t, err)
	require.Len(t, orders.keys, 4)
	assert.Equal(t, orders.keys[0], orders.keys[2])
	assert.NotEqual(t, orders.keys[2], orders.keys[3])
}
