package service

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/catalogclient"
	"github.com/tradezone/marketplace/pkg/db"
	"github.com/tradezone/marketplace/pkg/events"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/order/internal/models"
	"github.com/tradezone/marketplace/services/order/internal/repo"
	"github.com/tradezone/marketplace/services/order/internal/transport"
)

type fakeCatalog struct {
	mu       sync.Mutex
	listings map[string]catalogclient.Listing
	calls    int
}

func (f *fakeCatalog) GetListing(_ context.Context, id string) (*catalogclient.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	l, ok := f.listings[id]
	if !ok {
		return nil, fmt.Errorf("%w: listing %s", apperr.ErrNotFound, id)
	}
	return &l, nil
}

var (
	alice = moderation.Principal{ID: "alice-id", Username: "alice", Role: moderation.RoleUser}
	bob   = moderation.Principal{ID: "bob-id", Username: "bob", Role: moderation.RoleUser}
	root  = moderation.Principal{ID: "root-id", Username: "root", Role: moderation.RoleAdmin}

	delivery = transport.DeliveryRequest{Name: "Bob", Address: "1 Main St", Phone: "555-0100", PaymentMethod: "credit_card"}
)

func newService(t *testing.T) (*OrderService, *fakeCatalog, *events.MemoryPublisher) {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := repo.New(gdb)
	require.NoError(t, r.Migrate())

	cat := &fakeCatalog{listings: map[string]catalogclient.Listing{
		"chair":  {ID: "chair", Name: "Chair", Price: 25, OwnerID: "alice-id", OwnerUsername: "alice", InStock: true, Status: moderation.StatusActive},
		"lamp":   {ID: "lamp", Name: "Lamp", Price: 10, OwnerID: "alice-id", OwnerUsername: "alice", InStock: true, Status: moderation.StatusActive},
		"knife":  {ID: "knife", Name: "Knife", Price: 5, OwnerID: "alice-id", OwnerUsername: "alice", InStock: true, Status: moderation.StatusBanned},
		"sofa":   {ID: "sofa", Name: "Sofa", Price: 300, OwnerID: "alice-id", OwnerUsername: "alice", InStock: false, Status: moderation.StatusActive},
		"bobpen": {ID: "bobpen", Name: "Pen", Price: 2, OwnerID: "bob-id", OwnerUsername: "bob", InStock: true, Status: moderation.StatusActive},
		"dime":   {ID: "dime", Name: "Dime", Price: 0.1, OwnerID: "alice-id", OwnerUsername: "alice", InStock: true, Status: moderation.StatusActive},
		"nickel": {ID: "nickel", Name: "Nickel", Price: 0.2, OwnerID: "alice-id", OwnerUsername: "alice", InStock: true, Status: moderation.StatusActive},
	}}
	pub := &events.MemoryPublisher{}
	return &OrderService{Repo: r, Catalog: cat, Events: pub}, cat, pub
}

func items(ids ...string) []transport.CreateOrderItem {
	out := make([]transport.CreateOrderItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, transport.CreateOrderItem{ListingID: id, Quantity: 1})
	}
	return out
}

func TestCreateOrder_ChairAndLamp(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	order, created, err := svc.CreateOrder(ctx, bob, transport.CreateOrderRequest{Items: items("chair", "lamp"), Delivery: delivery}, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 35.0, order.TotalAmount)
	assert.Equal(t, models.StatusCompleted, order.Status)
	assert.Equal(t, "bob", order.BuyerUsername)
	assert.Regexp(t, regexp.MustCompile(`^ORD_\d+_[0-9a-z]{9}$`), order.OrderID)
	require.Len(t, order.Items, 2)

	stored, err := svc.Get(ctx, bob, order.ID.String())
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, models.PaymentCreditCard, stored.Delivery.PaymentMethod)

	assert.Equal(t, []string{"order.created"}, pub.Types(events.TopicOrders))
}

func TestCreateOrder_ServerPricesIgnoreClient(t *testing.T) {
	svc, cat, _ := newService(t)
	ctx := context.Background()

	cat.listings["chair"] = catalogclient.Listing{ID: "chair", Name: "Chair", Price: 27.5, OwnerID: "alice-id", InStock: true, Status: moderation.StatusActive}
	order, _, err := svc.CreateOrder(ctx, bob, transport.CreateOrderRequest{Items: items("chair"), Delivery: delivery}, "")
	require.NoError(t, err)
	assert.Equal(t, 27.5, order.TotalAmount)
}

func TestCreateOrder_RoundsToCents(t *testing.T) {
	svc, _, _ := newService(t)
	order, _, err := svc.CreateOrder(context.Background(), bob, transport.CreateOrderRequest{Items: items("dime", "nickel"), Delivery: delivery}, "")
	require.NoError(t, err)
	assert.Equal(t, 0.3, order.TotalAmount)
}

func TestCreateOrder_Rejections(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		buyer moderation.Principal
		req   transport.CreateOrderRequest
		want  error
	}{
		{name: "empty cart", buyer: bob, req: transport.CreateOrderRequest{Delivery: delivery}, want: apperr.ErrValidation},
		{name: "duplicate listing", buyer: bob, req: transport.CreateOrderRequest{Items: items("chair", "chair"), Delivery: delivery}, want: apperr.ErrValidation},
		{name: "missing listing", buyer: bob, req: transport.CreateOrderRequest{Items: items("ghost"), Delivery: delivery}, want: apperr.ErrNotFound},
		{name: "banned listing", buyer: bob, req: transport.CreateOrderRequest{Items: items("knife"), Delivery: delivery}, want: apperr.ErrForbidden},
		{name: "own listing", buyer: alice, req: transport.CreateOrderRequest{Items: items("chair"), Delivery: delivery}, want: apperr.ErrForbidden},
		{name: "out of stock", buyer: bob, req: transport.CreateOrderRequest{Items: items("sofa"), Delivery: delivery}, want: apperr.ErrConflict},
		{name: "admin cannot buy", buyer: root, req: transport.CreateOrderRequest{Items: items("chair"), Delivery: delivery}, want: apperr.ErrForbidden},
		{name: "anonymous", buyer: moderation.Principal{}, req: transport.CreateOrderRequest{Items: items("chair"), Delivery: delivery}, want: apperr.ErrUnauthorized},
		{name: "blank address", buyer: bob, req: transport.CreateOrderRequest{Items: items("chair"), Delivery: transport.DeliveryRequest{Name: "Bob", Phone: "1", PaymentMethod: "paypal"}}, want: apperr.ErrValidation},
		{name: "bad payment method", buyer: bob, req: transport.CreateOrderRequest{Items: items("chair"), Delivery: transport.DeliveryRequest{Name: "Bob", Address: "x", Phone: "1", PaymentMethod: "cash"}}, want: apperr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.CreateOrder(ctx, tt.buyer, tt.req, "")
			require.ErrorIs(t, err, tt.want)
		})
	}

	all, err := svc.ListAll(ctx, root)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateOrder_IdempotencyKeyReplays(t *testing.T) {
	svc, cat, _ := newService(t)
	ctx := context.Background()
	req := transport.CreateOrderRequest{Items: items("chair", "lamp"), Delivery: delivery}

	first, created, err := svc.CreateOrder(ctx, bob, req, "key-1")
	require.NoError(t, err)
	assert.True(t, created)
	callsAfterFirst := cat.calls

	second, created, err := svc.CreateOrder(ctx, bob, req, "key-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, callsAfterFirst, cat.calls)

	mine, err := svc.ListMine(ctx, bob)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, created, err = svc.CreateOrder(ctx, bob, req, "key-2")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestGet_OwnerOrAdmin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	order, _, err := svc.CreateOrder(ctx, bob, transport.CreateOrderRequest{Items: items("chair"), Delivery: delivery}, "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, alice, order.ID.String())
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Get(ctx, root, order.ID.String())
	require.NoError(t, err)
	_, err = svc.Get(ctx, root, "nope")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateStatus(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()
	order, _, err := svc.CreateOrder(ctx, bob, transport.CreateOrderRequest{Items: items("chair"), Delivery: delivery}, "")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, bob, order.ID.String(), "refunded")
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.UpdateStatus(ctx, root, order.ID.String(), "shipped")
	require.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := svc.UpdateStatus(ctx, root, order.ID.String(), "refunded")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRefunded, updated.Status)
	assert.Equal(t, order.TotalAmount, updated.TotalAmount)

	byUser, err := svc.ListByUser(ctx, root, bob.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, models.StatusRefunded, byUser[0].Status)

	assert.Equal(t, []string{"order.created", "order.status_changed"}, pub.Types(events.TopicOrders))
}
