package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/catalogclient"
	"github.com/tradezone/marketplace/pkg/events"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/services/order/internal/models"
	"github.com/tradezone/marketplace/services/order/internal/repo"
	"github.com/tradezone/marketplace/services/order/internal/transport"
)

type ListingSource interface {
	GetListing(ctx context.Context, id string) (*catalogclient.Listing, error)
}

type OrderService struct {
	Repo    *repo.GormRepo
	Catalog ListingSource
	Events  events.Publisher
	Now     func() time.Time
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateOrder prices every item from the catalog and stores the order. When
// idemKey was already used by this buyer the stored order is returned and
// created is false.
// The buyer's account status is not looked up: a banned buyer keeps ordering
// until their access token expires.
func (s *OrderService) CreateOrder(ctx context.Context, buyer moderation.Principal, req transport.CreateOrderRequest, idemKey string) (*models.Order, bool, error) {
	l := logging.FromContext(ctx).With("svc", "order.create", "buyer_id", buyer.ID)

	if buyer.ID == "" {
		return nil, false, fmt.Errorf("%w: login required", apperr.ErrUnauthorized)
	}
	if buyer.Role != moderation.RoleUser {
		return nil, false, fmt.Errorf("%w: only user accounts can place orders", apperr.ErrForbidden)
	}

	idemKey = strings.TrimSpace(idemKey)
	if idemKey != "" {
		existing, err := s.Repo.FindByIdempotencyKey(ctx, buyer.ID, idemKey)
		if err == nil {
			l.Info("create_order_replayed", "order_id", existing.OrderID)
			return existing, false, nil
		}
		if !errors.Is(err, repo.ErrOrderNotFound) {
			return nil, false, err
		}
	}

	delivery, err := validateDelivery(req.Delivery)
	if err != nil {
		l.Warn("create_order_error", "status", 400, "error", err)
		return nil, false, err
	}
	if err := validateItems(req.Items); err != nil {
		l.Warn("create_order_error", "status", 400, "error", err)
		return nil, false, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	var total float64
	for _, it := range req.Items {
		listing, err := s.Catalog.GetListing(ctx, it.ListingID)
		if err != nil {
			l.Warn("create_order_error", "listing_id", it.ListingID, "error", err)
			return nil, false, err
		}
		if err := moderation.CanPurchase(buyer, listing); err != nil {
			l.Warn("create_order_error", "status", 403, "listing_id", it.ListingID, "error", err)
			return nil, false, err
		}
		if !listing.InStock {
			return nil, false, fmt.Errorf("%w: %s is out of stock", apperr.ErrConflict, listing.Name)
		}

		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		items = append(items, models.OrderItem{
			ListingID: listing.ID,
			Name:      listing.Name,
			Price:     listing.Price,
			Quantity:  qty,
		})
		total += listing.Price * float64(qty)
	}

	orderID, err := newOrderID(s.now())
	if err != nil {
		return nil, false, err
	}
	order := &models.Order{
		OrderID:       orderID,
		BuyerID:       buyer.ID,
		BuyerUsername: buyer.Username,
		Items:         items,
		TotalAmount:   roundCents(total),
		Status:        models.StatusCompleted,
		Delivery:      delivery,
		CreatedAt:     s.now(),
	}
	if idemKey != "" {
		order.IdempotencyKey = &idemKey
	}

	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) && idemKey != "" {
			existing, ferr := s.Repo.FindByIdempotencyKey(ctx, buyer.ID, idemKey)
			if ferr == nil {
				return existing, false, nil
			}
		}
		l.Error("create_order_error", "status", 500, "error", err)
		return nil, false, err
	}

	s.publish(ctx, "order.created", order)
	l.Info("create_order_success", "order_id", order.OrderID, "total", order.TotalAmount)
	return order, true, nil
}

func validateItems(items []transport.CreateOrderItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: items required", apperr.ErrValidation)
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.ListingID) == "" {
			return fmt.Errorf("%w: listing_id required", apperr.ErrValidation)
		}
		if it.Quantity < 0 {
			return fmt.Errorf("%w: quantity must be > 0", apperr.ErrValidation)
		}
		if _, dup := seen[it.ListingID]; dup {
			return fmt.Errorf("%w: listing %s appears twice", apperr.ErrValidation, it.ListingID)
		}
		seen[it.ListingID] = struct{}{}
	}
	return nil
}

func validateDelivery(d transport.DeliveryRequest) (models.Delivery, error) {
	out := models.Delivery{
		Name:          strings.TrimSpace(d.Name),
		Address:       strings.TrimSpace(d.Address),
		Phone:         strings.TrimSpace(d.Phone),
		PaymentMethod: models.PaymentMethod(d.PaymentMethod),
	}
	switch {
	case out.Name == "":
		return out, fmt.Errorf("%w: delivery name is required", apperr.ErrValidation)
	case out.Address == "":
		return out, fmt.Errorf("%w: delivery address is required", apperr.ErrValidation)
	case out.Phone == "":
		return out, fmt.Errorf("%w: delivery phone is required", apperr.ErrValidation)
	case !out.PaymentMethod.Valid():
		return out, fmt.Errorf("%w: unsupported payment method %q", apperr.ErrValidation, d.PaymentMethod)
	}
	return out, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newOrderID returns "ORD_<unix ms>_<9 base36 chars>".
func newOrderID(t time.Time) (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(base36)))
	for i := 0; i < 9; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(base36[n.Int64()])
	}
	return fmt.Sprintf("ORD_%d_%s", t.UnixMilli(), sb.String()), nil
}

func (s *OrderService) ListMine(ctx context.Context, actor moderation.Principal) ([]models.Order, error) {
	if actor.ID == "" {
		return nil, fmt.Errorf("%w: login required", apperr.ErrUnauthorized)
	}
	return s.Repo.ListByBuyer(ctx, actor.ID)
}

func (s *OrderService) ListAll(ctx context.Context, actor moderation.Principal) ([]models.Order, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.Repo.ListAll(ctx)
}

func (s *OrderService) ListByUser(ctx context.Context, actor moderation.Principal, userID string) ([]models.Order, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.Repo.ListByBuyer(ctx, userID)
}

func (s *OrderService) Get(ctx context.Context, actor moderation.Principal, id string) (*models.Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad order id", apperr.ErrValidation)
	}
	order, err := s.Repo.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if err := moderation.RequireOwnerOrAdmin(actor, order.BuyerID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, actor moderation.Principal, id, status string) (*models.Order, error) {
	if err := moderation.RequireAdmin(actor); err != nil {
		return nil, err
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: bad order id", apperr.ErrValidation)
	}

	order, err := s.Repo.UpdateStatus(ctx, oid, st)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "order.status_changed", order)
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, typ string, o *models.Order) {
	if s.Events == nil {
		return
	}
	err := s.Events.Publish(ctx, events.TopicOrders, o.OrderID, events.Event{
		Type: typ,
		Payload: map[string]any{
			"id":           o.ID,
			"order_id":     o.OrderID,
			"buyer_id":     o.BuyerID,
			"total_amount": o.TotalAmount,
			"status":       o.Status,
			"items":        len(o.Items),
		},
	})
	if err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", typ, "error", err)
	}
}
