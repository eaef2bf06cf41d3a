// Package checkout turns the cart into an order.
package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/storefront/api"
	"github.com/tradezone/marketplace/storefront/cart"
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

type FailureKind string

const (
	KindValidation FailureKind = "validation"
	KindServer     FailureKind = "server"
	// KindStale means a cart item no longer exists. The missing items are
	// removed from the cart and listed in Failure.Removed.
	KindStale FailureKind = "stale"
)

// Failure is returned by Submit when checkout did not produce an order. The
// cart is left as it was.
type Failure struct {
	Kind    FailureKind
	Err     error
	Removed []string
}

func (f *Failure) Error() string { return string(f.Kind) + ": " + f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

var (
	ErrSubmitInFlight = errors.New("checkout already in progress")
	ErrEmptyCart      = fmt.Errorf("%w: cart is empty", apperr.ErrValidation)
)

var paymentMethods = map[string]struct{}{
	"credit_card":   {},
	"bank_transfer": {},
	"paypal":        {},
}

type Cart interface {
	Entries() []cart.Entry
	Remove(ctx context.Context, listingID string) error
	Clear(ctx context.Context) error
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, in api.CreateOrderRequest, idemKey string) (*api.Order, error)
}

type ListingLookup interface {
	GetListing(ctx context.Context, id string) (*api.Listing, error)
}

type Finalizer struct {
	cart     Cart
	orders   OrderCreator
	listings ListingLookup
	log      *slog.Logger

	inFlight atomic.Bool

	mu          sync.Mutex
	state       State
	order       *api.Order
	failure     *Failure
	fingerprint string
	idemKey     string
}

// New builds a Finalizer. listings may be nil, in which case missing items
// are reported but not pruned from the cart.
func New(c Cart, orders OrderCreator, listings ListingLookup, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Finalizer{cart: c, orders: orders, listings: listings, log: logger.With("component", "checkout")}
}

// Submit validates the cart and delivery, then places one order. Retrying
// after a failure with the same cart and delivery reuses the idempotency
// key, so the server never records the purchase twice.
func (f *Finalizer) Submit(ctx context.Context, d api.Delivery) (*api.Order, error) {
	if !f.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSubmitInFlight
	}
	defer f.inFlight.Store(false)

	f.setState(StateValidating)
	entries := f.cart.Entries()
	d = trimDelivery(d)
	if err := Validate(entries, d); err != nil {
		return nil, f.fail(KindValidation, err)
	}

	req := api.CreateOrderRequest{Delivery: d, Items: make([]api.OrderLine, 0, len(entries))}
	for _, e := range entries {
		req.Items = append(req.Items, api.OrderLine{ListingID: e.ListingID, Quantity: e.Quantity})
	}
	key := f.keyFor(req)

	f.setState(StateSubmitting)
	order, err := f.orders.CreateOrder(ctx, req, key)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			return nil, f.fail(KindValidation, err)
		case errors.Is(err, apperr.ErrNotFound):
			return nil, f.failStale(err, f.pruneMissing(ctx, entries))
		default:
			return nil, f.fail(KindServer, err)
		}
	}

	// The key stays until the cart is gone from the mirror, so a resubmit of
	// the same cart replays this order instead of placing another.
	cleared := true
	if err := f.cart.Clear(ctx); err != nil {
		cleared = false
		f.log.Warn("checkout_clear_cart_error", "order_id", order.OrderID, "error", err)
	}

	f.mu.Lock()
	f.state = StateSucceeded
	f.order = order
	f.failure = nil
	if cleared {
		f.fingerprint, f.idemKey = "", ""
	}
	f.mu.Unlock()

	f.log.Info("checkout_success", "order_id", order.OrderID, "total", order.TotalAmount)
	return order, nil
}

// Validate checks what can be checked without the server.
func Validate(entries []cart.Entry, d api.Delivery) error {
	if len(entries) == 0 {
		return ErrEmptyCart
	}
	for _, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: item %s has no name", apperr.ErrValidation, e.ListingID)
		}
		if e.Price <= 0 {
			return fmt.Errorf("%w: item %s has no valid price", apperr.ErrValidation, e.ListingID)
		}
	}
	switch {
	case d.Name == "":
		return fmt.Errorf("%w: delivery name is required", apperr.ErrValidation)
	case d.Address == "":
		return fmt.Errorf("%w: delivery address is required", apperr.ErrValidation)
	case d.Phone == "":
		return fmt.Errorf("%w: delivery phone is required", apperr.ErrValidation)
	case d.PaymentMethod == "":
		return fmt.Errorf("%w: payment method is required", apperr.ErrValidation)
	}
	if _, ok := paymentMethods[d.PaymentMethod]; !ok {
		return fmt.Errorf("%w: unsupported payment method %q", apperr.ErrValidation, d.PaymentMethod)
	}
	return nil
}

func (f *Finalizer) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Order is the order created by the last successful Submit.
func (f *Finalizer) Order() *api.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order
}

func (f *Finalizer) Failure() *Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure
}

// Reset returns to Idle and forgets the last outcome.
func (f *Finalizer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateIdle
	f.order = nil
	f.failure = nil
}

func (f *Finalizer) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Finalizer) fail(kind FailureKind, err error) error {
	fl := &Failure{Kind: kind, Err: err}
	f.mu.Lock()
	f.state = StateFailed
	f.failure = fl
	f.mu.Unlock()
	f.log.Warn("checkout_error", "kind", kind, "error", err)
	return fl
}

func (f *Finalizer) failStale(err error, removed []string) error {
	fl := &Failure{Kind: KindStale, Err: err, Removed: removed}
	f.mu.Lock()
	f.state = StateFailed
	f.failure = fl
	f.mu.Unlock()
	f.log.Warn("checkout_error", "kind", KindStale, "removed", removed, "error", err)
	return fl
}

// pruneMissing looks every entry up again and drops the ones the catalog no
// longer has. Lookups that fail for any other reason keep the entry.
func (f *Finalizer) pruneMissing(ctx context.Context, entries []cart.Entry) []string {
	if f.listings == nil {
		return nil
	}
	var removed []string
	for _, e := range entries {
		_, err := f.listings.GetListing(ctx, e.ListingID)
		if !errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if rerr := f.cart.Remove(ctx, e.ListingID); rerr != nil {
			f.log.Warn("checkout_prune_error", "listing_id", e.ListingID, "error", rerr)
			continue
		}
		removed = append(removed, e.ListingID)
	}
	return removed
}

// keyFor returns the idempotency key for req, minting a new one when the
// content differs from the last unfinished attempt.
func (f *Finalizer) keyFor(req api.CreateOrderRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	fp := hex.EncodeToString(sum[:])

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fingerprint != fp || f.idemKey == "" {
		f.fingerprint = fp
		f.idemKey = uuid.NewString()
	}
	return f.idemKey
}

func trimDelivery(d api.Delivery) api.Delivery {
	return api.Delivery{
		Name:          strings.TrimSpace(d.Name),
		Address:       strings.TrimSpace(d.Address),
		Phone:         strings.TrimSpace(d.Phone),
		PaymentMethod: strings.TrimSpace(d.PaymentMethod),
	}
}
