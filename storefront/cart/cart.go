// Package cart keeps the purchasing user's cart. The cart belongs to the
// current session: it is stored under that session's id and emptied when the
// session logs out.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/logging"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/storefront/api"
	"github.com/tradezone/marketplace/storefront/mirror"
	"github.com/tradezone/marketplace/storefront/session"
)

var (
	ErrNotLoggedIn   = fmt.Errorf("%w: log in to add items to the cart", apperr.ErrUnauthorized)
	ErrNotPurchaser  = fmt.Errorf("%w: only user accounts can buy", apperr.ErrForbidden)
	ErrOwnListing    = fmt.Errorf("%w: cannot add your own listing to the cart", apperr.ErrForbidden)
	ErrBannedListing = fmt.Errorf("%w: this listing has been banned", apperr.ErrForbidden)
	ErrAlreadyInCart = fmt.Errorf("%w: listing is already in the cart", apperr.ErrConflict)
)

type Entry struct {
	ListingID string  `json:"listing_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

func Key(sessionID string) string {
	return "cart:" + sessionID
}

type Store struct {
	mu       sync.Mutex
	mirror   mirror.Store
	sessions *session.Store
	log      *slog.Logger

	owner   string
	entries []Entry
	// pendingClear is the session whose mirror entry a failed Clear left behind.
	pendingClear string
}

// New registers a logout hook on sessions that clears the cart.
func New(m mirror.Store, sessions *session.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Store{
		mirror:   m,
		sessions: sessions,
		log:      logger.With("component", "cart"),
	}
	sessions.OnLogout(s.onLogout)
	return s
}

// Rehydrate loads the cart of the current session from the mirror.
func (s *Store) Rehydrate(ctx context.Context) error {
	cur := s.sessions.Current()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = cur.ID
	s.entries = nil
	if !cur.LoggedIn() {
		return nil
	}
	if s.pendingClear == cur.ID {
		if err := s.mirror.Delete(ctx, Key(cur.ID)); err != nil {
			s.log.Warn("cart_rehydrate_error", "reason", "pending clear failed", "error", err)
			return nil
		}
		s.pendingClear = ""
		return nil
	}

	raw, ok, err := s.mirror.Get(ctx, Key(cur.ID))
	if err != nil {
		return fmt.Errorf("read cart mirror: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.log.Warn("cart_rehydrate_error", "reason", "corrupt mirror entry", "error", err)
		return nil
	}
	s.entries = dedupe(entries)
	return nil
}

// Add puts l in the cart with quantity 1.
func (s *Store) Add(ctx context.Context, l api.Listing) error {
	cur := s.sessions.Current()
	switch {
	case !cur.LoggedIn():
		return ErrNotLoggedIn
	case cur.Role != moderation.RoleUser:
		return ErrNotPurchaser
	case l.OwnedBy(cur.Principal()):
		return ErrOwnListing
	case !moderation.IsUsableListing(l):
		return ErrBannedListing
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncOwner(cur)

	if s.indexOf(l.ID) >= 0 {
		return ErrAlreadyInCart
	}

	next := append(s.copyEntries(), Entry{ListingID: l.ID, Name: l.Name, Price: l.Price, Quantity: 1})
	if err := s.persist(ctx, cur.ID, next); err != nil {
		return err
	}
	s.entries = next
	s.log.Info("cart_add", "listing_id", l.ID)
	return nil
}

// Remove drops listingID from the cart. Absent ids are ignored.
func (s *Store) Remove(ctx context.Context, listingID string) error {
	cur := s.sessions.Current()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncOwner(cur)

	i := s.indexOf(listingID)
	if i < 0 {
		return nil
	}
	next := slices.Delete(s.copyEntries(), i, i+1)
	if err := s.persist(ctx, cur.ID, next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	cur := s.sessions.Current()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = cur.ID
	s.entries = nil
	if cur.ID == "" {
		return nil
	}
	if err := s.mirror.Delete(ctx, Key(cur.ID)); err != nil {
		s.pendingClear = cur.ID
		return fmt.Errorf("clear cart mirror: %w", err)
	}
	s.pendingClear = ""
	return nil
}

func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncOwner(s.sessions.Current())
	return s.copyEntries()
}

func (s *Store) Len() int {
	return len(s.Entries())
}

// Total is price times quantity over all entries, rounded to cents.
func (s *Store) Total() float64 {
	return Total(s.Entries())
}

func Total(entries []Entry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Price * float64(e.Quantity)
	}
	return math.Round(sum*100) / 100
}

func (s *Store) onLogout(ctx context.Context, prev session.Session) error {
	s.mu.Lock()
	s.entries = nil
	s.owner = ""
	s.pendingClear = ""
	s.mu.Unlock()

	if prev.ID == "" {
		return nil
	}
	if err := s.mirror.Delete(ctx, Key(prev.ID)); err != nil {
		return fmt.Errorf("clear cart mirror: %w", err)
	}
	return nil
}

// syncOwner drops entries that belong to a different session. Caller holds mu.
func (s *Store) syncOwner(cur session.Session) {
	if s.owner != cur.ID {
		s.owner = cur.ID
		s.entries = nil
	}
}

func (s *Store) indexOf(listingID string) int {
	for i, e := range s.entries {
		if e.ListingID == listingID {
			return i
		}
	}
	return -1
}

func (s *Store) copyEntries() []Entry {
	return append([]Entry(nil), s.entries...)
}

func (s *Store) persist(ctx context.Context, sessionID string, entries []Entry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := s.mirror.Set(ctx, Key(sessionID), string(b)); err != nil {
		s.log.Error("cart_persist_error", "error", err)
		return fmt.Errorf("write cart mirror: %w", err)
	}
	if s.pendingClear == sessionID {
		s.pendingClear = ""
	}
	return nil
}

func dedupe(in []Entry) []Entry {
	seen := make(map[string]struct{}, len(in))
	out := make([]Entry, 0, len(in))
	for _, e := range in {
		if _, ok := seen[e.ListingID]; ok || e.ListingID == "" {
			continue
		}
		if e.Quantity < 1 {
			e.Quantity = 1
		}
		seen[e.ListingID] = struct{}{}
		out = append(out, e)
	}
	return out
}
