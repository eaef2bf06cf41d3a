package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradezone/marketplace/pkg/apperr"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/storefront/api"
	"github.com/tradezone/marketplace/storefront/mirror"
	"github.com/tradezone/marketplace/storefront/session"
)

var (
	chair  = api.Listing{ID: "chair", Name: "Chair", Price: 25, OwnerID: "alice-id", OwnerUsername: "alice", InStock: true, Status: moderation.StatusActive}
	lamp   = api.Listing{ID: "lamp", Name: "Lamp", Price: 10, OwnerID: "alice-id", OwnerUsername: "alice", InStock: true, Status: moderation.StatusActive}
	banned = api.Listing{ID: "knife", Name: "Knife", Price: 5, OwnerID: "alice-id", OwnerUsername: "alice", Status: moderation.StatusBanned}
	bobPen = api.Listing{ID: "pen", Name: "Pen", Price: 2, OwnerID: "bob-id", OwnerUsername: "bob", Status: moderation.StatusActive}
)

func newStores(t *testing.T, m mirror.Store) (*session.Store, *Store) {
	t.Helper()
	sessions := session.New(m, nil)
	require.NoError(t, sessions.Rehydrate(context.Background()))
	c := New(m, sessions, nil)
	require.NoError(t, c.Rehydrate(context.Background()))
	return sessions, c
}

func openMirror(t *testing.T) *mirror.GormStore {
	t.Helper()
	m, err := mirror.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func loginBob(t *testing.T, sessions *session.Store) {
	t.Helper()
	require.NoError(t, sessions.Login(context.Background(), session.Session{
		Username: "bob", Role: moderation.RoleUser, AccountID: "bob-id", Token: "tok",
	}))
}

func TestAddRules(t *testing.T) {
	ctx := context.Background()
	sessions, c := newStores(t, openMirror(t))

	require.ErrorIs(t, c.Add(ctx, chair), ErrNotLoggedIn)
	require.ErrorIs(t, c.Add(ctx, chair), apperr.ErrUnauthorized)

	loginBob(t, sessions)
	require.NoError(t, c.Add(ctx, chair))
	require.ErrorIs(t, c.Add(ctx, chair), ErrAlreadyInCart)
	require.ErrorIs(t, c.Add(ctx, bobPen), ErrOwnListing)
	require.ErrorIs(t, c.Add(ctx, bobPen), apperr.ErrForbidden)
	require.ErrorIs(t, c.Add(ctx, banned), ErrBannedListing)

	assert.Equal(t, []Entry{{ListingID: "chair", Name: "Chair", Price: 25, Quantity: 1}}, c.Entries())
}

func TestOwnListingMatchedByUsername(t *testing.T) {
	ctx := context.Background()
	sessions, c := newStores(t, openMirror(t))
	require.NoError(t, sessions.Login(ctx, session.Session{Username: "bob", Role: moderation.RoleUser}))

	require.ErrorIs(t, c.Add(ctx, api.Listing{ID: "x", OwnerUsername: "bob", Status: moderation.StatusActive}), ErrOwnListing)
}

func TestAdminCannotBuy(t *testing.T) {
	ctx := context.Background()
	sessions, c := newStores(t, openMirror(t))
	require.NoError(t, sessions.Login(ctx, session.Session{Username: "root", Role: moderation.RoleAdmin, AccountID: "root-id"}))

	require.ErrorIs(t, c.Add(ctx, chair), ErrNotPurchaser)
	assert.Empty(t, c.Entries())
}

func TestTotalFollowsEntries(t *testing.T) {
	ctx := context.Background()
	sessions, c := newStores(t, openMirror(t))
	loginBob(t, sessions)

	assert.Equal(t, 0.0, c.Total())
	require.NoError(t, c.Add(ctx, chair))
	require.NoError(t, c.Add(ctx, lamp))
	assert.Equal(t, 35.0, c.Total())

	require.NoError(t, c.Remove(ctx, "chair"))
	require.NoError(t, c.Remove(ctx, "missing"))
	assert.Equal(t, 10.0, c.Total())
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0.0, c.Total())
}

func TestLogoutEmptiesCart(t *testing.T) {
	ctx := context.Background()
	m := openMirror(t)
	sessions, c := newStores(t, m)
	loginBob(t, sessions)
	id := sessions.Current().ID

	require.NoError(t, c.Add(ctx, chair))
	require.NoError(t, sessions.Logout(ctx))

	assert.Empty(t, c.Entries())
	_, ok, err := m.Get(ctx, Key(id))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, moderation.RoleGuest, sessions.Current().Role)
}

func TestCartSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	m := openMirror(t)

	sessions, c := newStores(t, m)
	loginBob(t, sessions)
	require.NoError(t, c.Add(ctx, chair))
	require.NoError(t, c.Add(ctx, lamp))

	restarted, c2 := newStores(t, m)
	assert.Equal(t, "bob", restarted.Current().Username)
	assert.Equal(t, []string{"chair", "lamp"}, ids(c2.Entries()))
	assert.Equal(t, 35.0, c2.Total())
}

func TestRehydrateDropsDuplicates(t *testing.T) {
	ctx := context.Background()
	m := openMirror(t)
	sessions, _ := newStores(t, m)
	loginBob(t, sessions)
	require.NoError(t, m.Set(ctx, Key(sessions.Current().ID),
		`[{"listing_id":"chair","price":25,"quantity":1},{"listing_id":"chair","price":25,"quantity":1}]`))

	_, c := newStores(t, m)
	assert.Equal(t, 25.0, c.Total())
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ListingID)
	}
	return out
}

type flakyDelete struct {
	mirror.Store
	fail bool
}

func (f *flakyDelete) Delete(ctx context.Context, keys ...string) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.Delete(ctx, keys...)
}

func TestFailedClearRetriedOnRehydrate(t *testing.T) {
	ctx := context.Background()
	m := &flakyDelete{Store: openMirror(t)}
	sessions, c := newStores(t, m)
	loginBob(t, sessions)
	require.NoError(t, c.Add(ctx, chair))

	m.fail = true
	require.Error(t, c.Clear(ctx))
	assert.Empty(t, c.Entries())

	m.fail = false
	require.NoError(t, c.Rehydrate(ctx))
	assert.Empty(t, c.Entries())
	_, ok, err := m.Get(ctx, Key(sessions.Current().ID))
	require.NoError(t, err)
	assert.False(t, ok)
}
