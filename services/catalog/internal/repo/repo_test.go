package repo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradezone/marketplace/pkg/db"
	"github.com/tradezone/marketplace/pkg/moderation"
	"github.com/tradezone/marketplace/pkg/mongodb"
	"github.com/tradezone/marketplace/services/catalog/internal/models"
)

func newGormRepo(t *testing.T) Repo {
	t.Helper()
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := NewGorm(gdb)
	require.NoError(t, r.Migrate())
	return r
}

func newMongoRepo(t *testing.T) Repo {
	t.Helper()
	uri := os.Getenv("CATALOG_TEST_MONGO_URL")
	if uri == "" {
		t.Skip("CATALOG_TEST_MONGO_URL is required for mongo tests")
	}
	ctx := context.Background()
	mdb, err := mongodb.Connect(ctx, uri, "tradezone_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mdb.Drop(context.Background())
		_ = mongodb.Disconnect(context.Background(), mdb)
	})

	r := NewMongo(mdb)
	require.NoError(t, r.EnsureIndexes(ctx))
	return r
}

func listing(owner, name string, price float64, created time.Time) *models.Listing {
	return &models.Listing{
		ID:            uuid.NewString(),
		Name:          name,
		Price:         price,
		Category:      models.DefaultCategory,
		OwnerID:       owner,
		OwnerUsername: owner,
		InStock:       true,
		Status:        moderation.StatusActive,
		CreatedAt:     created.UTC().Truncate(time.Millisecond),
	}
}

func TestGormRepo(t *testing.T) { runRepoContract(t, newGormRepo) }
func TestMongoRepo(t *testing.T) { runRepoContract(t, newMongoRepo) }

func runRepoContract(t *testing.T, newRepo func(*testing.T) Repo) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	t.Run("get missing", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.Get(ctx, uuid.NewString())
		require.ErrorIs(t, err, ErrListingNotFound)
	})

	t.Run("active excludes banned and out of stock, newest first", func(t *testing.T) {
		r := newRepo(t)
		old := listing("alice", "Chair", 25, base)
		recent := listing("alice", "Lamp", 10, base.Add(time.Minute))
		banned := listing("bob", "Knife", 5, base.Add(2*time.Minute))
		banned.Status = moderation.StatusBanned
		sold := listing("bob", "Sofa", 300, base.Add(3*time.Minute))
		sold.InStock = false
		for _, l := range []*models.Listing{old, recent, banned, sold} {
			require.NoError(t, r.Create(ctx, l))
		}

		active, err := r.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, "Lamp", active[0].Name)
		assert.Equal(t, "Chair", active[1].Name)

		all, err := r.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 4)
		assert.Equal(t, "Sofa", all[0].Name)

		bobs, err := r.ListByOwner(ctx, "bob", true)
		require.NoError(t, err)
		require.Len(t, bobs, 1)
		assert.Equal(t, "Sofa", bobs[0].Name)

		bobs, err = r.ListByOwner(ctx, "bob", false)
		require.NoError(t, err)
		assert.Len(t, bobs, 2)
	})

	t.Run("update content keeps moderation fields", func(t *testing.T) {
		r := newRepo(t)
		l := listing("alice", "Chair", 25, base)
		require.NoError(t, r.Create(ctx, l))
		by := "root"
		_, err := r.SetStatus(ctx, l.ID, moderation.StatusBanned, &by)
		require.NoError(t, err)

		l.Name = "Armchair"
		l.Price = 40
		l.InStock = false
		l.Status = moderation.StatusActive
		require.NoError(t, r.Update(ctx, l))

		got, err := r.Get(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, "Armchair", got.Name)
		assert.Equal(t, 40.0, got.Price)
		assert.False(t, got.InStock)
		assert.Equal(t, moderation.StatusBanned, got.Status)

		missing := listing("alice", "Ghost", 1, base)
		require.ErrorIs(t, r.Update(ctx, missing), ErrListingNotFound)
	})

	t.Run("ban and unban", func(t *testing.T) {
		r := newRepo(t)
		l := listing("alice", "Chair", 25, base)
		require.NoError(t, r.Create(ctx, l))

		by := "root"
		got, err := r.SetStatus(ctx, l.ID, moderation.StatusBanned, &by)
		require.NoError(t, err)
		assert.Equal(t, moderation.StatusBanned, got.Status)
		require.NotNil(t, got.BannedBy)
		assert.Equal(t, "root", *got.BannedBy)

		got, err = r.SetStatus(ctx, l.ID, moderation.StatusActive, nil)
		require.NoError(t, err)
		assert.Equal(t, moderation.StatusActive, got.Status)
		assert.Nil(t, got.BannedBy)

		_, err = r.SetStatus(ctx, uuid.NewString(), moderation.StatusBanned, &by)
		require.ErrorIs(t, err, ErrListingNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		r := newRepo(t)
		l := listing("alice", "Chair", 25, base)
		require.NoError(t, r.Create(ctx, l))
		require.NoError(t, r.Delete(ctx, l.ID))
		require.ErrorIs(t, r.Delete(ctx, l.ID), ErrListingNotFound)
	})
}
