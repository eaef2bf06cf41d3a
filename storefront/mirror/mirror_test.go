package mirror

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStore(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.Get(ctx, "session.username")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "session.username", "bob"))
	require.NoError(t, s.Set(ctx, "session.username", "alice"))
	v, ok, err := s.Get(ctx, "session.username")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	require.NoError(t, s.SetMany(ctx, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, s.Delete(ctx, "a", "session.username", "missing"))

	_, ok, _ = s.Get(ctx, "a")
	assert.False(t, ok)
	v, ok, _ = s.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mirror.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "cart:abc", `[{"listing_id":"chair"}]`))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, ok, err := s.Get(ctx, "cart:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"listing_id":"chair"}]`, v)
}
