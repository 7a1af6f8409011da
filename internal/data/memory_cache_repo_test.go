package data

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaarke-dev/spaarke-sub016/internal/testutil"
)

// newTestMemoryCache returns a repo pinned to a movable clock. Advance time
// by reassigning through the returned pointer.
func newTestMemoryCache(capacity int) (*MemoryCacheRepo, *time.Time) {
	now := testutil.TestTime()
	repo := NewMemoryCacheRepo(MemoryCacheConfig{
		Capacity: capacity,
		Now:      func() time.Time { return now },
	})
	return repo, &now
}

func TestMemoryCacheRepo_SetAndGet(t *testing.T) {
	repo, _ := newTestMemoryCache(0)
	ctx := context.Background()

	value := []byte("snapshot-body")
	require.NoError(t, repo.Set(ctx, "k1", value, time.Minute))

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot-body"), got)

	// Mutating either slice must not reach the stored entry.
	value[0] = 'X'
	got[0] = 'Y'

	again, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("snapshot-body"), again)
}

func TestMemoryCacheRepo_GetMissingKey(t *testing.T) {
	repo, _ := newTestMemoryCache(0)

	got, err := repo.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheRepo_EmptyKeyRejected(t *testing.T) {
	repo, _ := newTestMemoryCache(0)
	ctx := context.Background()

	assert.Error(t, repo.Set(ctx, "", []byte("v"), 0))

	_, err := repo.Get(ctx, "")
	assert.Error(t, err)

	_, err = repo.Delete(ctx, "")
	assert.Error(t, err)

	_, err = repo.Exists(ctx, "")
	assert.Error(t, err)

	_, err = repo.SetTTL(ctx, "", time.Minute)
	assert.Error(t, err)

	_, err = repo.SetIfNotExists(ctx, "", []byte("v"), 0)
	assert.Error(t, err)
}

func TestMemoryCacheRepo_TTLExpiry(t *testing.T) {
	repo, now := newTestMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k1", []byte("v"), time.Minute))

	*now = now.Add(59 * time.Second)
	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	*now = now.Add(2 * time.Second)
	got, err = repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got, "entry should be gone after its TTL")
	assert.Equal(t, 0, repo.Len(), "expired entry should be dropped on read")
}

func TestMemoryCacheRepo_ZeroTTLNeverExpires(t *testing.T) {
	repo, now := newTestMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "marker", []byte("7"), 0))

	*now = now.Add(1000 * time.Hour)
	got, err := repo.Get(ctx, "marker")
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), got)
}

func TestMemoryCacheRepo_Delete(t *testing.T) {
	repo, _ := newTestMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k1", []byte("v"), 0))

	deleted, err := repo.Delete(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheRepo_Exists(t *testing.T) {
	repo, now := newTestMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k1", []byte("v"), time.Minute))

	exists, err := repo.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, exists)

	*now = now.Add(2 * time.Minute)
	exists, err = repo.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, exists, "expired entry should not exist")
}

func TestMemoryCacheRepo_SetTTL(t *testing.T) {
	repo, now := newTestMemoryCache(0)
	ctx := context.Background()

	found, err := repo.SetTTL(ctx, "absent", time.Minute)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, "k1", []byte("v"), time.Minute))

	found, err = repo.SetTTL(ctx, "k1", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, found)

	// The original TTL would have expired the entry by now.
	*now = now.Add(5 * time.Minute)
	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	*now = now.Add(6 * time.Minute)
	got, err = repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryCacheRepo_SetIfNotExists(t *testing.T) {
	repo, now := newTestMemoryCache(0)
	ctx := context.Background()

	set, err := repo.SetIfNotExists(ctx, "k1", []byte("first"), time.Minute)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = repo.SetIfNotExists(ctx, "k1", []byte("second"), time.Minute)
	require.NoError(t, err)
	assert.False(t, set)

	got, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	// An expired entry no longer blocks the set.
	*now = now.Add(2 * time.Minute)
	set, err = repo.SetIfNotExists(ctx, "k1", []byte("third"), time.Minute)
	require.NoError(t, err)
	assert.True(t, set)
}

func TestMemoryCacheRepo_LRUEviction(t *testing.T) {
	repo, _ := newTestMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, repo.Set(ctx, "b", []byte("2"), 0))

	// Touch "a" so "b" becomes the eviction candidate.
	_, err := repo.Get(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, repo.Set(ctx, "c", []byte("3"), 0))
	assert.Equal(t, 2, repo.Len())

	got, err := repo.Get(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, got, "least-recently used entry should be evicted")

	for _, key := range []string{"a", "c"} {
		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.NotNil(t, got, fmt.Sprintf("key %s should survive eviction", key))
	}
}

func TestMemoryCacheRepo_UpdateDoesNotGrow(t *testing.T) {
	repo, _ := newTestMemoryCache(2)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, repo.Set(ctx, "a", []byte("2"), 0))
	assert.Equal(t, 1, repo.Len())

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
}
