package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "shopify:order-123", time.Minute)
	require.NoError(t, err)
	assert.True(t, first, "first mark succeeds")

	second, err := store.MarkProcessed(ctx, "shopify:order-123", time.Minute)
	require.NoError(t, err)
	assert.False(t, second, "duplicate mark reports already processed")
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "square:inv-9", time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "square:inv-9")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_ExpiredEntryCanBeRemarked(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "ebay:tx-1", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	processed, err := store.IsProcessed(ctx, "ebay:tx-1")
	require.NoError(t, err)
	assert.False(t, processed, "expired entry is treated as not processed")

	again, err := store.MarkProcessed(ctx, "ebay:tx-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, again, "expired entry can be marked again")
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
