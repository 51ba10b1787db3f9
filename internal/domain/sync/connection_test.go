package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestNewConnection(t *testing.T) {
	userID := uuid.New()

	conn, err := NewConnection(userID, platform.TypeShopify, "my-shop.myshopify.com")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, conn.ID)
	assert.Equal(t, userID, conn.UserID)
	assert.True(t, conn.Enabled)
	assert.Equal(t, SyncRules{}, conn.Rules)
}

func TestNewConnection_Validation(t *testing.T) {
	_, err := NewConnection(uuid.Nil, platform.TypeShopify, "shop")
	assert.ErrorIs(t, err, ErrConnectionInvalidUserID)

	_, err = NewConnection(uuid.New(), platform.Type("MYSPACE"), "shop")
	assert.ErrorIs(t, err, ErrConnectionInvalidType)
}

func TestSyncRules_NilFlagsReadAsTrue(t *testing.T) {
	rules := SyncRules{}

	assert.True(t, rules.ChangesAllowed())
	assert.True(t, rules.CreatesAllowed())
	assert.True(t, rules.UpdatesAllowed())
	assert.True(t, rules.DeletesAllowed())
	assert.True(t, rules.InventoryAllowed())
	assert.True(t, rules.RealtimeEnabled())
}

func TestSyncRules_ExplicitFalseWins(t *testing.T) {
	rules := SyncRules{
		PropagateDeletes:   boolPtr(false),
		PropagateInventory: boolPtr(false),
	}

	assert.False(t, rules.DeletesAllowed())
	assert.False(t, rules.InventoryAllowed())
	assert.True(t, rules.CreatesAllowed())
}

func TestSyncRules_Merge(t *testing.T) {
	current := SyncRules{
		PropagateCreates: boolPtr(false),
		PropagateUpdates: boolPtr(true),
	}

	merged := current.Merge(SyncRules{
		PropagateUpdates:   boolPtr(false),
		PropagateInventory: boolPtr(false),
	})

	// Untouched flags keep their current value, set flags are replaced
	assert.False(t, merged.CreatesAllowed())
	assert.False(t, merged.UpdatesAllowed())
	assert.False(t, merged.InventoryAllowed())
	assert.Nil(t, merged.PropagateDeletes)
}

func TestConnection_EnableDisableSync(t *testing.T) {
	conn, err := NewConnection(uuid.New(), platform.TypeEbay, "ebay store")
	require.NoError(t, err)

	conn.DisableSync()
	assert.False(t, conn.Enabled)

	conn.EnableSync(SyncRules{PropagateDeletes: boolPtr(false)})
	assert.True(t, conn.Enabled)
	assert.False(t, conn.Rules.DeletesAllowed())
	assert.True(t, conn.Rules.CreatesAllowed())
}

func TestConnection_RecordErrorKeepsRecent(t *testing.T) {
	conn, err := NewConnection(uuid.New(), platform.TypeSquare, "square pos")
	require.NoError(t, err)

	for i := 0; i < 15; i++ {
		conn.RecordError("push failed")
	}

	assert.Len(t, conn.LastErrors, 10)
}
