package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func testConnection(t *testing.T, platformType platform.Type) sync.Connection {
	t.Helper()
	conn, err := sync.NewConnection(uuid.New(), platformType, string(platformType)+" shop")
	require.NoError(t, err)
	return *conn
}

func testProductEvent(t *testing.T, kind sync.ChangeKind, sourceConnID uuid.UUID) sync.ChangeEvent {
	t.Helper()
	event, err := sync.NewProductChangeEvent(uuid.New(), uuid.New(), kind, sourceConnID, platform.TypeShopify, "")
	require.NoError(t, err)
	return event
}

func testInventoryEvent(t *testing.T, sourceConnID uuid.UUID) sync.ChangeEvent {
	t.Helper()
	event, err := sync.NewInventoryChangeEvent(uuid.New(), uuid.New(), sourceConnID, platform.TypeShopify, nil, 3, "")
	require.NoError(t, err)
	return event
}

func TestSyncRouter_Route_NilEvent(t *testing.T) {
	router := NewSyncRouter()

	targets, err := router.Route(nil, []sync.Connection{})

	assert.ErrorIs(t, err, ErrRouteNilEvent)
	assert.Nil(t, targets)
}

func TestSyncRouter_Route_NilConnections(t *testing.T) {
	router := NewSyncRouter()
	source := testConnection(t, platform.TypeShopify)
	event := testProductEvent(t, sync.ChangeKindUpdated, source.ID)

	targets, err := router.Route(event, nil)

	assert.ErrorIs(t, err, ErrRouteNilConnections)
	assert.Nil(t, targets)
}

func TestSyncRouter_Route_EmptyConnectionsIsValid(t *testing.T) {
	router := NewSyncRouter()
	source := testConnection(t, platform.TypeShopify)
	event := testProductEvent(t, sync.ChangeKindUpdated, source.ID)

	targets, err := router.Route(event, []sync.Connection{})

	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestSyncRouter_Route_ExcludesSourceConnection(t *testing.T) {
	router := NewSyncRouter()
	source := testConnection(t, platform.TypeShopify)
	ebay := testConnection(t, platform.TypeEbay)
	square := testConnection(t, platform.TypeSquare)
	event := testProductEvent(t, sync.ChangeKindUpdated, source.ID)

	targets, err := router.Route(event, []sync.Connection{source, ebay, square})

	require.NoError(t, err)
	require.Len(t, targets, 2)
	for _, target := range targets {
		assert.NotEqual(t, source.ID, target.ID)
	}
}

func TestSyncRouter_Route_ExcludesDisabledConnections(t *testing.T) {
	router := NewSyncRouter()
	source := testConnection(t, platform.TypeShopify)
	ebay := testConnection(t, platform.TypeEbay)
	square := testConnection(t, platform.TypeSquare)
	square.DisableSync()
	event := testProductEvent(t, sync.ChangeKindUpdated, source.ID)

	targets, err := router.Route(event, []sync.Connection{source, ebay, square})

	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, ebay.ID, targets[0].ID)
}

func TestSyncRouter_Route_UnsetRulesIncludeByDefault(t *testing.T) {
	router := NewSyncRouter()
	source := testConnection(t, platform.TypeShopify)
	ebay := testConnection(t, platform.TypeEbay)
	require.Nil(t, ebay.Rules.PropagateChanges)

	for _, kind := range []sync.ChangeKind{sync.ChangeKindCreated, sync.ChangeKindUpdated, sync.ChangeKindDeleted} {
		event := testProductEvent(t, kind, source.ID)
		targets, err := router.Route(event, []sync.Connection{source, ebay})
		require.NoError(t, err)
		assert.Len(t, targets, 1, "kind %s should propagate with unset rules", kind)
	}
}

func TestSyncRouter_Route_PropagateChangesFalseExcludesEverything(t *testing.T) {
	router := NewSyncRouter()
	source := testConnection(t, platform.TypeShopify)
	ebay := testConnection(t, platform.TypeEbay)
	ebay.Rules.PropagateChanges = boolPtr(false)
	// Kind-level flags cannot override the master switch.
	ebay.Rules.PropagateUpdates = boolPtr(true)
	ebay.Rules.PropagateInventory = boolPtr(true)

	productTargets, err := router.Route(testProductEvent(t, sync.ChangeKindUpdated, source.ID), []sync.Connection{source, ebay})
	require.NoError(t, err)
	assert.Empty(t, productTargets)

	inventoryTargets, err := router.Route(testInventoryEvent(t, source.ID), []sync.Connection{source, ebay})
	require.NoError(t, err)
	assert.Empty(t, inventoryTargets)
}

func TestSyncRouter_Route_KindFlagsFilterProductChanges(t *testing.T) {
	router := NewSyncRouter()
	source := testConnection(t, platform.TypeShopify)

	tests := []struct {
		name     string
		rules    sync.SyncRules
		kind     sync.ChangeKind
		included bool
	}{
		{"creates disabled", sync.SyncRules{PropagateCreates: boolPtr(false)}, sync.ChangeKindCreated, false},
		{"creates enabled", sync.SyncRules{PropagateCreates: boolPtr(true)}, sync.ChangeKindCreated, true},
		{"updates disabled", sync.SyncRules{PropagateUpdates: boolPtr(false)}, sync.ChangeKindUpdated, false},
		{"deletes disabled", sync.SyncRules{PropagateDeletes: boolPtr(false)}, sync.ChangeKindDeleted, false},
		{"deletes disabled does not affect updates", sync.SyncRules{PropagateDeletes: boolPtr(false)}, sync.ChangeKindUpdated, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := testConnection(t, platform.TypeEbay)
			target.Rules = tt.rules

			targets, err := router.Route(testProductEvent(t, tt.kind, source.ID), []sync.Connection{source, target})

			require.NoError(t, err)
			if tt.included {
				assert.Len(t, targets, 1)
			} else {
				assert.Empty(t, targets)
			}
		})
	}
}

func TestSyncRouter_Route_InventoryFlagGatesInventoryEvents(t *testing.T) {
	router := NewSyncRouter()
	source := testConnection(t, platform.TypeShopify)
	target := testConnection(t, platform.TypeSquare)
	target.Rules.PropagateInventory = boolPtr(false)
	// Updates flag does not apply to inventory events.
	target.Rules.PropagateUpdates = boolPtr(true)

	targets, err := router.Route(testInventoryEvent(t, source.ID), []sync.Connection{source, target})

	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestSyncRouter_Route_MixedConnections(t *testing.T) {
	router := NewSyncRouter()
	source := testConnection(t, platform.TypeShopify)
	ebay := testConnection(t, platform.TypeEbay)
	square := testConnection(t, platform.TypeSquare)
	square.Rules.PropagateDeletes = boolPtr(false)
	depop := testConnection(t, platform.TypeDepop)
	depop.DisableSync()

	targets, err := router.Route(
		testProductEvent(t, sync.ChangeKindDeleted, source.ID),
		[]sync.Connection{source, ebay, square, depop},
	)

	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, ebay.ID, targets[0].ID)
}
