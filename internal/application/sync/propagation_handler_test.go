package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockConnectionRepository is a mock implementation of ConnectionRepository
type MockConnectionRepository struct {
	mock.Mock
}

func (m *MockConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Connection, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.Connection), args.Error(1)
}

func (m *MockConnectionRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]sync.Connection, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.Connection), args.Error(1)
}

func (m *MockConnectionRepository) Save(ctx context.Context, conn *sync.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

func (m *MockConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProductMappingRepository is a mock implementation of ProductMappingRepository
type MockProductMappingRepository struct {
	mock.Mock
}

func (m *MockProductMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.ProductMapping, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.ProductMapping), args.Error(1)
}

func (m *MockProductMappingRepository) FindEnabledByConnection(ctx context.Context, connectionID uuid.UUID) ([]sync.ProductMapping, error) {
	args := m.Called(ctx, connectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ProductMapping), args.Error(1)
}

func (m *MockProductMappingRepository) FindByLocalProduct(ctx context.Context, userID uuid.UUID, localProductID uuid.UUID) ([]sync.ProductMapping, error) {
	args := m.Called(ctx, userID, localProductID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ProductMapping), args.Error(1)
}

func (m *MockProductMappingRepository) ExistsForEntity(ctx context.Context, connectionID uuid.UUID, entityID uuid.UUID) (bool, error) {
	args := m.Called(ctx, connectionID, entityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductMappingRepository) Save(ctx context.Context, mapping *sync.ProductMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockProductMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Enqueue(ctx context.Context, env sync.DispatchEnvelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

// MockActivityRecorder is a mock implementation of ActivityRecorder
type MockActivityRecorder struct {
	mock.Mock
}

func (m *MockActivityRecorder) RecordActivity(ctx context.Context, userID uuid.UUID, action string, detail map[string]any) {
	m.Called(ctx, userID, action, detail)
}

// ---------------------------------------------------------------------------
// Test fixture
// ---------------------------------------------------------------------------

type propagationFixture struct {
	handler     *PropagationHandler
	connections *MockConnectionRepository
	mappings    *MockProductMappingRepository
	dispatcher  *MockDispatcher
	recorder    *MockActivityRecorder
	conflicts   *MockConflictEventRepository
}

func newPropagationFixture(t *testing.T) *propagationFixture {
	t.Helper()
	connections := new(MockConnectionRepository)
	mappings := new(MockProductMappingRepository)
	dispatcher := new(MockDispatcher)
	recorder := new(MockActivityRecorder)
	conflicts := new(MockConflictEventRepository)

	resolver := NewConflictResolver(nil, platform.NewBehaviorRegistry(nil), conflicts, zap.NewNop())
	handler := NewPropagationHandler(
		connections, mappings, NewSyncRouter(), resolver, dispatcher, recorder, zap.NewNop(),
	)
	return &propagationFixture{
		handler:     handler,
		connections: connections,
		mappings:    mappings,
		dispatcher:  dispatcher,
		recorder:    recorder,
		conflicts:   conflicts,
	}
}

func userConnections(t *testing.T, userID uuid.UUID, types ...platform.Type) []sync.Connection {
	t.Helper()
	connections := make([]sync.Connection, 0, len(types))
	for _, platformType := range types {
		conn, err := sync.NewConnection(userID, platformType, string(platformType)+" shop")
		require.NoError(t, err)
		connections = append(connections, *conn)
	}
	return connections
}

func TestPropagationHandler_EventTypes(t *testing.T) {
	f := newPropagationFixture(t)

	assert.ElementsMatch(t,
		[]string{sync.EventTypeProductChanged, sync.EventTypeInventoryChanged},
		f.handler.EventTypes(),
	)
}

func TestPropagationHandler_ProductUpdate_DispatchesPerMappedTarget(t *testing.T) {
	f := newPropagationFixture(t)
	userID := uuid.New()
	connections := userConnections(t, userID, platform.TypeShopify, platform.TypeEbay, platform.TypeSquare)
	source := connections[0]

	event, err := sync.NewProductChangeEvent(userID, uuid.New(), sync.ChangeKindUpdated, source.ID, source.PlatformType, "corr-1")
	require.NoError(t, err)

	f.connections.On("FindByUser", mock.Anything, userID).Return(connections, nil)
	// eBay holds the product, Square does not.
	f.mappings.On("ExistsForEntity", mock.Anything, connections[1].ID, event.AggregateID()).Return(true, nil)
	f.mappings.On("ExistsForEntity", mock.Anything, connections[2].ID, event.AggregateID()).Return(false, nil)

	var envelopes []sync.DispatchEnvelope
	f.dispatcher.On("Enqueue", mock.Anything, mock.AnythingOfType("sync.DispatchEnvelope")).
		Run(func(args mock.Arguments) {
			envelopes = append(envelopes, args.Get(1).(sync.DispatchEnvelope))
		}).
		Return(nil)
	f.recorder.On("RecordActivity", mock.Anything, userID, "sync.propagation.dispatched", mock.Anything)

	err = f.handler.Handle(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, envelopes, 1)
	assert.Equal(t, sync.DispatchKindPropagation, envelopes[0].Kind)
	assert.Equal(t, priorityProductPropagation, envelopes[0].Priority)

	payload, err := sync.UnmarshalPropagationPayload(envelopes[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, connections[1].ID, payload.TargetConnectionID)
	assert.Equal(t, sync.ChangeKindUpdated, payload.ChangeKind)
	assert.Equal(t, "corr-1", payload.CorrelationID)
	f.recorder.AssertExpectations(t)
}

func TestPropagationHandler_ProductCreate_SkipsMappingCheck(t *testing.T) {
	f := newPropagationFixture(t)
	userID := uuid.New()
	connections := userConnections(t, userID, platform.TypeShopify, platform.TypeEbay)
	source := connections[0]

	event, err := sync.NewProductChangeEvent(userID, uuid.New(), sync.ChangeKindCreated, source.ID, source.PlatformType, "")
	require.NoError(t, err)

	f.connections.On("FindByUser", mock.Anything, userID).Return(connections, nil)
	f.dispatcher.On("Enqueue", mock.Anything, mock.AnythingOfType("sync.DispatchEnvelope")).Return(nil)
	f.recorder.On("RecordActivity", mock.Anything, userID, "sync.propagation.dispatched", mock.Anything)

	err = f.handler.Handle(context.Background(), event)

	require.NoError(t, err)
	f.dispatcher.AssertNumberOfCalls(t, "Enqueue", 1)
	f.mappings.AssertNotCalled(t, "ExistsForEntity", mock.Anything, mock.Anything, mock.Anything)
}

func TestPropagationHandler_InventoryChange_CarriesDelistSignal(t *testing.T) {
	f := newPropagationFixture(t)
	userID := uuid.New()
	// Source is Shopify; targets are eBay (delists at zero) and Square (never).
	connections := userConnections(t, userID, platform.TypeShopify, platform.TypeEbay, platform.TypeSquare)
	source := connections[0]

	event, err := sync.NewInventoryChangeEvent(userID, uuid.New(), source.ID, source.PlatformType, nil, 0, "corr-2")
	require.NoError(t, err)

	f.connections.On("FindByUser", mock.Anything, userID).Return(connections, nil)
	f.mappings.On("ExistsForEntity", mock.Anything, mock.Anything, event.AggregateID()).Return(true, nil)
	f.conflicts.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	payloads := map[uuid.UUID]sync.PropagationPayload{}
	f.dispatcher.On("Enqueue", mock.Anything, mock.AnythingOfType("sync.DispatchEnvelope")).
		Run(func(args mock.Arguments) {
			env := args.Get(1).(sync.DispatchEnvelope)
			payload, err := sync.UnmarshalPropagationPayload(env.Payload)
			require.NoError(t, err)
			assert.Equal(t, priorityInventoryPropagation, env.Priority)
			payloads[payload.TargetConnectionID] = payload
		}).
		Return(nil)
	f.recorder.On("RecordActivity", mock.Anything, userID, "sync.propagation.dispatched", mock.Anything)

	err = f.handler.Handle(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.True(t, payloads[connections[1].ID].ShouldDelist, "eBay target should delist at zero stock")
	assert.False(t, payloads[connections[2].ID].ShouldDelist, "Square target keeps items visible at zero")
	for _, payload := range payloads {
		assert.True(t, payload.Inventory)
		assert.Equal(t, int64(0), payload.NewQuantity)
	}
	// One conflict record per consulted target.
	f.conflicts.AssertNumberOfCalls(t, "Append", 2)
}

func TestPropagationHandler_ZeroTargets_NoDispatch(t *testing.T) {
	f := newPropagationFixture(t)
	userID := uuid.New()
	connections := userConnections(t, userID, platform.TypeShopify)
	source := connections[0]

	event, err := sync.NewProductChangeEvent(userID, uuid.New(), sync.ChangeKindUpdated, source.ID, source.PlatformType, "")
	require.NoError(t, err)

	f.connections.On("FindByUser", mock.Anything, userID).Return(connections, nil)

	err = f.handler.Handle(context.Background(), event)

	require.NoError(t, err)
	f.dispatcher.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	f.recorder.AssertNotCalled(t, "RecordActivity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPropagationHandler_EnqueueFailure_DoesNotBlockOtherTargets(t *testing.T) {
	f := newPropagationFixture(t)
	userID := uuid.New()
	connections := userConnections(t, userID, platform.TypeShopify, platform.TypeEbay, platform.TypeSquare)
	source := connections[0]

	event, err := sync.NewProductChangeEvent(userID, uuid.New(), sync.ChangeKindUpdated, source.ID, source.PlatformType, "")
	require.NoError(t, err)

	f.connections.On("FindByUser", mock.Anything, userID).Return(connections, nil)
	f.mappings.On("ExistsForEntity", mock.Anything, mock.Anything, event.AggregateID()).Return(true, nil)
	f.dispatcher.On("Enqueue", mock.Anything, mock.AnythingOfType("sync.DispatchEnvelope")).Return(errors.New("queue full")).Once()
	f.dispatcher.On("Enqueue", mock.Anything, mock.AnythingOfType("sync.DispatchEnvelope")).Return(nil).Once()
	f.recorder.On("RecordActivity", mock.Anything, userID, "sync.propagation.dispatched", mock.MatchedBy(func(detail map[string]any) bool {
		return detail["targets"] == 1
	}))

	err = f.handler.Handle(context.Background(), event)

	require.NoError(t, err)
	f.dispatcher.AssertNumberOfCalls(t, "Enqueue", 2)
	f.recorder.AssertExpectations(t)
}

func TestPropagationHandler_ConnectionLoadFailure_ReturnsError(t *testing.T) {
	f := newPropagationFixture(t)
	userID := uuid.New()

	event, err := sync.NewProductChangeEvent(userID, uuid.New(), sync.ChangeKindUpdated, uuid.New(), platform.TypeShopify, "")
	require.NoError(t, err)

	f.connections.On("FindByUser", mock.Anything, userID).Return(nil, errors.New("db down"))

	err = f.handler.Handle(context.Background(), event)

	assert.Error(t, err)
	f.dispatcher.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}
