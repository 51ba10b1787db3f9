package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockConflictEventRepository is a mock implementation of ConflictEventRepository
type MockConflictEventRepository struct {
	mock.Mock
}

func (m *MockConflictEventRepository) Append(ctx context.Context, record *sync.ConflictEvent) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockConflictEventRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]sync.ConflictEvent, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ConflictEvent), args.Error(1)
}

func (m *MockConflictEventRepository) FindByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]sync.ConflictEvent, error) {
	args := m.Called(ctx, entityID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ConflictEvent), args.Error(1)
}

func (m *MockConflictEventRepository) FindPendingReview(ctx context.Context, userID uuid.UUID, limit int) ([]sync.ConflictEvent, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sync.ConflictEvent), args.Error(1)
}

func newTestResolver(t *testing.T, rules sync.RuleTable) (*ConflictResolver, *MockConflictEventRepository) {
	t.Helper()
	repo := new(MockConflictEventRepository)
	var source sync.RuleTableSource
	if rules != nil {
		source = sync.StaticRuleSource(rules)
	}
	resolver := NewConflictResolver(source, platform.NewBehaviorRegistry(nil), repo, zap.NewNop())
	return resolver, repo
}

// failingRuleSource simulates a rule lookup outage
type failingRuleSource struct{}

func (failingRuleSource) RulesForUser(_ context.Context, _ uuid.UUID) (sync.RuleTable, error) {
	return nil, errors.New("rules table unavailable")
}

func priceConflict(canonical, reported any) sync.RawConflict {
	now := time.Now()
	return sync.RawConflict{
		UserID:             uuid.New(),
		EntityType:         "ProductVariant",
		EntityID:           uuid.New(),
		Field:              sync.ConflictFieldPrice,
		CanonicalValue:     canonical,
		PlatformValue:      reported,
		CanonicalUpdatedAt: now.Add(-time.Hour),
		PlatformReportedAt: now,
		PlatformType:       platform.TypeShopify,
		ConnectionID:       uuid.New(),
	}
}

func TestConflictResolver_DefaultRules_KeepCanonical(t *testing.T) {
	resolver, repo := newTestResolver(t, nil)
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	resolution := resolver.Resolve(context.Background(), priceConflict("19.99", "24.99"))

	assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
	assert.Equal(t, "19.99", resolution.AppliedValue)
	assert.True(t, resolution.Action.IsTerminal())
	repo.AssertNumberOfCalls(t, "Append", 1)
}

func TestConflictResolver_PlatformWins(t *testing.T) {
	resolver, repo := newTestResolver(t, sync.RuleTable{
		{Priority: sync.PriorityPlatformWins, AppliesTo: sync.ConflictFieldAll},
	})
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	resolution := resolver.Resolve(context.Background(), priceConflict("19.99", "24.99"))

	assert.Equal(t, sync.ResolutionAcceptPlatform, resolution.Action)
	assert.Equal(t, "24.99", resolution.AppliedValue)
}

func TestConflictResolver_MostRecent(t *testing.T) {
	resolver, repo := newTestResolver(t, sync.RuleTable{
		{Priority: sync.PriorityMostRecent, AppliesTo: sync.ConflictFieldAll},
	})
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	t.Run("platform newer wins", func(t *testing.T) {
		conflict := priceConflict("19.99", "24.99")
		resolution := resolver.Resolve(context.Background(), conflict)
		assert.Equal(t, sync.ResolutionAcceptPlatform, resolution.Action)
	})

	t.Run("canonical newer wins", func(t *testing.T) {
		conflict := priceConflict("19.99", "24.99")
		conflict.CanonicalUpdatedAt = conflict.PlatformReportedAt.Add(time.Minute)
		resolution := resolver.Resolve(context.Background(), conflict)
		assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
	})

	t.Run("tie goes to canonical", func(t *testing.T) {
		conflict := priceConflict("19.99", "24.99")
		conflict.CanonicalUpdatedAt = conflict.PlatformReportedAt
		resolution := resolver.Resolve(context.Background(), conflict)
		assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
		assert.Equal(t, "19.99", resolution.AppliedValue)
	})
}

func TestConflictResolver_HighestValue(t *testing.T) {
	resolver, repo := newTestResolver(t, sync.RuleTable{
		{Priority: sync.PriorityHighestValue, AppliesTo: sync.ConflictFieldPrice},
	})
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	t.Run("platform higher wins", func(t *testing.T) {
		resolution := resolver.Resolve(context.Background(), priceConflict(decimal.NewFromInt(10), decimal.NewFromInt(15)))
		assert.Equal(t, sync.ResolutionAcceptPlatform, resolution.Action)
	})

	t.Run("canonical higher wins", func(t *testing.T) {
		resolution := resolver.Resolve(context.Background(), priceConflict(20.00, 15.00))
		assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
	})

	t.Run("equal values keep canonical", func(t *testing.T) {
		resolution := resolver.Resolve(context.Background(), priceConflict("15.00", "15.00"))
		assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
	})

	t.Run("non-numeric values keep canonical", func(t *testing.T) {
		resolution := resolver.Resolve(context.Background(), priceConflict("blue shirt", "red shirt"))
		assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
		assert.Equal(t, "blue shirt", resolution.AppliedValue)
	})
}

func TestConflictResolver_UserReview_KeepsCanonicalApplied(t *testing.T) {
	resolver, repo := newTestResolver(t, sync.RuleTable{
		{Priority: sync.PriorityUserReview, AppliesTo: sync.ConflictFieldTitle},
	})
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	conflict := priceConflict("Canonical Title", "Platform Title")
	conflict.Field = sync.ConflictFieldTitle
	resolution := resolver.Resolve(context.Background(), conflict)

	assert.Equal(t, sync.ResolutionUserReview, resolution.Action)
	assert.False(t, resolution.Action.IsTerminal())
	assert.Equal(t, "Canonical Title", resolution.AppliedValue)
}

func TestConflictResolver_PlatformException_AlwaysAcceptsPlatform(t *testing.T) {
	resolver, repo := newTestResolver(t, sync.RuleTable{
		{
			Priority:           sync.PrioritySSSyncWins,
			AppliesTo:          sync.ConflictFieldAll,
			PlatformExceptions: []platform.Type{platform.TypeEbay},
		},
	})
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	conflict := priceConflict("19.99", "24.99")
	conflict.PlatformType = platform.TypeEbay
	resolution := resolver.Resolve(context.Background(), conflict)

	assert.Equal(t, sync.ResolutionAcceptPlatform, resolution.Action)
	assert.Equal(t, "24.99", resolution.AppliedValue)
}

func TestConflictResolver_NoMatchingRule_DefaultsToCanonical(t *testing.T) {
	resolver, repo := newTestResolver(t, sync.RuleTable{
		{Priority: sync.PriorityPlatformWins, AppliesTo: sync.ConflictFieldTitle},
	})
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	resolution := resolver.Resolve(context.Background(), priceConflict("19.99", "24.99"))

	assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
	assert.Equal(t, "19.99", resolution.AppliedValue)
}

func TestConflictResolver_InventoryConflict_SetsDelistSignal(t *testing.T) {
	resolver, repo := newTestResolver(t, nil)
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	inventoryConflict := func(platformType platform.Type, reported int64) sync.RawConflict {
		conflict := priceConflict(int64(5), reported)
		conflict.Field = sync.ConflictFieldInventory
		conflict.PlatformType = platformType
		return conflict
	}

	t.Run("marketplace at zero delists", func(t *testing.T) {
		resolution := resolver.Resolve(context.Background(), inventoryConflict(platform.TypeEbay, 0))
		assert.True(t, resolution.ShouldDelist)
		// Delisting is orthogonal to who wins the value.
		assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
	})

	t.Run("marketplace above threshold does not delist", func(t *testing.T) {
		resolution := resolver.Resolve(context.Background(), inventoryConflict(platform.TypeEbay, 3))
		assert.False(t, resolution.ShouldDelist)
	})

	t.Run("pos platform never delists", func(t *testing.T) {
		resolution := resolver.Resolve(context.Background(), inventoryConflict(platform.TypeSquare, 0))
		assert.False(t, resolution.ShouldDelist)
	})
}

func TestConflictResolver_AppendsExactlyOneRecordPerResolve(t *testing.T) {
	resolver, repo := newTestResolver(t, nil)
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)

	ctx := context.Background()
	resolver.Resolve(ctx, priceConflict("a", "b"))
	resolver.Resolve(ctx, priceConflict("c", "d"))
	resolver.Resolve(ctx, priceConflict("e", "f"))

	repo.AssertNumberOfCalls(t, "Append", 3)
}

func TestConflictResolver_AuditFailureDoesNotBlockResolution(t *testing.T) {
	resolver, repo := newTestResolver(t, nil)
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(errors.New("db down"))

	resolution := resolver.Resolve(context.Background(), priceConflict("19.99", "24.99"))

	assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
	assert.Equal(t, int64(1), resolver.AuditFailures())
	repo.AssertExpectations(t)
}

func TestConflictResolver_RuleLookupFailure_FallsBackToDefaults(t *testing.T) {
	repo := new(MockConflictEventRepository)
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).Return(nil)
	resolver := NewConflictResolver(failingRuleSource{}, platform.NewBehaviorRegistry(nil), repo, zap.NewNop())

	resolution := resolver.Resolve(context.Background(), priceConflict("19.99", "24.99"))

	assert.Equal(t, sync.ResolutionKeepCanonical, resolution.Action)
	assert.Equal(t, "19.99", resolution.AppliedValue)
}

func TestConflictResolver_RecordCarriesBothSides(t *testing.T) {
	resolver, repo := newTestResolver(t, nil)

	var captured *sync.ConflictEvent
	repo.On("Append", mock.Anything, mock.AnythingOfType("*sync.ConflictEvent")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*sync.ConflictEvent)
		}).
		Return(nil)

	conflict := priceConflict("19.99", "24.99")
	resolver.Resolve(context.Background(), conflict)

	require.NotNil(t, captured)
	assert.Equal(t, conflict.EntityID, captured.EntityID)
	assert.Equal(t, sync.ConflictFieldPrice, captured.Field)
	assert.JSONEq(t, `"19.99"`, string(captured.CanonicalValue))
	assert.JSONEq(t, `"24.99"`, string(captured.PlatformValue))
	assert.Contains(t, string(captured.Resolution), "keep_canonical")
}
