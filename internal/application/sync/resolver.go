package sync

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/platform"
	"github.com/sssync/backend/internal/domain/sync"
	"go.uber.org/zap"
)

// ConflictResolver decides the winning value when the canonical store and a
// platform disagree. Resolve is total: it always returns a decision, and
// every invocation appends exactly one ConflictEvent audit record.
type ConflictResolver struct {
	rules     sync.RuleTableSource
	behaviors *platform.BehaviorRegistry
	conflicts sync.ConflictEventRepository
	logger    *zap.Logger

	// auditFailures counts ConflictEvent appends that failed. The conflict
	// is still resolved; only its audit trail is missing.
	auditFailures atomic.Int64
}

// NewConflictResolver creates a conflict resolver. A nil rule source falls
// back to the default table (canonical wins everywhere).
func NewConflictResolver(
	rules sync.RuleTableSource,
	behaviors *platform.BehaviorRegistry,
	conflicts sync.ConflictEventRepository,
	logger *zap.Logger,
) *ConflictResolver {
	if rules == nil {
		rules = sync.StaticRuleSource(sync.DefaultRuleTable())
	}
	return &ConflictResolver{
		rules:     rules,
		behaviors: behaviors,
		conflicts: conflicts,
		logger:    logger,
	}
}

// AuditFailures returns how many audit appends have failed since start.
// Surfaced so operators can detect gaps in the conflict trail.
func (r *ConflictResolver) AuditFailures() int64 {
	return r.auditFailures.Load()
}

// Resolve decides the outcome for a raw conflict. It never fails: unknown
// or missing rules default to keeping the canonical value. For inventory
// conflicts the resolution additionally carries the delist signal from the
// platform behavior registry.
func (r *ConflictResolver) Resolve(ctx context.Context, conflict sync.RawConflict) sync.Resolution {
	resolution := r.decide(ctx, conflict)

	if conflict.Field == sync.ConflictFieldInventory {
		if quantity, ok := sync.NumericValue(conflict.PlatformValue); ok {
			resolution.ShouldDelist = r.behaviors.ShouldDelist(conflict.PlatformType, quantity.IntPart())
		}
	}

	r.appendAudit(ctx, conflict, resolution)
	return resolution
}

// decide runs the policy evaluation: platform exceptions first, then the
// rule's priority. Missing rule means canonical is the source of truth.
func (r *ConflictResolver) decide(ctx context.Context, conflict sync.RawConflict) sync.Resolution {
	rules := r.tableFor(ctx, conflict.UserID)
	rule, found := rules.Match(conflict.Field)
	if !found {
		return sync.Resolution{
			Action:       sync.ResolutionKeepCanonical,
			AppliedValue: conflict.CanonicalValue,
			Reason:       "no rule, default to canonical source of truth",
		}
	}

	if rule.ExemptsPlatform(conflict.PlatformType) {
		return sync.Resolution{
			Action:       sync.ResolutionAcceptPlatform,
			AppliedValue: conflict.PlatformValue,
			Reason:       fmt.Sprintf("platform %s is exempted from rule %s", conflict.PlatformType, rule.Priority),
		}
	}

	switch rule.Priority {
	case sync.PrioritySSSyncWins:
		return sync.Resolution{
			Action:       sync.ResolutionKeepCanonical,
			AppliedValue: conflict.CanonicalValue,
			Reason:       "canonical store is the configured source of truth",
		}

	case sync.PriorityPlatformWins:
		return sync.Resolution{
			Action:       sync.ResolutionAcceptPlatform,
			AppliedValue: conflict.PlatformValue,
			Reason:       fmt.Sprintf("platform %s is the configured source of truth", conflict.PlatformType),
		}

	case sync.PriorityMostRecent:
		// Strictly later platform timestamp wins; ties go to canonical.
		if conflict.PlatformReportedAt.After(conflict.CanonicalUpdatedAt) {
			return sync.Resolution{
				Action:       sync.ResolutionAcceptPlatform,
				AppliedValue: conflict.PlatformValue,
				Reason: fmt.Sprintf("platform value is more recent (%s > %s)",
					conflict.PlatformReportedAt.Format("2006-01-02T15:04:05Z07:00"),
					conflict.CanonicalUpdatedAt.Format("2006-01-02T15:04:05Z07:00")),
			}
		}
		return sync.Resolution{
			Action:       sync.ResolutionKeepCanonical,
			AppliedValue: conflict.CanonicalValue,
			Reason:       "canonical value is as recent or newer",
		}

	case sync.PriorityHighestValue:
		canonical, okCanonical := sync.NumericValue(conflict.CanonicalValue)
		platformVal, okPlatform := sync.NumericValue(conflict.PlatformValue)
		if !okCanonical || !okPlatform {
			return sync.Resolution{
				Action:       sync.ResolutionKeepCanonical,
				AppliedValue: conflict.CanonicalValue,
				Reason:       "highest_value only applies to numeric fields, keeping canonical",
			}
		}
		// Canonical wins ties.
		if platformVal.GreaterThan(canonical) {
			return sync.Resolution{
				Action:       sync.ResolutionAcceptPlatform,
				AppliedValue: conflict.PlatformValue,
				Reason:       fmt.Sprintf("platform value %s is higher than canonical %s", platformVal, canonical),
			}
		}
		return sync.Resolution{
			Action:       sync.ResolutionKeepCanonical,
			AppliedValue: conflict.CanonicalValue,
			Reason:       fmt.Sprintf("canonical value %s is highest", canonical),
		}

	case sync.PriorityUserReview:
		// Non-terminal: canonical applies until a human decision is recorded.
		return sync.Resolution{
			Action:       sync.ResolutionUserReview,
			AppliedValue: conflict.CanonicalValue,
			Reason:       "conflict queued for user review, canonical value applies until reviewed",
		}

	default:
		return sync.Resolution{
			Action:       sync.ResolutionKeepCanonical,
			AppliedValue: conflict.CanonicalValue,
			Reason:       fmt.Sprintf("unknown rule priority %q, default to canonical source of truth", rule.Priority),
		}
	}
}

// tableFor loads the user's rule table. Lookup failure or an unconfigured
// user falls back to the default table so resolution stays total.
func (r *ConflictResolver) tableFor(ctx context.Context, userID uuid.UUID) sync.RuleTable {
	rules, err := r.rules.RulesForUser(ctx, userID)
	if err != nil {
		r.logger.Warn("failed to load conflict rules, using defaults",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return sync.DefaultRuleTable()
	}
	if len(rules) == 0 {
		return sync.DefaultRuleTable()
	}
	return rules
}

// appendAudit appends the ConflictEvent record. Persistence failure is
// logged and counted but never blocks the resolution.
func (r *ConflictResolver) appendAudit(ctx context.Context, conflict sync.RawConflict, resolution sync.Resolution) {
	record, err := sync.NewConflictEvent(conflict, resolution)
	if err != nil {
		r.auditFailures.Add(1)
		r.logger.Error("failed to build conflict audit record",
			zap.String("entity_id", conflict.EntityID.String()),
			zap.String("field", string(conflict.Field)),
			zap.Error(err),
		)
		return
	}

	if err := r.conflicts.Append(ctx, record); err != nil {
		r.auditFailures.Add(1)
		r.logger.Error("failed to persist conflict audit record",
			zap.String("entity_id", conflict.EntityID.String()),
			zap.String("field", string(conflict.Field)),
			zap.String("action", string(resolution.Action)),
			zap.Int64("audit_failures", r.auditFailures.Load()),
			zap.Error(err),
		)
	}
}
