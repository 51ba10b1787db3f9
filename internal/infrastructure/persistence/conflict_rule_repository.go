package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormConflictRuleRepository serves per-user resolution rule tables from the
// database. An empty result means the user has not configured rules and the
// caller falls back to the default table.
type GormConflictRuleRepository struct {
	db *gorm.DB
}

// NewGormConflictRuleRepository creates a new GormConflictRuleRepository
func NewGormConflictRuleRepository(db *gorm.DB) *GormConflictRuleRepository {
	return &GormConflictRuleRepository{db: db}
}

// RulesForUser returns the user's rule table ordered by position
func (r *GormConflictRuleRepository) RulesForUser(ctx context.Context, userID uuid.UUID) (sync.RuleTable, error) {
	var ruleModels []models.ConflictRuleModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}

	table := make(sync.RuleTable, len(ruleModels))
	for i, model := range ruleModels {
		table[i] = model.ToDomain()
	}
	return table, nil
}

var _ sync.RuleTableSource = (*GormConflictRuleRepository)(nil)
