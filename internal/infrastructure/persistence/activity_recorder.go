package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormActivityRecorder appends user activity lines to the database.
// Failures are logged and swallowed: activity recording must never fail
// the operation that produced the activity.
type GormActivityRecorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormActivityRecorder creates a new GormActivityRecorder
func NewGormActivityRecorder(db *gorm.DB, logger *zap.Logger) *GormActivityRecorder {
	return &GormActivityRecorder{db: db, logger: logger}
}

// RecordActivity appends one activity line for the user
func (r *GormActivityRecorder) RecordActivity(ctx context.Context, userID uuid.UUID, action string, detail map[string]any) {
	detailJSON := "{}"
	if len(detail) > 0 {
		if jsonBytes, err := json.Marshal(detail); err == nil {
			detailJSON = string(jsonBytes)
		}
	}

	model := &models.ActivityLogModel{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    action,
		Detail:    detailJSON,
		CreatedAt: time.Now(),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Warn("failed to record activity",
			zap.String("user_id", userID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

var _ sync.ActivityRecorder = (*GormActivityRecorder)(nil)
