package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/sssync/backend/internal/domain/sync"
	"github.com/sssync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormProductMappingRepository implements ProductMappingRepository using GORM
type GormProductMappingRepository struct {
	db *gorm.DB
}

// NewGormProductMappingRepository creates a new GormProductMappingRepository
func NewGormProductMappingRepository(db *gorm.DB) *GormProductMappingRepository {
	return &GormProductMappingRepository{db: db}
}

// FindByID finds a mapping by its ID
func (r *GormProductMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.ProductMapping, error) {
	var model models.ProductMappingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindEnabledByConnection returns all enabled mappings for a connection
func (r *GormProductMappingRepository) FindEnabledByConnection(ctx context.Context, connectionID uuid.UUID) ([]sync.ProductMapping, error) {
	var mappingModels []models.ProductMappingModel
	if err := r.db.WithContext(ctx).
		Where("connection_id = ? AND enabled = ?", connectionID, true).
		Order("created_at ASC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]sync.ProductMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// FindByLocalProduct returns all mappings of a canonical product
func (r *GormProductMappingRepository) FindByLocalProduct(ctx context.Context, userID uuid.UUID, localProductID uuid.UUID) ([]sync.ProductMapping, error) {
	var mappingModels []models.ProductMappingModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND local_product_id = ?", userID, localProductID).
		Order("created_at ASC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]sync.ProductMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// ExistsForEntity reports whether the connection holds a mapping covering the
// entity. The entity may be the mapped product itself or one of its variants,
// so the variant snapshots are searched as JSONB.
func (r *GormProductMappingRepository) ExistsForEntity(ctx context.Context, connectionID uuid.UUID, entityID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductMappingModel{}).
		Where("connection_id = ? AND local_product_id = ?", connectionID, entityID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	type variantCriteria struct {
		ID uuid.UUID `json:"id"`
	}
	criteriaJSON, err := json.Marshal([]variantCriteria{{ID: entityID}})
	if err != nil {
		return false, err
	}

	if err := r.db.WithContext(ctx).
		Model(&models.ProductMappingModel{}).
		Where("connection_id = ? AND variants::jsonb @> ?", connectionID, string(criteriaJSON)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a mapping
func (r *GormProductMappingRepository) Save(ctx context.Context, mapping *sync.ProductMapping) error {
	model := models.ProductMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a mapping
func (r *GormProductMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductMappingModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrMappingNotFound
	}
	return nil
}

var _ sync.ProductMappingRepository = (*GormProductMappingRepository)(nil)
