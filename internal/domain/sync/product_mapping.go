package sync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sssync/backend/internal/domain/platform"
)

var (
	ErrMappingNotFound         = errors.New("sync: product mapping not found")
	ErrMappingInvalidProductID = errors.New("sync: invalid product ID")
	ErrMappingInvalidPlatform  = errors.New("sync: invalid platform product ID")
)

// ---------------------------------------------------------------------------
// ProductMapping Entity
// ---------------------------------------------------------------------------

// ProductMapping links a canonical product to its listing on one
// connection. Variant-level data is carried for gap analysis and conflict
// detection without round-tripping to the platform.
type ProductMapping struct {
	// ID is the unique identifier of this mapping
	ID uuid.UUID
	// UserID is the owning user
	UserID uuid.UUID
	// ConnectionID is the connection this mapping belongs to
	ConnectionID uuid.UUID
	// LocalProductID is the canonical product ID
	LocalProductID uuid.UUID
	// PlatformProductID is the product ID on the platform
	PlatformProductID string
	// PlatformType mirrors the connection's platform for convenience
	PlatformType platform.Type
	// Enabled indicates this mapping participates in sync and analysis
	Enabled bool
	// Variants holds the mapped variant snapshots
	Variants []MappedVariant
	// LastSyncedAt is when this mapping was last pushed to the platform
	LastSyncedAt *time.Time
	// CreatedAt is when this mapping was created
	CreatedAt time.Time
	// UpdatedAt is when this mapping was last updated
	UpdatedAt time.Time
}

// NewProductMapping creates a new enabled product mapping
func NewProductMapping(
	userID uuid.UUID,
	connectionID uuid.UUID,
	localProductID uuid.UUID,
	platformProductID string,
	platformType platform.Type,
) (*ProductMapping, error) {
	if userID == uuid.Nil {
		return nil, ErrConnectionInvalidUserID
	}
	if localProductID == uuid.Nil {
		return nil, ErrMappingInvalidProductID
	}
	if platformProductID == "" {
		return nil, ErrMappingInvalidPlatform
	}

	now := time.Now()
	return &ProductMapping{
		ID:                uuid.New(),
		UserID:            userID,
		ConnectionID:      connectionID,
		LocalProductID:    localProductID,
		PlatformProductID: platformProductID,
		PlatformType:      platformType,
		Enabled:           true,
		Variants:          make([]MappedVariant, 0),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// RecordSync stamps a successful push to the platform
func (m *ProductMapping) RecordSync() {
	now := time.Now()
	m.LastSyncedAt = &now
	m.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// MappedVariant Value Object
// ---------------------------------------------------------------------------

// MappedVariant is the snapshot of one variant on the mapped listing
type MappedVariant struct {
	// ID is the canonical variant ID
	ID uuid.UUID `json:"id"`
	// PlatformVariantID is the variant/SKU ID on the platform
	PlatformVariantID string `json:"platform_variant_id"`
	// SKU is the canonical SKU code
	SKU string `json:"sku"`
	// Title is the variant title
	Title string `json:"title"`
	// Description is the listing description
	Description string `json:"description"`
	// Barcode is the UPC/EAN, if known
	Barcode string `json:"barcode"`
	// Price is the listed price
	Price decimal.Decimal `json:"price"`
	// ImageCount is the number of images attached to the listing
	ImageCount int `json:"image_count"`
}

// MissingPhotos returns true if the variant has no images
func (v MappedVariant) MissingPhotos() bool {
	return v.ImageCount == 0
}

// MissingDescription returns true if the variant has no description
func (v MappedVariant) MissingDescription() bool {
	return v.Description == ""
}

// MissingBarcode returns true if the variant has no barcode
func (v MappedVariant) MissingBarcode() bool {
	return v.Barcode == ""
}

// MissingPricing returns true if the variant's price is zero or negative
func (v MappedVariant) MissingPricing() bool {
	return !v.Price.IsPositive()
}

// ---------------------------------------------------------------------------
// ProductMappingRepository Interface
// ---------------------------------------------------------------------------

// ProductMappingRepository defines the persistence interface for mappings
type ProductMappingRepository interface {
	// FindByID finds a mapping by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ProductMapping, error)

	// FindEnabledByConnection returns all enabled mappings for a connection
	FindEnabledByConnection(ctx context.Context, connectionID uuid.UUID) ([]ProductMapping, error)

	// FindByLocalProduct returns all mappings of a canonical product
	FindByLocalProduct(ctx context.Context, userID uuid.UUID, localProductID uuid.UUID) ([]ProductMapping, error)

	// ExistsForEntity reports whether the connection holds a mapping that
	// covers the given entity (product or variant)
	ExistsForEntity(ctx context.Context, connectionID uuid.UUID, entityID uuid.UUID) (bool, error)

	// Save creates or updates a mapping
	Save(ctx context.Context, mapping *ProductMapping) error

	// Delete deletes a mapping
	Delete(ctx context.Context, id uuid.UUID) error
}
