package backfill

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sssync/backend/internal/domain/platform"
)

// GapAnalysis summarizes missing listing data across a connection's
// enabled product mappings
type GapAnalysis struct {
	// ConnectionID is the analyzed connection
	ConnectionID uuid.UUID `json:"connection_id"`
	// PlatformType is the connection's platform
	PlatformType platform.Type `json:"platform_type"`
	// TotalVariants is the number of mapped variants inspected
	TotalVariants int `json:"total_variants"`
	// MissingPhotos counts variants with zero images
	MissingPhotos int `json:"missing_photos"`
	// MissingDescriptions counts variants with an empty description
	MissingDescriptions int `json:"missing_descriptions"`
	// MissingBarcodes counts variants with no barcode
	MissingBarcodes int `json:"missing_barcodes"`
	// MissingPricing counts variants priced at or below zero
	MissingPricing int `json:"missing_pricing"`
	// Recommendations is the prioritized remediation plan
	Recommendations []Recommendation `json:"recommendations"`
	// AnalyzedAt is when the analysis ran
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// GapCount returns the gap count for one data type
func (a GapAnalysis) GapCount(dataType DataType) int {
	switch dataType {
	case DataTypePhotos:
		return a.MissingPhotos
	case DataTypeDescriptions:
		return a.MissingDescriptions
	case DataTypeBarcodes:
		return a.MissingBarcodes
	case DataTypePricing:
		return a.MissingPricing
	default:
		return 0
	}
}

// Recommendation is one prioritized, costed remediation action
type Recommendation struct {
	// DataType is the gap category the action addresses
	DataType DataType `json:"data_type"`
	// Action is the operator-facing action description
	Action string `json:"action"`
	// Priority orders the recommendation for the operator
	Priority Priority `json:"priority"`
	// Count is the number of affected variants
	Count int `json:"count"`
	// EstimatedCost is count x per-unit cost, in USD
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	// EstimatedHours is ceil(count / batch size)
	EstimatedHours int `json:"estimated_hours"`
}
