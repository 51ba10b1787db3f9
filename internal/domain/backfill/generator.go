package backfill

import (
	"context"

	"github.com/shopspring/decimal"
)

// GeneratedContent is the output of one content generation call
type GeneratedContent struct {
	// Value is the generated replacement value
	Value string
	// Confidence scores the generated value in [0,1]
	Confidence decimal.Decimal
}

// ContentGenerator is the port interface for remediation content engines.
// Concrete implementations (AI generation, barcode lookup, ...) live outside
// this core and are injected at wiring time. A nil generator means items of
// that kind are skipped rather than failed.
type ContentGenerator interface {
	// Generate produces a replacement value for one work item
	Generate(ctx context.Context, item *BackfillItem) (GeneratedContent, error)
}
