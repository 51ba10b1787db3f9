package platform

// ---------------------------------------------------------------------------
// Type represents an external sales channel platform
// ---------------------------------------------------------------------------

// Type represents the type of external platform a connection points at
type Type string

const (
	// TypeShopify represents a Shopify storefront
	TypeShopify Type = "SHOPIFY"
	// TypeSquare represents a Square point-of-sale catalog
	TypeSquare Type = "SQUARE"
	// TypeClover represents a Clover point-of-sale catalog
	TypeClover Type = "CLOVER"
	// TypeAmazon represents an Amazon marketplace seller account
	TypeAmazon Type = "AMAZON"
	// TypeEbay represents an eBay marketplace seller account
	TypeEbay Type = "EBAY"
	// TypeFacebook represents a Facebook Marketplace shop
	TypeFacebook Type = "FACEBOOK"
	// TypeDepop represents a Depop marketplace shop
	TypeDepop Type = "DEPOP"
	// TypeWhatnot represents a Whatnot live-selling shop
	TypeWhatnot Type = "WHATNOT"
)

// IsValid returns true if the platform type is a known platform
func (t Type) IsValid() bool {
	switch t {
	case TypeShopify, TypeSquare, TypeClover, TypeAmazon,
		TypeEbay, TypeFacebook, TypeDepop, TypeWhatnot:
		return true
	default:
		return false
	}
}

// String returns the string representation of the platform type
func (t Type) String() string {
	return string(t)
}

// ---------------------------------------------------------------------------
// InventoryBehavior
// ---------------------------------------------------------------------------

// InventoryBehavior describes how a platform treats stock levels
type InventoryBehavior string

const (
	// InventoryReduceOnly means the platform only ever decreases stock;
	// listings stay up at zero quantity
	InventoryReduceOnly InventoryBehavior = "reduce_only"
	// InventoryDelistAfterSale means the platform removes a listing once
	// stock drops to the delist threshold
	InventoryDelistAfterSale InventoryBehavior = "delist_after_sale"
	// InventoryHybrid means the platform reduces stock and additionally
	// delists at the threshold
	InventoryHybrid InventoryBehavior = "hybrid"
)

// IsValid returns true if the behavior is a known inventory behavior
func (b InventoryBehavior) IsValid() bool {
	switch b {
	case InventoryReduceOnly, InventoryDelistAfterSale, InventoryHybrid:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// BehaviorRule
// ---------------------------------------------------------------------------

// BehaviorRule captures the per-platform inventory and sync semantics
type BehaviorRule struct {
	// InventoryBehavior describes how the platform handles stock changes
	InventoryBehavior InventoryBehavior
	// DelistThreshold is the quantity at or below which a listing is
	// removed, for behaviors that delist
	DelistThreshold int64
	// SupportsInventorySync indicates the platform accepts inventory pushes
	SupportsInventorySync bool
	// SupportsPricingSync indicates the platform accepts price pushes
	SupportsPricingSync bool
	// SupportsMetadataSync indicates the platform accepts title/description pushes
	SupportsMetadataSync bool
	// ListingRequiresImages indicates listings fail or are hidden without
	// at least one image on this platform
	ListingRequiresImages bool
}

// DefaultBehaviorRule is applied to unknown platform types so new platforms
// degrade safely instead of breaking propagation
func DefaultBehaviorRule() BehaviorRule {
	return BehaviorRule{
		InventoryBehavior:     InventoryReduceOnly,
		DelistThreshold:       0,
		SupportsInventorySync: true,
		SupportsPricingSync:   true,
		SupportsMetadataSync:  true,
	}
}

// builtinRules holds the behavior table for the platforms we ship with.
// Marketplace-style platforms delist sold-out listings; POS catalogs keep
// items visible at zero stock.
func builtinRules() map[Type]BehaviorRule {
	return map[Type]BehaviorRule{
		TypeShopify: {
			InventoryBehavior:     InventoryReduceOnly,
			SupportsInventorySync: true,
			SupportsPricingSync:   true,
			SupportsMetadataSync:  true,
		},
		TypeSquare: {
			InventoryBehavior:     InventoryReduceOnly,
			SupportsInventorySync: true,
			SupportsPricingSync:   true,
			SupportsMetadataSync:  true,
		},
		TypeClover: {
			InventoryBehavior:     InventoryReduceOnly,
			SupportsInventorySync: true,
			SupportsPricingSync:   true,
			SupportsMetadataSync:  false,
		},
		TypeAmazon: {
			InventoryBehavior:     InventoryHybrid,
			DelistThreshold:       0,
			SupportsInventorySync: true,
			SupportsPricingSync:   true,
			SupportsMetadataSync:  true,
			ListingRequiresImages: true,
		},
		TypeEbay: {
			InventoryBehavior:     InventoryHybrid,
			DelistThreshold:       0,
			SupportsInventorySync: true,
			SupportsPricingSync:   true,
			SupportsMetadataSync:  true,
			ListingRequiresImages: true,
		},
		TypeFacebook: {
			InventoryBehavior:     InventoryDelistAfterSale,
			DelistThreshold:       0,
			SupportsInventorySync: true,
			SupportsPricingSync:   true,
			SupportsMetadataSync:  true,
			ListingRequiresImages: true,
		},
		TypeDepop: {
			InventoryBehavior:     InventoryDelistAfterSale,
			DelistThreshold:       0,
			SupportsInventorySync: true,
			SupportsPricingSync:   false,
			SupportsMetadataSync:  false,
			ListingRequiresImages: true,
		},
		TypeWhatnot: {
			InventoryBehavior:     InventoryDelistAfterSale,
			DelistThreshold:       0,
			SupportsInventorySync: true,
			SupportsPricingSync:   false,
			SupportsMetadataSync:  false,
			ListingRequiresImages: true,
		},
	}
}

// ---------------------------------------------------------------------------
// BehaviorRegistry
// ---------------------------------------------------------------------------

// BehaviorRegistry is a static lookup table of per-platform inventory
// semantics. It is immutable after construction and safe for concurrent use.
type BehaviorRegistry struct {
	rules       map[Type]BehaviorRule
	defaultRule BehaviorRule
}

// NewBehaviorRegistry creates a registry from the built-in behavior table,
// with overrides layered on top (typically sourced from configuration)
func NewBehaviorRegistry(overrides map[Type]BehaviorRule) *BehaviorRegistry {
	rules := builtinRules()
	for platformType, rule := range overrides {
		rules[platformType] = rule
	}
	return &BehaviorRegistry{
		rules:       rules,
		defaultRule: DefaultBehaviorRule(),
	}
}

// BehaviorFor returns the behavior rule for a platform type.
// Unknown platform types fall back to the default rule rather than failing.
func (r *BehaviorRegistry) BehaviorFor(platformType Type) BehaviorRule {
	if rule, ok := r.rules[platformType]; ok {
		return rule
	}
	return r.defaultRule
}

// ShouldDelist returns true if the given quantity should trigger delisting
// on the platform. reduce_only platforms never delist.
func (r *BehaviorRegistry) ShouldDelist(platformType Type, quantity int64) bool {
	rule := r.BehaviorFor(platformType)
	switch rule.InventoryBehavior {
	case InventoryDelistAfterSale, InventoryHybrid:
		return quantity <= rule.DelistThreshold
	default:
		return false
	}
}

// ListingRequiresImages returns true if listings on the platform are known
// to fail without at least one image
func (r *BehaviorRegistry) ListingRequiresImages(platformType Type) bool {
	return r.BehaviorFor(platformType).ListingRequiresImages
}
