package repository

import "quickbasket/internal/model"

// CouponCatalog defines read-only access to coupon definitions
type CouponCatalog interface {
	// Lookup returns the coupon for an upper-case code
	Lookup(code string) (model.CouponDefinition, bool)

	// List returns every coupon, ordered by code
	List() []model.CouponDefinition
}
