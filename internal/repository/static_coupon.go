package repository

import (
	"sort"

	"quickbasket/internal/model"

	"github.com/shopspring/decimal"
)

// staticCouponCatalog implements CouponCatalog over a fixed set of coupons
type staticCouponCatalog struct {
	coupons map[string]model.CouponDefinition
}

// DefaultCoupons is the storefront's fixed coupon set
func DefaultCoupons() []model.CouponDefinition {
	return []model.CouponDefinition{
		{
			Code:        "FESTIVEDAY",
			Kind:        model.CouponFlat,
			Value:       decimal.NewFromInt(100),
			MinOrder:    decimal.NewFromInt(299),
			Description: "₹100 off on orders above ₹299",
		},
		{
			Code:        "MEGA40",
			Kind:        model.CouponPercentage,
			Value:       decimal.NewFromInt(40),
			MinOrder:    decimal.NewFromInt(500),
			Description: "40% off on orders above ₹500",
		},
		{
			Code:        "WELCOME50",
			Kind:        model.CouponFlat,
			Value:       decimal.NewFromInt(50),
			MinOrder:    decimal.Zero,
			Description: "₹50 off your first order",
		},
		{
			Code:        "SAVE10",
			Kind:        model.CouponPercentage,
			Value:       decimal.NewFromInt(10),
			MinOrder:    decimal.NewFromInt(199),
			Description: "10% off on orders above ₹199",
		},
	}
}

// NewCouponCatalog creates a catalog holding the given coupons.
// Codes are expected in upper case.
func NewCouponCatalog(coupons []model.CouponDefinition) CouponCatalog {
	byCode := make(map[string]model.CouponDefinition, len(coupons))
	for _, c := range coupons {
		byCode[c.Code] = c
	}
	return &staticCouponCatalog{coupons: byCode}
}

// Lookup returns the coupon for code
func (c *staticCouponCatalog) Lookup(code string) (model.CouponDefinition, bool) {
	coupon, ok := c.coupons[code]
	return coupon, ok
}

// List returns every coupon ordered by code
func (c *staticCouponCatalog) List() []model.CouponDefinition {
	out := make([]model.CouponDefinition, 0, len(c.coupons))
	for _, coupon := range c.coupons {
		out = append(out, coupon)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
