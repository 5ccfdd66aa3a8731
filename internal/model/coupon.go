package model

import "github.com/shopspring/decimal"

// CouponKind selects how a coupon's value is turned into a discount
type CouponKind string

const (
	CouponFlat       CouponKind = "flat"
	CouponPercentage CouponKind = "percentage"
)

// CouponDefinition is a fixed catalog entry
type CouponDefinition struct {
	Code        string          `json:"code"`
	Kind        CouponKind      `json:"kind"`
	Value       decimal.Decimal `json:"value"`     // amount if flat, percentage points if percentage
	MinOrder    decimal.Decimal `json:"min_order"` // 0 = always eligible
	Description string          `json:"description"`
}

// ApplyCouponRequest represents the request to apply a coupon to the cart
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// AppliedCouponView is the coupon section of the cart view
type AppliedCouponView struct {
	Code        string          `json:"code"`
	Kind        CouponKind      `json:"kind"`
	Value       decimal.Decimal `json:"value"`
	Description string          `json:"description"`
}
