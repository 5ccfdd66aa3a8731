package model

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// CartStatus is the session state of the cart
type CartStatus string

const (
	CartEmpty  CartStatus = "empty"
	CartActive CartStatus = "active"
)

// MaxQuantity is the largest quantity a line item may hold, in memory and
// in stored records
const MaxQuantity = math.MaxInt32

// LineItem is one product entry in the cart, identified by Name
type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

// LineTotal returns price * quantity
func (i LineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartLine is a line item with its computed total
type CartLine struct {
	LineItem
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the render model of the cart
type CartView struct {
	Status    CartStatus         `json:"status"`
	Items     []CartLine         `json:"items"`
	ItemCount int                `json:"item_count"`
	Coupon    *AppliedCouponView `json:"coupon,omitempty"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	Discount  decimal.Decimal    `json:"discount"`
	Total     decimal.Decimal    `json:"total"`
}

// Receipt is the outcome of a completed checkout
type Receipt struct {
	OrderID       string          `json:"order_id"`
	Items         []LineItem      `json:"items"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	PlacedAt      time.Time       `json:"placed_at"`
}

// AddItemRequest represents the request to add a product to the cart
type AddItemRequest struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// ChangeQuantityRequest represents a signed quantity change
type ChangeQuantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// CheckoutRequest represents the request to place the order
type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=upi card cod"`
}

// StorageInfo describes the durable cart record
type StorageInfo struct {
	Available bool   `json:"available"`
	HasData   bool   `json:"has_data"`
	DataSize  int    `json:"data_size"` // bytes
	Key       string `json:"key"`
	Error     string `json:"error,omitempty"`
}
