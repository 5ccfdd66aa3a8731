package service

// Error message constants for the cart domain.
const (
	ErrMsgNameRequired       = "product name is required"
	ErrMsgPricePositive      = "price must be positive"
	ErrMsgCouponCodeRequired = "please enter a coupon code"
)
