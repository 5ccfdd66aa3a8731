package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors for the cart service
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnknownCoupon        = errors.New("invalid coupon code")
	ErrNotEligible          = errors.New("coupon not eligible for this order")
	ErrEmptyCart            = errors.New("your cart is empty")
	ErrStorageUnavailable   = errors.New("storage not available")
	ErrStorageCorrupted     = errors.New("stored cart data is corrupted")
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
)

// NotEligibleError reports the minimum order a coupon requires.
// It matches ErrNotEligible with errors.Is.
type NotEligibleError struct {
	Code     string
	MinOrder decimal.Decimal
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("coupon %s requires a minimum order of ₹%s", e.Code, e.MinOrder.StringFixed(0))
}

func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}

// InvalidInputf wraps ErrInvalidInput with a formatted reason.
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
