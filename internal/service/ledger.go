package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"quickbasket/internal/model"
	"quickbasket/internal/notify"
	"quickbasket/internal/repository"
	cerrors "quickbasket/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Persister receives a snapshot of the items after every cart mutation
type Persister interface {
	DebouncedSave(items []model.LineItem)
}

// discountPlaces is the precision percentage discounts are rounded to
const discountPlaces = 0

var hundred = decimal.NewFromInt(100)

// Ledger holds one cart session: its line items and at most one coupon.
// Totals are derived on every read.
type Ledger struct {
	catalog   repository.CouponCatalog
	persister Persister
	notifier  notify.Notifier
	log       *zap.Logger
	now       func() time.Time

	mu     sync.Mutex
	items  []model.LineItem
	coupon *model.CouponDefinition
}

// NewLedger creates an empty cart. persister and notifier may be nil.
func NewLedger(catalog repository.CouponCatalog, persister Persister, notifier notify.Notifier, log *zap.Logger) *Ledger {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		catalog:   catalog,
		persister: persister,
		notifier:  notifier,
		log:       log.Named("ledger"),
		now:       time.Now,
	}
}

// sameItem is the line item identity rule
func sameItem(a, b string) bool {
	return a == b
}

func (l *Ledger) indexLocked(name string) int {
	for i := range l.items {
		if sameItem(l.items[i].Name, name) {
			return i
		}
	}
	return -1
}

// Hydrate replaces the items with ones loaded from storage. Entries sharing
// a name are merged. Nothing is persisted.
func (l *Ledger) Hydrate(items []model.LineItem) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = l.items[:0]
	for _, item := range items {
		if item.Quantity <= 0 || !item.Price.IsPositive() {
			continue
		}
		if item.Quantity > model.MaxQuantity {
			item.Quantity = model.MaxQuantity
		}
		if i := l.indexLocked(item.Name); i >= 0 {
			l.items[i].Quantity = addQuantity(l.items[i].Quantity, item.Quantity)
			continue
		}
		l.items = append(l.items, item)
	}
	l.log.Info("cart restored", zap.Int("items", len(l.items)))
}

// AddItem puts one unit of a product in the cart, merging with an existing
// line of the same name.
func (l *Ledger) AddItem(name string, price decimal.Decimal, image string) error {
	if strings.TrimSpace(name) == "" {
		return cerrors.InvalidInputf(ErrMsgNameRequired)
	}
	if !price.IsPositive() {
		return cerrors.InvalidInputf(ErrMsgPricePositive)
	}

	l.mu.Lock()
	if i := l.indexLocked(name); i >= 0 {
		l.items[i].Quantity = addQuantity(l.items[i].Quantity, 1)
	} else {
		l.items = append(l.items, model.LineItem{Name: name, Price: price, Image: image, Quantity: 1})
	}
	l.afterMutationLocked()
	l.mu.Unlock()

	l.log.Info("adding item", zap.String("name", name), zap.String("price", price.String()))
	l.notifier.Notify(fmt.Sprintf("%s added to cart!", name), notify.Success)
	return nil
}

// ChangeQuantity adds delta to the quantity of name. A line reaching zero or
// less is removed and quantities stop at model.MaxQuantity. Unknown names are
// ignored.
func (l *Ledger) ChangeQuantity(name string, delta int) {
	l.mu.Lock()
	i := l.indexLocked(name)
	if i < 0 {
		l.mu.Unlock()
		return
	}
	removed := l.applyDeltaLocked(i, delta)
	l.mu.Unlock()

	l.log.Info("updating quantity", zap.String("name", name), zap.Int("delta", delta), zap.Bool("removed", removed))
	if removed {
		l.notifier.Notify(fmt.Sprintf("%s removed from cart", name), notify.Info)
	}
}

// RemoveItem drops the line for name
func (l *Ledger) RemoveItem(name string) {
	l.mu.Lock()
	i := l.indexLocked(name)
	if i < 0 {
		l.mu.Unlock()
		return
	}
	l.applyDeltaLocked(i, -l.items[i].Quantity)
	l.mu.Unlock()

	l.log.Info("removing item", zap.String("name", name))
	l.notifier.Notify(fmt.Sprintf("%s removed from cart", name), notify.Info)
}

func (l *Ledger) applyDeltaLocked(i, delta int) (removed bool) {
	l.items[i].Quantity = addQuantity(l.items[i].Quantity, delta)
	if l.items[i].Quantity <= 0 {
		l.items = append(l.items[:i], l.items[i+1:]...)
		removed = true
	}
	l.afterMutationLocked()
	return removed
}

// addQuantity returns qty+delta capped at model.MaxQuantity. qty must be
// within [0, MaxQuantity].
func addQuantity(qty, delta int) int {
	if delta > model.MaxQuantity-qty {
		return model.MaxQuantity
	}
	return qty + delta
}

// Clear empties the cart and drops the coupon
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.items = nil
	l.coupon = nil
	l.afterMutationLocked()
	l.mu.Unlock()

	l.log.Info("clearing cart")
	l.notifier.Notify("Cart cleared", notify.Info)
}

// ApplyCoupon makes code the active coupon, replacing any other. It fails
// with ErrUnknownCoupon for codes missing from the catalog and with a
// NotEligibleError when the subtotal is below the coupon's minimum order.
func (l *Ledger) ApplyCoupon(code string) (model.CouponDefinition, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return model.CouponDefinition{}, cerrors.InvalidInputf(ErrMsgCouponCodeRequired)
	}

	coupon, ok := l.catalog.Lookup(normalized)
	if !ok {
		l.notifier.Notify("Invalid coupon code", notify.Error)
		return model.CouponDefinition{}, fmt.Errorf("%w: %s", cerrors.ErrUnknownCoupon, normalized)
	}

	l.mu.Lock()
	if l.subtotalLocked().LessThan(coupon.MinOrder) {
		l.mu.Unlock()
		err := &cerrors.NotEligibleError{Code: coupon.Code, MinOrder: coupon.MinOrder}
		l.notifier.Notify(fmt.Sprintf("Minimum order of ₹%s required for this coupon", coupon.MinOrder.StringFixed(0)), notify.Error)
		return model.CouponDefinition{}, err
	}
	l.coupon = &coupon
	l.mu.Unlock()

	l.log.Info("applying coupon", zap.String("code", coupon.Code))
	l.notifier.Notify(fmt.Sprintf("Coupon %s applied!", coupon.Code), notify.Success)
	return coupon, nil
}

// RemoveCoupon drops the active coupon, if any
func (l *Ledger) RemoveCoupon() {
	l.mu.Lock()
	had := l.coupon != nil
	l.coupon = nil
	l.mu.Unlock()

	if had {
		l.notifier.Notify("Coupon removed", notify.Info)
	}
}

// Checkout places the order: it returns a receipt of the current cart and
// empties it. An empty cart fails with ErrEmptyCart.
func (l *Ledger) Checkout() (*model.Receipt, error) {
	l.mu.Lock()
	if len(l.items) == 0 {
		l.mu.Unlock()
		l.notifier.Notify("Your cart is empty!", notify.Warning)
		return nil, cerrors.ErrEmptyCart
	}

	subtotal := l.subtotalLocked()
	discount := l.discountLocked(subtotal)
	receipt := &model.Receipt{
		OrderID:  uuid.NewString(),
		Items:    l.snapshotLocked(),
		Subtotal: subtotal,
		Discount: discount,
		Total:    finalTotal(subtotal, discount),
		PlacedAt: l.now(),
	}
	if l.coupon != nil {
		receipt.CouponCode = l.coupon.Code
	}

	l.items = nil
	l.coupon = nil
	l.afterMutationLocked()
	l.mu.Unlock()

	l.log.Info("checking out", zap.String("order_id", receipt.OrderID), zap.String("total", receipt.Total.String()))
	l.notifier.Notify("Order placed successfully!", notify.Success)
	return receipt, nil
}

// Subtotal returns the sum of price * quantity over all items
func (l *Ledger) Subtotal() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.subtotalLocked()
}

// Discount returns the active coupon's discount on the current subtotal
func (l *Ledger) Discount() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.discountLocked(l.subtotalLocked())
}

// FinalTotal returns subtotal minus discount, never below zero
func (l *Ledger) FinalTotal() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	subtotal := l.subtotalLocked()
	return finalTotal(subtotal, l.discountLocked(subtotal))
}

// Items returns a copy of the line items in insertion order
func (l *Ledger) Items() []model.LineItem {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// AppliedCoupon returns the active coupon
func (l *Ledger) AppliedCoupon() (model.CouponDefinition, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.coupon == nil {
		return model.CouponDefinition{}, false
	}
	return *l.coupon, true
}

// ItemCount returns the total number of units in the cart
func (l *Ledger) ItemCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.itemCountLocked()
}

// Status reports whether the cart holds anything
func (l *Ledger) Status() model.CartStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked()
}

// View returns a consistent render model of the cart
func (l *Ledger) View() model.CartView {
	l.mu.Lock()
	defer l.mu.Unlock()

	subtotal := l.subtotalLocked()
	discount := l.discountLocked(subtotal)
	view := model.CartView{
		Status:    l.statusLocked(),
		Items:     make([]model.CartLine, 0, len(l.items)),
		ItemCount: l.itemCountLocked(),
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     finalTotal(subtotal, discount),
	}
	for _, item := range l.items {
		view.Items = append(view.Items, model.CartLine{LineItem: item, LineTotal: item.LineTotal()})
	}
	if l.coupon != nil {
		view.Coupon = &model.AppliedCouponView{
			Code:        l.coupon.Code,
			Kind:        l.coupon.Kind,
			Value:       l.coupon.Value,
			Description: l.coupon.Description,
		}
	}
	return view
}

func (l *Ledger) subtotalLocked() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range l.items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal
}

func (l *Ledger) discountLocked(subtotal decimal.Decimal) decimal.Decimal {
	if l.coupon == nil {
		return decimal.Zero
	}
	return couponDiscount(*l.coupon, subtotal)
}

func (l *Ledger) itemCountLocked() int {
	n := 0
	for _, item := range l.items {
		n += item.Quantity
	}
	return n
}

func (l *Ledger) statusLocked() model.CartStatus {
	if len(l.items) == 0 {
		return model.CartEmpty
	}
	return model.CartActive
}

func (l *Ledger) snapshotLocked() []model.LineItem {
	out := make([]model.LineItem, len(l.items))
	copy(out, l.items)
	return out
}

// afterMutationLocked hands the new item list to the persister. The coupon
// is left alone: eligibility is only checked when it is applied.
func (l *Ledger) afterMutationLocked() {
	if l.persister != nil {
		l.persister.DebouncedSave(l.snapshotLocked())
	}
}

// couponDiscount computes the discount a coupon gives on subtotal. Flat
// discounts may exceed the subtotal; the total is clamped instead.
func couponDiscount(coupon model.CouponDefinition, subtotal decimal.Decimal) decimal.Decimal {
	switch coupon.Kind {
	case model.CouponFlat:
		if coupon.Value.IsNegative() {
			return decimal.Zero
		}
		return coupon.Value
	case model.CouponPercentage:
		// Round rounds half away from zero, which is half-up for
		// non-negative amounts.
		return subtotal.Mul(coupon.Value).Div(hundred).Round(discountPlaces)
	default:
		return decimal.Zero
	}
}

func finalTotal(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
