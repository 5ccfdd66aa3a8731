package service

import (
	"math"
	"sync"
	"testing"

	"quickbasket/internal/model"
	"quickbasket/internal/notify"
	"quickbasket/internal/repository"
	cerrors "quickbasket/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPersister keeps every snapshot handed to it
type recordingPersister struct {
	mu    sync.Mutex
	saves [][]model.LineItem
}

func (p *recordingPersister) DebouncedSave(items []model.LineItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves = append(p.saves, items)
}

func (p *recordingPersister) last() []model.LineItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saves) == 0 {
		return nil
	}
	return p.saves[len(p.saves)-1]
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saves)
}

func newTestLedger() (*Ledger, *recordingPersister, *notify.Recorder) {
	persister := &recordingPersister{}
	notices := notify.NewRecorder(nil)
	catalog := repository.NewCouponCatalog(repository.DefaultCoupons())
	return NewLedger(catalog, persister, notices, nil), persister, notices
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func addN(t *testing.T, l *Ledger, name, price string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, l.AddItem(name, d(price), name+".jpg"))
	}
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func TestLedger_AddItem(t *testing.T) {
	l, persister, notices := newTestLedger()

	require.NoError(t, l.AddItem("Fresh Apples", d("120"), "apples.jpg"))
	require.NoError(t, l.AddItem("Fresh Apples", d("120"), "apples.jpg"))
	require.NoError(t, l.AddItem("Basmati Rice", d("249.50"), "rice.jpg"))

	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Fresh Apples", items[0].Name)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Basmati Rice", items[1].Name)
	assert.Equal(t, 1, items[1].Quantity)

	assert.Equal(t, 3, l.ItemCount())
	assert.Equal(t, model.CartActive, l.Status())
	assertAmount(t, "489.50", l.Subtotal())

	assert.Equal(t, 3, persister.count(), "each mutation schedules a save")
	assert.Equal(t, items, persister.last())

	got := notices.Drain()
	require.Len(t, got, 3)
	assert.Equal(t, notify.Notice{Message: "Fresh Apples added to cart!", Severity: notify.Success}, got[0])
}

func TestLedger_AddItemKeepsFirstPrice(t *testing.T) {
	l, _, _ := newTestLedger()

	require.NoError(t, l.AddItem("Milk", d("60"), "milk.jpg"))
	require.NoError(t, l.AddItem("Milk", d("65"), "other.jpg"))

	items := l.Items()
	require.Len(t, items, 1)
	assertAmount(t, "60", items[0].Price)
	assert.Equal(t, "milk.jpg", items[0].Image)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestLedger_AddItemRejectsInvalidInput(t *testing.T) {
	l, persister, _ := newTestLedger()

	tests := []struct {
		name  string
		item  string
		price decimal.Decimal
	}{
		{"blank name", "  ", d("10")},
		{"zero price", "Milk", decimal.Zero},
		{"negative price", "Milk", d("-1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.AddItem(tt.item, tt.price, "")
			assert.ErrorIs(t, err, cerrors.ErrInvalidInput)
		})
	}

	assert.Empty(t, l.Items())
	assert.Equal(t, 0, persister.count())
}

func TestLedger_ChangeQuantity(t *testing.T) {
	l, _, notices := newTestLedger()
	addN(t, l, "Eggs", "90", 1)
	notices.Drain()

	l.ChangeQuantity("Eggs", 4)
	assert.Equal(t, 5, l.Items()[0].Quantity)

	l.ChangeQuantity("Eggs", -2)
	assert.Equal(t, 3, l.Items()[0].Quantity)
	assert.Empty(t, notices.Drain())

	l.ChangeQuantity("Eggs", -10)
	assert.Empty(t, l.Items(), "a line reaching zero is removed")
	assert.Equal(t, model.CartEmpty, l.Status())
	assert.Equal(t, []notify.Notice{{Message: "Eggs removed from cart", Severity: notify.Info}}, notices.Drain())
}

func TestLedger_ChangeQuantityUnknownName(t *testing.T) {
	l, persister, _ := newTestLedger()
	addN(t, l, "Eggs", "90", 1)
	before := persister.count()

	l.ChangeQuantity("Bread", 1)
	l.RemoveItem("Bread")

	assert.Len(t, l.Items(), 1)
	assert.Equal(t, before, persister.count(), "unknown names change nothing")
}

func TestLedger_RemoveItem(t *testing.T) {
	l, persister, _ := newTestLedger()
	addN(t, l, "Eggs", "90", 3)
	addN(t, l, "Bread", "45", 1)

	l.RemoveItem("Eggs")

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Bread", items[0].Name)
	assert.Equal(t, items, persister.last())
}

func TestLedger_Clear(t *testing.T) {
	l, persister, _ := newTestLedger()
	addN(t, l, "Eggs", "90", 5)
	_, err := l.ApplyCoupon("festiveday")
	require.NoError(t, err)

	l.Clear()

	assert.Empty(t, l.Items())
	_, ok := l.AppliedCoupon()
	assert.False(t, ok)
	assertAmount(t, "0", l.FinalTotal())
	assert.Empty(t, persister.last())
}

func TestLedger_FlatCoupon(t *testing.T) {
	l, _, notices := newTestLedger()
	addN(t, l, "Ghee", "250", 1)
	notices.Drain()

	_, err := l.ApplyCoupon("FESTIVEDAY")
	var notEligible *cerrors.NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	assert.ErrorIs(t, err, cerrors.ErrNotEligible)
	assertAmount(t, "299", notEligible.MinOrder)
	assert.Equal(t, []notify.Notice{{Message: "Minimum order of ₹299 required for this coupon", Severity: notify.Error}}, notices.Drain())

	_, ok := l.AppliedCoupon()
	assert.False(t, ok)

	l.RemoveItem("Ghee")
	addN(t, l, "Ghee", "300", 1)

	coupon, err := l.ApplyCoupon("FESTIVEDAY")
	require.NoError(t, err)
	assert.Equal(t, "FESTIVEDAY", coupon.Code)
	assertAmount(t, "100", l.Discount())
	assertAmount(t, "200", l.FinalTotal())
}

func TestLedger_PercentageCoupon(t *testing.T) {
	l, _, _ := newTestLedger()
	addN(t, l, "Olive Oil", "600", 1)

	_, err := l.ApplyCoupon("MEGA40")
	require.NoError(t, err)

	assertAmount(t, "240", l.Discount())
	assertAmount(t, "360", l.FinalTotal())
}

func TestLedger_PercentageDiscountRoundsToWholeUnits(t *testing.T) {
	l, _, _ := newTestLedger()
	addN(t, l, "Tea", "201.50", 1)

	_, err := l.ApplyCoupon("SAVE10")
	require.NoError(t, err)

	// 10% of 201.50 is 20.15
	assertAmount(t, "20", l.Discount())
	assertAmount(t, "181.50", l.FinalTotal())

	l.ChangeQuantity("Tea", 1)
	// 10% of 403 is 40.30
	assertAmount(t, "40", l.Discount())

	l.RemoveItem("Tea")
	addN(t, l, "Spice Box", "205", 1)
	_, err = l.ApplyCoupon("SAVE10")
	require.NoError(t, err)
	// 20.5 rounds up
	assertAmount(t, "21", l.Discount())
}

func TestLedger_TotalNeverNegative(t *testing.T) {
	l, _, _ := newTestLedger()
	addN(t, l, "Candy", "10", 1)

	_, err := l.ApplyCoupon("WELCOME50")
	require.NoError(t, err)

	assertAmount(t, "50", l.Discount())
	assertAmount(t, "0", l.FinalTotal())
}

func TestLedger_ApplyCouponNormalizesCode(t *testing.T) {
	l, _, _ := newTestLedger()
	addN(t, l, "Olive Oil", "600", 1)

	coupon, err := l.ApplyCoupon("  mega40 ")
	require.NoError(t, err)
	assert.Equal(t, "MEGA40", coupon.Code)
}

func TestLedger_UnknownCoupon(t *testing.T) {
	l, _, notices := newTestLedger()
	addN(t, l, "Olive Oil", "600", 1)
	_, err := l.ApplyCoupon("MEGA40")
	require.NoError(t, err)
	notices.Drain()

	_, err = l.ApplyCoupon("FREEFOOD")
	assert.ErrorIs(t, err, cerrors.ErrUnknownCoupon)
	assert.Equal(t, []notify.Notice{{Message: "Invalid coupon code", Severity: notify.Error}}, notices.Drain())

	coupon, ok := l.AppliedCoupon()
	require.True(t, ok, "a failed apply keeps the active coupon")
	assert.Equal(t, "MEGA40", coupon.Code)
}

func TestLedger_BlankCoupon(t *testing.T) {
	l, _, _ := newTestLedger()

	_, err := l.ApplyCoupon("   ")
	assert.ErrorIs(t, err, cerrors.ErrInvalidInput)
}

func TestLedger_CouponReplacesPrevious(t *testing.T) {
	l, _, _ := newTestLedger()
	addN(t, l, "Olive Oil", "600", 1)

	_, err := l.ApplyCoupon("FESTIVEDAY")
	require.NoError(t, err)
	_, err = l.ApplyCoupon("MEGA40")
	require.NoError(t, err)

	coupon, ok := l.AppliedCoupon()
	require.True(t, ok)
	assert.Equal(t, "MEGA40", coupon.Code)
	assertAmount(t, "240", l.Discount())

	l.RemoveCoupon()
	_, ok = l.AppliedCoupon()
	assert.False(t, ok)
	assertAmount(t, "0", l.Discount())
}

func TestLedger_CouponSurvivesDropBelowMinimum(t *testing.T) {
	l, _, notices := newTestLedger()
	addN(t, l, "Ghee", "150", 2)
	_, err := l.ApplyCoupon("FESTIVEDAY")
	require.NoError(t, err)
	notices.Drain()

	l.ChangeQuantity("Ghee", -1)

	coupon, ok := l.AppliedCoupon()
	require.True(t, ok, "the minimum order is only checked on apply")
	assert.Equal(t, "FESTIVEDAY", coupon.Code)
	assertAmount(t, "150", l.Subtotal())
	assertAmount(t, "100", l.Discount())
	assertAmount(t, "50", l.FinalTotal())
	assert.Empty(t, notices.Drain())

	l.RemoveItem("Ghee")

	_, ok = l.AppliedCoupon()
	assert.True(t, ok, "emptying the cart line by line keeps the coupon")
	assertAmount(t, "100", l.Discount(), "flat discounts may exceed the subtotal")
	assertAmount(t, "0", l.FinalTotal())
}

func TestLedger_QuantityIsCapped(t *testing.T) {
	l, _, _ := newTestLedger()
	addN(t, l, "Rice", "80", 1)

	l.ChangeQuantity("Rice", math.MaxInt)

	items := l.Items()
	require.Len(t, items, 1, "an oversized delta must not wrap around and drop the line")
	assert.Equal(t, model.MaxQuantity, items[0].Quantity)

	require.NoError(t, l.AddItem("Rice", d("80"), ""))
	assert.Equal(t, model.MaxQuantity, l.Items()[0].Quantity)

	l.ChangeQuantity("Rice", -1)
	assert.Equal(t, model.MaxQuantity-1, l.Items()[0].Quantity)

	l.ChangeQuantity("Rice", math.MinInt)
	assert.Empty(t, l.Items())
}

func TestLedger_HydrateCapsQuantity(t *testing.T) {
	l, _, _ := newTestLedger()

	l.Hydrate([]model.LineItem{
		{Name: "Rice", Price: d("80"), Quantity: model.MaxQuantity},
		{Name: "Rice", Price: d("80"), Quantity: 5},
	})

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, model.MaxQuantity, items[0].Quantity)
}

func TestLedger_Checkout(t *testing.T) {
	l, persister, notices := newTestLedger()
	addN(t, l, "Olive Oil", "600", 1)
	addN(t, l, "Ghee", "150", 2)
	_, err := l.ApplyCoupon("MEGA40")
	require.NoError(t, err)
	notices.Drain()

	receipt, err := l.Checkout()
	require.NoError(t, err)

	assert.NotEmpty(t, receipt.OrderID)
	assert.Equal(t, "MEGA40", receipt.CouponCode)
	require.Len(t, receipt.Items, 2)
	assertAmount(t, "900", receipt.Subtotal)
	assertAmount(t, "360", receipt.Discount)
	assertAmount(t, "540", receipt.Total)
	assert.False(t, receipt.PlacedAt.IsZero())

	assert.Empty(t, l.Items())
	_, ok := l.AppliedCoupon()
	assert.False(t, ok)
	assert.Empty(t, persister.last(), "the emptied cart is persisted")
	assert.Equal(t, []notify.Notice{{Message: "Order placed successfully!", Severity: notify.Success}}, notices.Drain())
}

func TestLedger_CheckoutEmptyCart(t *testing.T) {
	l, _, notices := newTestLedger()

	receipt, err := l.Checkout()
	assert.Nil(t, receipt)
	assert.ErrorIs(t, err, cerrors.ErrEmptyCart)
	assert.Equal(t, []notify.Notice{{Message: "Your cart is empty!", Severity: notify.Warning}}, notices.Drain())
}

func TestLedger_Hydrate(t *testing.T) {
	l, persister, _ := newTestLedger()

	l.Hydrate([]model.LineItem{
		{Name: "Milk", Price: d("60"), Image: "milk.jpg", Quantity: 2},
		{Name: "Bread", Price: d("45"), Image: "bread.jpg", Quantity: 1},
		{Name: "Milk", Price: d("60"), Image: "milk.jpg", Quantity: 3},
		{Name: "Broken", Price: d("10"), Image: "b.jpg", Quantity: 0},
	})

	items := l.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Milk", items[0].Name)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "Bread", items[1].Name)
	assert.Equal(t, 0, persister.count(), "hydrating does not write back")
}

func TestLedger_View(t *testing.T) {
	l, _, _ := newTestLedger()
	addN(t, l, "Olive Oil", "600", 1)
	addN(t, l, "Ghee", "150", 2)
	_, err := l.ApplyCoupon("FESTIVEDAY")
	require.NoError(t, err)

	view := l.View()
	assert.Equal(t, model.CartActive, view.Status)
	assert.Equal(t, 3, view.ItemCount)
	require.Len(t, view.Items, 2)
	assertAmount(t, "300", view.Items[1].LineTotal)
	require.NotNil(t, view.Coupon)
	assert.Equal(t, "FESTIVEDAY", view.Coupon.Code)
	assertAmount(t, "900", view.Subtotal)
	assertAmount(t, "100", view.Discount)
	assertAmount(t, "800", view.Total)

	empty, _, _ := newTestLedger()
	v := empty.View()
	assert.Equal(t, model.CartEmpty, v.Status)
	assert.NotNil(t, v.Items)
	assert.Nil(t, v.Coupon)
}

func TestLedger_ConcurrentAdds(t *testing.T) {
	l, _, _ := newTestLedger()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.AddItem("Milk", d("60"), "milk.jpg")
		}()
	}
	wg.Wait()

	items := l.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 50, items[0].Quantity)
	assertAmount(t, "3000", l.Subtotal())
}
