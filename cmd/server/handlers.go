package main

import (
	"errors"
	"net/http"

	"quickbasket/internal/model"
	"quickbasket/internal/notify"
	"quickbasket/internal/persistence"
	"quickbasket/internal/repository"
	"quickbasket/internal/service"
	cerrors "quickbasket/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// app bundles the collaborators the handlers need
type app struct {
	ledger  *service.Ledger
	storage *persistence.Adapter
	recs    *service.RecommendationService
	catalog repository.CouponCatalog
	recent  *persistence.RecentlyViewed
	notices *notify.Recorder
	log     *zap.Logger
}

func setupRouter(a *app, mode string) *gin.Engine {
	if mode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/cart", getCartHandler(a))
		api.DELETE("/cart", clearCartHandler(a))
		api.POST("/cart/items", addItemHandler(a))
		api.PATCH("/cart/items/:name", changeQuantityHandler(a))
		api.DELETE("/cart/items/:name", removeItemHandler(a))
		api.POST("/cart/coupon", applyCouponHandler(a))
		api.DELETE("/cart/coupon", removeCouponHandler(a))
		api.POST("/cart/checkout", checkoutHandler(a))
		api.GET("/cart/recommendations", recommendationsHandler(a))
		api.GET("/coupons", listCouponsHandler(a))
		api.GET("/storage", storageInfoHandler(a))
		api.POST("/products/:name/view", viewProductHandler(a))
		api.GET("/recently-viewed", recentlyViewedHandler(a))
	}

	return router
}

// cartResponse renders the cart with the notices raised while handling
// the request.
func (a *app) cartResponse(c *gin.Context, status int) {
	c.JSON(status, gin.H{
		"cart":    a.ledger.View(),
		"notices": a.drainNotices(),
	})
}

func (a *app) drainNotices() []notify.Notice {
	notices := a.notices.Drain()
	if notices == nil {
		return []notify.Notice{}
	}
	return notices
}

// abortWithError maps a domain error to a status code and a message
func (a *app) abortWithError(c *gin.Context, err error) {
	var notEligible *cerrors.NotEligibleError
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.As(err, &notEligible):
		status, msg = http.StatusUnprocessableEntity, notEligible.Error()
	case errors.Is(err, cerrors.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, cerrors.ErrUnknownCoupon):
		status, msg = http.StatusNotFound, cerrors.ErrUnknownCoupon.Error()
	case errors.Is(err, cerrors.ErrEmptyCart):
		status, msg = http.StatusConflict, cerrors.ErrEmptyCart.Error()
	default:
		a.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{"error": msg, "notices": a.drainNotices()})
}

// getCartHandler handles GET /api/cart
func getCartHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.cartResponse(c, http.StatusOK)
	}
}

// clearCartHandler handles DELETE /api/cart
func clearCartHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.ledger.Clear()
		a.cartResponse(c, http.StatusOK)
	}
}

// addItemHandler handles POST /api/cart/items
func addItemHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := a.ledger.AddItem(req.Name, req.Price, req.Image); err != nil {
			a.abortWithError(c, err)
			return
		}

		a.cartResponse(c, http.StatusOK)
	}
}

// changeQuantityHandler handles PATCH /api/cart/items/:name
func changeQuantityHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ChangeQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		a.ledger.ChangeQuantity(c.Param("name"), req.Delta)
		a.cartResponse(c, http.StatusOK)
	}
}

// removeItemHandler handles DELETE /api/cart/items/:name
func removeItemHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.ledger.RemoveItem(c.Param("name"))
		a.cartResponse(c, http.StatusOK)
	}
}

// applyCouponHandler handles POST /api/cart/coupon
func applyCouponHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.ApplyCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "please enter a coupon code"})
			return
		}

		if _, err := a.ledger.ApplyCoupon(req.Code); err != nil {
			a.abortWithError(c, err)
			return
		}

		a.cartResponse(c, http.StatusOK)
	}
}

// removeCouponHandler handles DELETE /api/cart/coupon
func removeCouponHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.ledger.RemoveCoupon()
		a.cartResponse(c, http.StatusOK)
	}
}

// checkoutHandler handles POST /api/cart/checkout
func checkoutHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "please select a payment method"})
			return
		}

		receipt, err := a.ledger.Checkout()
		if err != nil {
			a.abortWithError(c, err)
			return
		}
		receipt.PaymentMethod = req.PaymentMethod

		c.JSON(http.StatusOK, gin.H{
			"receipt": receipt,
			"notices": a.drainNotices(),
		})
	}
}

// recommendationsHandler handles GET /api/cart/recommendations
func recommendationsHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := a.recs.Recommend(c.Request.Context(), a.ledger.Items())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "recommendations unavailable"})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// listCouponsHandler handles GET /api/coupons
func listCouponsHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"coupons": a.catalog.List()})
	}
}

// storageInfoHandler handles GET /api/storage
func storageInfoHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, a.storage.Info(c.Request.Context()))
	}
}

// viewProductHandler handles POST /api/products/:name/view
func viewProductHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		names, err := a.recent.Push(c.Request.Context(), c.Param("name"))
		if err != nil && errors.Is(err, cerrors.ErrInvalidInput) {
			a.abortWithError(c, err)
			return
		}
		// Persistence failures leave the list session-less but do not fail the view.
		c.JSON(http.StatusOK, gin.H{"recently_viewed": names})
	}
}

// recentlyViewedHandler handles GET /api/recently-viewed
func recentlyViewedHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"recently_viewed": a.recent.List(c.Request.Context())})
	}
}
