package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"storefront-service/internal/auth"
	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/checkout"
	"storefront-service/internal/identity"
	"storefront-service/internal/metrics"
	"storefront-service/internal/orders"
	"storefront-service/internal/payments"
	"storefront-service/internal/users"
	"storefront-service/internal/validation"
	"storefront-service/middleware"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"
)

// Deps are the services the HTTP API is built on.
type Deps struct {
	Keys          *auth.Keys
	Resolver      *identity.Resolver
	Catalog       catalog.Store
	Users         *users.Service
	Carts         *cart.Service
	Checkout      *checkout.Service
	Callbacks     *payments.CallbackProcessor
	Orders        *orders.Service
	Metrics       *metrics.ServerMetrics
	Gatherer      prometheus.Gatherer
	GatewaySecret []byte

	// StripeWebhookSecret verifies Stripe's checkout session events.
	StripeWebhookSecret string
}

type Handler struct {
	Deps
}

func API(mode, endpointPrefix string, d Deps) (*gin.Engine, error) {
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if mode == gin.TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	if len(d.GatewaySecret) == 0 {
		return nil, errors.New("gateway secret is empty")
	}
	if d.StripeWebhookSecret == "" {
		return nil, errors.New("stripe webhook secret is empty")
	}
	m, err := middleware.NewMid(d.Resolver)
	if err != nil {
		return nil, err
	}
	h := &Handler{Deps: d}

	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	r.GET("/ping", healthCheck)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Gatherer)))
	}

	v1 := r.Group(endpointPrefix)
	{
		v1.Any("/payment/callback", h.PaymentCallback)
		v1.POST("/payment/stripe/callback", h.StripeCallback)

		v1.Use(m.Identity())
		v1.POST("/key/generate", h.GenerateKey)
		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)
		v1.POST("/logout", h.Logout)
		v1.POST("/refresh", m.RequireUser(), h.Refresh)
		v1.PUT("/profile/update", m.RequireUser(), h.UpdateProfile)
		v1.PUT("/password/update", m.RequireUser(), h.ChangePassword)

		v1.GET("/products", h.ListProducts)
		v1.GET("/products/show/:id", h.ShowProduct)
		v1.GET("/products/category/:category", h.ProductsByCategory)
		v1.GET("/products/subcategory/:subCategory", h.ProductsBySubCategory)
		v1.GET("/products/deals", h.Deals)
		v1.GET("/products/deals/:category", h.Deals)
		v1.GET("/products/top", h.TopSelling)
		v1.GET("/products/top/:category", h.TopSelling)
		v1.GET("/products/new", h.NewArrivals)
		v1.GET("/products/new/:category", h.NewArrivals)
		v1.GET("/products/filter", h.FilterProducts)
		v1.GET("/products/filter/:category", h.FilterProducts)
		v1.GET("/products/sort", h.SortProducts)
		v1.GET("/products/search/:search", h.SearchProducts)

		v1.GET("/categories", h.ListCategories)
		v1.GET("/categories/:category", h.ShowCategory)
		v1.GET("/subcategories", h.ListSubCategories)
		v1.GET("/subcategories/:subCategory", h.ShowSubCategory)

		v1.GET("/cart", h.GetCart)
		v1.POST("/cart/add/:product", h.AddToCart)
		v1.DELETE("/cart/remove/:product", h.RemoveFromCart)
		v1.POST("/cart/clear", h.ClearCart)

		v1.GET("/wishlist", h.GetWishlist)
		v1.POST("/wishlist/add/:product", h.AddToWishlist)
		v1.DELETE("/wishlist/remove/:product", h.RemoveFromWishlist)
		v1.POST("/wishlist/clear", h.ClearWishlist)

		v1.POST("/payment/initiate/:type", h.InitiatePayment)

		v1.GET("/orders/tracking/get", h.TrackOrder)
		v1.GET("/orders", m.RequireUser(), h.ListOrders)
		v1.GET("/orders/:id", m.RequireUser(), h.ShowOrder)
	}
	return r, nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"status": true, "data": data})
}

func respondMessage(c *gin.Context, status int, message string, data any) {
	body := gin.H{"status": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// writeError is the single place domain errors become HTTP responses.
func writeError(c *gin.Context, err error) {
	var vErrs validation.Errors
	switch {
	case errors.As(err, &vErrs):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"status":  false,
			"message": "The given data was invalid.",
			"errors":  vErrs,
		})
		return
	case errors.Is(err, identity.ErrInvalidIdentity):
		abort(c, http.StatusBadRequest, "User key is invalid")
	case errors.Is(err, cart.ErrInvalidQuantity):
		abort(c, http.StatusUnprocessableEntity, "Quantity must be at least 1")
	case errors.Is(err, checkout.ErrEmptyCart):
		abort(c, http.StatusBadRequest, "Cart is empty")
	case errors.Is(err, checkout.ErrInvalidChannel):
		abort(c, http.StatusBadRequest, "Invalid checkout type. Allowed methods are web or mobile.")
	case errors.Is(err, cart.ErrAlreadyInWishlist):
		abort(c, http.StatusBadRequest, "Product already added to wishlist")
	case errors.Is(err, catalog.ErrNotFound):
		abort(c, http.StatusNotFound, "Product not found")
	case errors.Is(err, catalog.ErrCategoryNotFound):
		abort(c, http.StatusNotFound, "Category not found")
	case errors.Is(err, catalog.ErrSubCategoryNotFound):
		abort(c, http.StatusNotFound, "Subcategory not found")
	case errors.Is(err, orders.ErrNotFound):
		abort(c, http.StatusNotFound, "Order not found")
	case errors.Is(err, payments.ErrGateway):
		abort(c, http.StatusBadGateway, "Could not generate reference, try again")
	case errors.Is(err, users.ErrEmailTaken):
		abort(c, http.StatusBadRequest, "The email has already been taken.")
	case errors.Is(err, users.ErrInvalidCredentials):
		abort(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, users.ErrWrongPassword):
		abort(c, http.StatusBadRequest, "Old password incorrect")
	case errors.Is(err, users.ErrNotFound):
		abort(c, http.StatusUnauthorized, "Unauthenticated.")
	default:
		slog.Error("request failed",
			slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)),
			slog.String(logkey.ERROR, err.Error()))
		abort(c, http.StatusInternalServerError, "Internal server error")
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": false, "message": message})
}

func currentIdentity(c *gin.Context) (identity.Identity, error) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		return identity.Identity{}, identity.ErrInvalidIdentity
	}
	return id, nil
}
