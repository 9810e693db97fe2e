package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront-service/internal/cart"
	"storefront-service/internal/validation"
)

func (h *Handler) GetCart(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	result, err := h.Carts.Get(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, result.View())
}

func (h *Handler) AddToCart(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	productID, ok := productParam(c, "product")
	if !ok {
		return
	}
	quantity := 1
	if q := c.Query("quantity"); q != "" {
		if quantity, err = strconv.Atoi(q); err != nil {
			writeError(c, validation.Errors{"quantity": {"The quantity must be an integer."}})
			return
		}
	}
	result, err := h.Carts.Add(c.Request.Context(), owner, productID, quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Product added to cart", result.View())
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	productID, ok := productParam(c, "product")
	if !ok {
		return
	}
	result, err := h.Carts.Remove(c.Request.Context(), owner, productID)
	if err != nil {
		writeError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Product removed from cart", result.View())
}

func (h *Handler) ClearCart(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.Carts.Clear(c.Request.Context(), owner); err != nil {
		writeError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Cart cleared", nil)
}

func (h *Handler) GetWishlist(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	items, err := h.Carts.Wishlist(c.Request.Context(), owner)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, cart.WishlistView(items))
}

func (h *Handler) AddToWishlist(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	productID, ok := productParam(c, "product")
	if !ok {
		return
	}
	items, err := h.Carts.AddToWishlist(c.Request.Context(), owner, productID)
	if err != nil {
		writeError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Product added to wishlist", cart.WishlistView(items))
}

func (h *Handler) RemoveFromWishlist(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	productID, ok := productParam(c, "product")
	if !ok {
		return
	}
	items, err := h.Carts.RemoveFromWishlist(c.Request.Context(), owner, productID)
	if err != nil {
		writeError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Product removed from wishlist", cart.WishlistView(items))
}

func (h *Handler) ClearWishlist(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.Carts.ClearWishlist(c.Request.Context(), owner); err != nil {
		writeError(c, err)
		return
	}
	respondMessage(c, http.StatusOK, "Wishlist cleared", nil)
}
