package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront-service/internal/orders"
)

func (h *Handler) ListOrders(c *gin.Context) {
	user, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	list, err := h.Orders.List(c.Request.Context(), user)
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]orders.View, 0, len(list))
	for _, o := range list {
		views = append(views, o.View())
	}
	respond(c, http.StatusOK, views)
}

func (h *Handler) ShowOrder(c *gin.Context) {
	user, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, orders.ErrNotFound)
		return
	}
	o, err := h.Orders.Get(c.Request.Context(), user, id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, o.View())
}

// TrackOrder is public: the tracking code and the order email together identify the order.
func (h *Handler) TrackOrder(c *gin.Context) {
	o, err := h.Orders.Track(c.Request.Context(), c.Query("tracking_code"), c.Query("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	respond(c, http.StatusOK, o.View())
}
