package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-service/internal/orders"
	"storefront-service/internal/payments"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"
)

const maxCallbackBytes = int64(65536)

func (h *Handler) InitiatePayment(c *gin.Context) {
	owner, err := currentIdentity(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var shipping orders.Shipping
	if err := c.ShouldBindJSON(&shipping); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	channel := payments.Channel(c.Param("type"))
	res, err := h.Checkout.Initiate(c.Request.Context(), owner, channel, shipping)
	if err != nil {
		writeError(c, err)
		return
	}

	if channel == payments.ChannelMobile {
		respondMessage(c, http.StatusOK, "Initiation Successful", gin.H{"reference": res.Reference})
		return
	}
	respond(c, http.StatusOK, gin.H{
		"reference":    res.Reference,
		"email":        res.Email,
		"subTotal":     res.SubTotal,
		"charge":       res.Charge,
		"amount":       res.Amount,
		"redirect_url": res.RedirectURL,
	})
}

// PaymentCallback receives gateway webhooks. Only the method and signature checks are visible
// to the caller; every other outcome is acknowledged with 200 and logged.
func (h *Handler) PaymentCallback(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	if c.Request.Method != http.MethodPost {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	signature := c.GetHeader(payments.SignatureHeader)
	if signature == "" {
		slog.Error("payment callback without signature", slog.String(logkey.TraceID, traceId))
		h.countWebhook("rejected")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	body, ok := h.readCallback(c, traceId)
	if !ok {
		return
	}
	if !payments.VerifySignature(body, h.GatewaySecret, signature) {
		slog.Error("payment callback signature mismatch", slog.String(logkey.TraceID, traceId))
		h.countWebhook("rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	outcome, err := h.Callbacks.Process(c.Request.Context(), body)
	if err != nil {
		slog.Error("payment callback failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
	}
	h.countWebhook(string(outcome))
	c.Status(http.StatusOK)
}

// StripeCallback receives Stripe's checkout session events for web payments. Like PaymentCallback it
// only answers non-200 for a missing or invalid signature.
func (h *Handler) StripeCallback(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	signature := c.GetHeader(payments.StripeSignatureHeader)
	if signature == "" {
		slog.Error("stripe callback without signature", slog.String(logkey.TraceID, traceId))
		h.countWebhook("rejected")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	body, ok := h.readCallback(c, traceId)
	if !ok {
		return
	}

	event, err := payments.ParseStripeEvent(body, signature, h.StripeWebhookSecret)
	if err != nil {
		slog.Error("stripe callback rejected", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		if errors.Is(err, payments.ErrStripeSignature) {
			h.countWebhook("rejected")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		h.countWebhook(string(payments.OutcomeFailed))
		c.Status(http.StatusOK)
		return
	}
	if !event.Paid {
		slog.Info("ignoring stripe event", slog.String(logkey.TraceID, traceId),
			slog.String("event", event.Type), slog.String("event_id", event.ID))
		h.countWebhook(string(payments.OutcomeIgnored))
		c.Status(http.StatusOK)
		return
	}

	outcome, err := h.Callbacks.Complete(c.Request.Context(), event.Reference)
	if err != nil {
		slog.Error("stripe callback failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
	}
	h.countWebhook(string(outcome))
	c.Status(http.StatusOK)
}

func (h *Handler) readCallback(c *gin.Context, traceId string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBytes))
	if err != nil {
		slog.Error("failed to read payment callback", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.countWebhook("rejected")
		c.AbortWithStatus(http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func (h *Handler) countWebhook(outcome string) {
	if h.Metrics != nil {
		h.Metrics.Webhook(outcome)
	}
}
