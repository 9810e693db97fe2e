package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront-service/internal/orders"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"
)

// Store persists payments.
type Store interface {
	CreatePayment(ctx context.Context, p *Payment) error
	GetByReference(ctx context.Context, reference string) (Payment, error)
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is what order materialization needs inside one transaction.
type Tx interface {
	// MarkSuccessful moves a pending payment to successful. It reports false when no pending
	// payment with that reference exists, which covers unknown references and redeliveries.
	MarkSuccessful(ctx context.Context, reference string) (Payment, bool, error)
	OrderCodeExists(ctx context.Context, code string) (bool, error)
	CreateOrder(ctx context.Context, o *orders.Order) error
	DeleteCartItem(ctx context.Context, id int64) error
	RefreshUserCartTotal(ctx context.Context, userID int64) error
	DeleteGuestCart(ctx context.Context, guestKey string) error
}

// Publisher hands committed orders to the notification side.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, event orders.CreatedEvent) error
}

// Outcome is the result of one webhook delivery.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed"
)

const (
	maxCodeAttempts = 10
	publishTimeout  = 15 * time.Second
)

type callback struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// CallbackProcessor turns a verified charge.success delivery into exactly one order.
type CallbackProcessor struct {
	store   Store
	events  Publisher
	newCode func() string
	pending sync.WaitGroup
}

func NewCallbackProcessor(store Store, events Publisher) *CallbackProcessor {
	return &CallbackProcessor{store: store, events: events, newCode: orders.NewTrackingCode}
}

// Process handles a delivery whose signature has already been checked. Errors are for logging;
// the gateway is always acknowledged.
func (p *CallbackProcessor) Process(ctx context.Context, body []byte) (Outcome, error) {
	var cb callback
	if err := json.Unmarshal(body, &cb); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to decode callback: %w", err)
	}
	if cb.Event != "" && cb.Event != EventChargeSuccess {
		slog.Info("ignoring payment event",
			slog.String(logkey.TraceID, ctxmanage.TraceIdFromContext(ctx)), slog.String("event", cb.Event))
		return OutcomeIgnored, nil
	}
	return p.Complete(ctx, cb.Data.Reference)
}

// Complete moves the pending payment with reference to successful and creates its order in the
// same transaction. The OrderCreated event is published in the background after commit.
func (p *CallbackProcessor) Complete(ctx context.Context, reference string) (Outcome, error) {
	traceID := ctxmanage.TraceIdFromContext(ctx)
	if reference == "" {
		return OutcomeIgnored, nil
	}

	var (
		order        orders.Order
		transitioned bool
	)
	err := p.store.WithTx(ctx, func(tx Tx) error {
		payment, ok, err := tx.MarkSuccessful(ctx, reference)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		if !ok {
			return nil
		}
		transitioned = true
		order, err = p.materialize(ctx, tx, payment)
		return err
	})
	if err != nil {
		return OutcomeFailed, err
	}
	if !transitioned {
		slog.Info("no pending payment for reference",
			slog.String(logkey.TraceID, traceID), slog.String(logkey.Reference, reference))
		return OutcomeDuplicate, nil
	}

	slog.Info("order created",
		slog.String(logkey.TraceID, traceID),
		slog.String(logkey.Reference, reference),
		slog.String(logkey.OrderCode, order.Code))

	p.publish(ctx, order)
	return OutcomeProcessed, nil
}

// publish sends the event without holding up the webhook reply. The request context is detached
// so the publish outlives the request, and publishTimeout bounds it.
func (p *CallbackProcessor) publish(ctx context.Context, order orders.Order) {
	traceID := ctxmanage.TraceIdFromContext(ctx)
	event := orders.NewCreatedEvent(order)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		defer cancel()
		if err := p.events.PublishOrderCreated(ctx, event); err != nil {
			slog.Error("failed to publish order created event",
				slog.String(logkey.TraceID, traceID),
				slog.String(logkey.OrderCode, event.Code),
				slog.String(logkey.ERROR, err.Error()))
		}
	}()
}

// Wait blocks until every background publish has returned.
func (p *CallbackProcessor) Wait() {
	p.pending.Wait()
}

func (p *CallbackProcessor) materialize(ctx context.Context, tx Tx, payment Payment) (orders.Order, error) {
	snap := payment.Meta

	code, err := p.uniqueCode(ctx, tx)
	if err != nil {
		return orders.Order{}, err
	}
	order := orders.Order{
		PaymentID:   payment.ID,
		Code:        code,
		Status:      orders.StatusPending,
		Shipping:    snap.Shipping,
		ShippingFee: decimal.Zero,
		Amount:      snap.Amount,
	}
	if snap.Authenticated {
		order.UserID = snap.UserID
	}
	for _, line := range snap.Lines {
		order.Items = append(order.Items, orders.Item{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			Price:       line.DiscountedPrice,
		})
	}
	if err := tx.CreateOrder(ctx, &order); err != nil {
		return orders.Order{}, err
	}

	for _, line := range snap.Lines {
		if err := tx.DeleteCartItem(ctx, line.CartItemID); err != nil {
			return orders.Order{}, fmt.Errorf("failed to delete cart item %d: %w", line.CartItemID, err)
		}
	}
	if snap.Authenticated {
		if err := tx.RefreshUserCartTotal(ctx, snap.UserID); err != nil {
			return orders.Order{}, fmt.Errorf("failed to refresh cart total: %w", err)
		}
	} else if err := tx.DeleteGuestCart(ctx, snap.GuestKey); err != nil {
		return orders.Order{}, fmt.Errorf("failed to delete guest cart: %w", err)
	}
	return order, nil
}

func (p *CallbackProcessor) uniqueCode(ctx context.Context, tx Tx) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := p.newCode()
		exists, err := tx.OrderCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check order code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free order code after %d attempts", maxCodeAttempts)
}
