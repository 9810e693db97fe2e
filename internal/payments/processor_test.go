package payments_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/cart"
	"storefront-service/internal/catalog"
	"storefront-service/internal/identity"
	"storefront-service/internal/orders"
	"storefront-service/internal/payments"
	"storefront-service/internal/stores/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []orders.CreatedEvent
	err    error
}

func (r *recordingPublisher) PublishOrderCreated(ctx context.Context, event orders.CreatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

var shipping = orders.Shipping{
	FirstName: "Ada", LastName: "Obi", Email: "ada@example.com", Phone: "0800",
	Country: "NG", State: "Lagos", City: "Ikeja", Address: "1 Allen Ave",
}

// pendingPayment stores a pending payment whose snapshot covers the owner's current cart.
func pendingPayment(t *testing.T, store *memory.Store, owner identity.Identity, reference string) payments.Payment {
	t.Helper()
	c, err := cart.NewService(store.Carts()).Get(context.Background(), owner)
	require.NoError(t, err)

	snap := payments.Snapshot{
		Shipping:      shipping,
		UserID:        owner.UserID,
		GuestKey:      owner.GuestKey,
		Authenticated: owner.IsAuthenticated(),
		Reference:     reference,
		Amount:        c.DiscountedTotal(),
	}
	for _, item := range c.Items {
		snap.Lines = append(snap.Lines, payments.Line{
			CartItemID:      item.ID,
			ProductID:       item.ProductID,
			Name:            item.Product.Name,
			DiscountedPrice: item.Product.DiscountedPrice(),
			Quantity:        item.Quantity,
		})
	}
	p := payments.Payment{
		Reference: reference,
		UserID:    owner.UserID,
		GuestKey:  owner.GuestKey,
		Amount:    snap.Amount,
		Status:    payments.StatusPending,
		Meta:      snap,
	}
	require.NoError(t, store.Payments().CreatePayment(context.Background(), &p))
	return p
}

func seedCart(t *testing.T, store *memory.Store, owner identity.Identity) catalog.Product {
	t.Helper()
	p := store.AddProduct(catalog.Product{Name: "Blender", Price: decimal.RequireFromString("1000"), Discount: decimal.RequireFromString("20")})
	_, err := cart.NewService(store.Carts()).Add(context.Background(), owner, p.ID, 2)
	require.NoError(t, err)
	return p
}

func TestProcessCreatesOrderOnce(t *testing.T) {
	store := memory.New()
	user := identity.User(5)
	product := seedCart(t, store, user)
	pendingPayment(t, store, user, "SF_ref1")

	pub := &recordingPublisher{}
	proc := payments.NewCallbackProcessor(store.Payments(), pub)
	body := []byte(`{"event":"charge.success","data":{"reference":"SF_ref1"}}`)

	outcome, err := proc.Process(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeProcessed, outcome)

	outcome, err = proc.Process(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeDuplicate, outcome)

	proc.Wait()
	assert.Equal(t, 1, store.OrderCount())
	require.Len(t, pub.events, 1)

	p, ok := store.Payment("SF_ref1")
	require.True(t, ok)
	assert.Equal(t, payments.StatusSuccessful, p.Status)

	list, err := store.Orders().ListByUser(context.Background(), user.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	order := list[0]
	assert.Len(t, order.Code, 7)
	assert.Equal(t, orders.StatusPending, order.Status)
	assert.True(t, order.ShippingFee.IsZero())
	assert.True(t, decimal.RequireFromString("1600").Equal(order.Amount), order.Amount.String())
	require.Len(t, order.Items, 1)
	assert.Equal(t, product.ID, order.Items[0].ProductID)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("800").Equal(order.Items[0].Price))
	assert.Equal(t, shipping, order.Shipping)

	assert.Empty(t, store.CartItems(user))
	assert.Equal(t, order.Code, pub.events[0].Code)
}

func TestProcessUsesSnapshotNotLiveCart(t *testing.T) {
	store := memory.New()
	user := identity.User(5)
	seedCart(t, store, user)
	pendingPayment(t, store, user, "SF_ref2")

	extra := store.AddProduct(catalog.Product{Name: "Mixer", Price: decimal.RequireFromString("50")})
	_, err := cart.NewService(store.Carts()).Add(context.Background(), user, extra.ID, 1)
	require.NoError(t, err)

	proc := payments.NewCallbackProcessor(store.Payments(), &recordingPublisher{})
	_, err = proc.Process(context.Background(), []byte(`{"data":{"reference":"SF_ref2"}}`))
	require.NoError(t, err)

	list, err := store.Orders().ListByUser(context.Background(), user.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 1)
	assert.Equal(t, map[int64]int{extra.ID: 1}, store.CartItems(user))

	c, err := cart.NewService(store.Carts()).Get(context.Background(), user)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50").Equal(c.Total), c.Total.String())
}

func TestProcessGuestDeletesCart(t *testing.T) {
	store := memory.New()
	guest := identity.Guest("DFS4561700000000")
	seedCart(t, store, guest)
	pendingPayment(t, store, guest, "SF_guest")

	proc := payments.NewCallbackProcessor(store.Payments(), &recordingPublisher{})
	outcome, err := proc.Process(context.Background(), []byte(`{"event":"charge.success","data":{"reference":"SF_guest"}}`))
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeProcessed, outcome)
	assert.False(t, store.HasCart(guest))
	assert.Equal(t, 1, store.OrderCount())
}

func TestProcessIgnoresOtherEventsAndUnknownReferences(t *testing.T) {
	store := memory.New()
	user := identity.User(5)
	seedCart(t, store, user)
	pendingPayment(t, store, user, "SF_ref3")
	proc := payments.NewCallbackProcessor(store.Payments(), &recordingPublisher{})

	outcome, err := proc.Process(context.Background(), []byte(`{"event":"transfer.success","data":{"reference":"SF_ref3"}}`))
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeIgnored, outcome)

	outcome, err = proc.Process(context.Background(), []byte(`{"event":"charge.success","data":{"reference":"nope"}}`))
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeDuplicate, outcome)

	_, err = proc.Process(context.Background(), []byte(`not json`))
	assert.Error(t, err)

	p, _ := store.Payment("SF_ref3")
	assert.Equal(t, payments.StatusPending, p.Status)
	assert.Zero(t, store.OrderCount())
}

func TestProcessPublishFailureKeepsOrder(t *testing.T) {
	store := memory.New()
	user := identity.User(5)
	seedCart(t, store, user)
	pendingPayment(t, store, user, "SF_ref4")

	pub := &recordingPublisher{err: errors.New("broker down")}
	proc := payments.NewCallbackProcessor(store.Payments(), pub)
	outcome, err := proc.Process(context.Background(), []byte(`{"event":"charge.success","data":{"reference":"SF_ref4"}}`))
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeProcessed, outcome)
	proc.Wait()
	assert.Len(t, pub.events, 1)
	assert.Equal(t, 1, store.OrderCount())
}

// stalledPublisher blocks until released, like a producer facing unreachable brokers.
type stalledPublisher struct {
	release chan struct{}
	ctxErr  chan error
}

func (s *stalledPublisher) PublishOrderCreated(ctx context.Context, event orders.CreatedEvent) error {
	<-s.release
	s.ctxErr <- ctx.Err()
	return nil
}

func TestProcessDoesNotWaitForPublisher(t *testing.T) {
	store := memory.New()
	user := identity.User(5)
	seedCart(t, store, user)
	pendingPayment(t, store, user, "SF_slow")

	pub := &stalledPublisher{release: make(chan struct{}), ctxErr: make(chan error, 1)}
	proc := payments.NewCallbackProcessor(store.Payments(), pub)
	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		outcome payments.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := proc.Process(ctx, []byte(`{"event":"charge.success","data":{"reference":"SF_slow"}}`))
		done <- result{outcome, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, payments.OutcomeProcessed, r.outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("Process blocked on the publisher")
	}
	assert.Equal(t, 1, store.OrderCount())

	// The request ending must not cancel the publish.
	cancel()
	close(pub.release)
	proc.Wait()
	assert.NoError(t, <-pub.ctxErr)
}

func TestProcessConcurrentDeliveries(t *testing.T) {
	store := memory.New()
	user := identity.User(5)
	seedCart(t, store, user)
	pendingPayment(t, store, user, "SF_ref5")
	proc := payments.NewCallbackProcessor(store.Payments(), &recordingPublisher{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = proc.Process(context.Background(), []byte(`{"event":"charge.success","data":{"reference":"SF_ref5"}}`))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.OrderCount())
}
