package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/orders"
)

type sentMail struct {
	to, subject, html string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[to]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMail{to, subject, html})
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var event = orders.CreatedEvent{
	OrderID:     1,
	Code:        "7654321",
	Email:       "ada@example.com",
	FirstName:   "Ada",
	LastName:    "Obi",
	Amount:      decimal.RequireFromString("1600"),
	ShippingFee: decimal.Zero,
	Items: []orders.EventItem{
		{ProductID: 4, Name: "Blender <Pro>", Quantity: 2, Price: decimal.RequireFromString("800")},
	},
}

func TestOrderCreatedSendsBuyerAndSeller(t *testing.T) {
	m := &fakeMailer{}
	d := NewDispatcher(m, "admin@shop.test")

	require.NoError(t, d.OrderCreated(context.Background(), event))
	require.Len(t, m.sent, 2)

	assert.Equal(t, "ada@example.com", m.sent[0].to)
	assert.Equal(t, "Order 7654321 confirmed", m.sent[0].subject)
	assert.Contains(t, m.sent[0].html, "Blender &lt;Pro&gt;")
	assert.Contains(t, m.sent[0].html, "800.00")
	assert.Contains(t, m.sent[0].html, "1600.00")

	assert.Equal(t, "admin@shop.test", m.sent[1].to)
	assert.Equal(t, "Order 7654321 placed", m.sent[1].subject)
}

func TestOrderCreatedContinuesAfterFailure(t *testing.T) {
	m := &fakeMailer{fail: map[string]error{"ada@example.com": errors.New("mailbox full")}}
	d := NewDispatcher(m, "admin@shop.test")

	err := d.OrderCreated(context.Background(), event)
	assert.Error(t, err)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "admin@shop.test", m.sent[0].to)
}

func TestDirectDispatchesAsync(t *testing.T) {
	m := &fakeMailer{}
	direct := NewDirect(NewDispatcher(m, ""))

	require.NoError(t, direct.PublishOrderCreated(context.Background(), event))
	assert.Eventually(t, func() bool { return m.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	m := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Port: "587", From: "shop@shop.test"})
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Nil(t, a)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "ada@example.com", "Hi", "<p>x</p>"))
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, []string{"ada@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: shop@shop.test\r\nTo: ada@example.com\r\nSubject: Hi\r\n"))
	assert.Contains(t, gotMsg, "Content-Type: text/html")
}
