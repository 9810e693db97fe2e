package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	"storefront-service/internal/orders"
	"storefront-service/pkg/logkey"
)

var orderTemplate = template.Must(template.New("order").Parse(`<html>
<body>
<p>{{.Heading}}</p>
<p>Tracking code: <strong>{{.Event.Code}}</strong></p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Product</th><th>Quantity</th><th>Price</th></tr>
{{range .Event.Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Price.StringFixed 2}}</td></tr>
{{end}}<tr><td colspan="2">Shipping</td><td>{{.Event.ShippingFee.StringFixed 2}}</td></tr>
<tr><td colspan="2"><strong>Total</strong></td><td><strong>{{.Total}}</strong></td></tr>
</table>
</body>
</html>`))

type templateData struct {
	Heading string
	Event   orders.CreatedEvent
	Total   string
}

// Dispatcher sends the buyer confirmation and the seller notice for a new order.
type Dispatcher struct {
	mailer     Mailer
	adminEmail string
}

func NewDispatcher(mailer Mailer, adminEmail string) *Dispatcher {
	return &Dispatcher{mailer: mailer, adminEmail: adminEmail}
}

// OrderCreated sends both emails. A failed buyer email does not stop the seller email.
func (d *Dispatcher) OrderCreated(ctx context.Context, event orders.CreatedEvent) error {
	var errs []error

	name := event.FirstName + " " + event.LastName
	if err := d.send(ctx, event.Email, fmt.Sprintf("Order %s confirmed", event.Code),
		fmt.Sprintf("Hi %s, thank you for your order. We are processing it now.", name), event); err != nil {
		errs = append(errs, err)
	}
	if d.adminEmail != "" {
		if err := d.send(ctx, d.adminEmail, fmt.Sprintf("Order %s placed", event.Code),
			fmt.Sprintf("A new order was placed by %s (%s).", name, event.Email), event); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		slog.Error("order notification failed",
			slog.String(logkey.OrderCode, event.Code), slog.String(logkey.ERROR, err.Error()))
	}
	return err
}

func (d *Dispatcher) send(ctx context.Context, to, subject, heading string, event orders.CreatedEvent) error {
	var buf bytes.Buffer
	data := templateData{Heading: heading, Event: event, Total: event.Total().StringFixed(2)}
	if err := orderTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}
	return d.mailer.Send(ctx, to, subject, buf.String())
}

// Direct publishes events by dispatching them on a goroutine. It stands in for Kafka when no
// broker is configured.
type Direct struct {
	dispatcher *Dispatcher
}

func NewDirect(dispatcher *Dispatcher) *Direct {
	return &Direct{dispatcher: dispatcher}
}

func (d *Direct) PublishOrderCreated(ctx context.Context, event orders.CreatedEvent) error {
	go func() {
		_ = d.dispatcher.OrderCreated(context.WithoutCancel(ctx), event)
	}()
	return nil
}
