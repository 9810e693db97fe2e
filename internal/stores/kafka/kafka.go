package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"storefront-service/internal/orders"
	"storefront-service/pkg/logkey"
)

// deliveryTimeout bounds how long a record may wait for the brokers before ProduceMessage fails.
const deliveryTimeout = 10 * time.Second

// Conf wraps a franz-go client used either to produce or to consume.
type Conf struct {
	client *kgo.Client
}

// NewProducer connects a producer to brokers.
func NewProducer(brokers []string) (*Conf, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(deliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Conf{client: client}, nil
}

// NewConsumer joins group and subscribes to topics. Offsets are committed after each handled poll.
func NewConsumer(brokers []string, group string, topics ...string) (*Conf, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return &Conf{client: client}, nil
}

func (k *Conf) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

func (k *Conf) ProduceMessage(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := k.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message to %s: %w", topic, err)
	}
	return nil
}

// PublishOrderCreated sends the event keyed by the order code.
func (k *Conf) PublishOrderCreated(ctx context.Context, event orders.CreatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order created event: %w", err)
	}
	return k.ProduceMessage(ctx, TopicOrderCreated, []byte(event.Code), data)
}

// OrderCreatedHandler is called for every consumed OrderCreated event.
type OrderCreatedHandler func(ctx context.Context, event orders.CreatedEvent) error

// ConsumeOrderCreated polls until ctx is cancelled or the client is closed. Handler failures
// are logged and the record is still committed.
func (k *Conf) ConsumeOrderCreated(ctx context.Context, handle OrderCreatedHandler) error {
	for {
		fetches := k.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("kafka fetch failed", slog.String("topic", topic),
				slog.Int("partition", int(partition)), slog.String(logkey.ERROR, err.Error()))
		})
		fetches.EachRecord(func(r *kgo.Record) {
			var event orders.CreatedEvent
			if err := json.Unmarshal(r.Value, &event); err != nil {
				slog.Error("failed to decode order created event", slog.String(logkey.ERROR, err.Error()))
				return
			}
			if err := handle(ctx, event); err != nil {
				slog.Error("failed to handle order created event",
					slog.String(logkey.OrderCode, event.Code), slog.String(logkey.ERROR, err.Error()))
			}
		})
		if err := k.client.CommitUncommittedOffsets(ctx); err != nil && ctx.Err() == nil {
			slog.Error("failed to commit offsets", slog.String(logkey.ERROR, err.Error()))
		}
	}
}

func (k *Conf) Close() {
	k.client.Close()
}
