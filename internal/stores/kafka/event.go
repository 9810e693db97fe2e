package kafka

import "storefront-service/internal/orders"

const (
	TopicOrderCreated = orders.TopicOrderCreated
	ConsumerGroup     = `storefront-service.notifications`
)
