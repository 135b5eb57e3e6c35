package events

// Topic constants for domain events.
const (
	TopicOrderCreated = "order.created"
)
