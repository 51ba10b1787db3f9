package shared

import "context"

// EventHandler consumes change events delivered by the bus
type EventHandler interface {
	// Handle processes a single event. A returned error is logged by the
	// bus and does not stop delivery to other handlers.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes returns the event types this handler wants.
	// An empty slice subscribes the handler to every event.
	EventTypes() []string
}

// EventPublisher is the producer side of the bus
type EventPublisher interface {
	// Publish hands one or more events to the bus for delivery
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber is the consumer-registration side of the bus
type EventSubscriber interface {
	// Subscribe registers a handler for the given event types, or for all
	// events when none are given
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe removes a handler from every subscription it holds
	Unsubscribe(handler EventHandler)
}

// EventBus combines publishing and subscription with lifecycle control
type EventBus interface {
	EventPublisher
	EventSubscriber
	// Start begins background delivery
	Start(ctx context.Context) error
	// Stop drains in-flight events and shuts delivery down
	Stop(ctx context.Context) error
}
