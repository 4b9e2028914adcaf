package bus

import "time"

// EventBus is an in-process pub/sub bus for engine notifications.
//
// Handlers subscribe by event type. Delivery is synchronous on the publishing
// goroutine and in subscription order. Handler errors are joined and returned
// from Publish. All methods are safe for concurrent use.
type EventBus interface {
	// Publish delivers event to the subscribers of event.Type().
	Publish(event Event) error

	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe is safe to call with nil.
	Unsubscribe(Subscription) error

	AddObserver(obs EventBusObserver)
	RemoveObserver(obs EventBusObserver)
	// GetMetrics is only populated while at least one observer is registered.
	GetMetrics() EventBusMetrics
	GetEventTypes() []EventTypeInfo
}

// Event is an immutable message. Type is the routing key.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type EventHandler func(event Event) error

// Subscription is a registered handler. Cancel is idempotent.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}

// EventBusObserver sees every publish and its delivery outcome.
type EventBusObserver interface {
	OnPublish(eventType string, event Event)
	OnDelivered(eventType string, handlers int, err error, duration time.Duration)
}

type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	EventTypes        uint64
}

type EventTypeInfo struct {
	Name string
	Subs int
}
