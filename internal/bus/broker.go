package bus

import "sync"

// Broker is an in-process event fan-out implementing EventPublisher.
// Handlers run synchronously on the broadcasting goroutine; they must not block.
type Broker struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
}

// NewBroker creates an empty event broker.
func NewBroker() *Broker {
	return &Broker{handlers: make(map[string]EventHandler)}
}

// Subscribe registers a handler under the given id, replacing any previous one.
func (b *Broker) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[id] = handler
}

// Unsubscribe removes the handler registered under id.
func (b *Broker) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

// Broadcast delivers the event to all current subscribers.
func (b *Broker) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
