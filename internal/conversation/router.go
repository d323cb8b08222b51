// Package conversation routes inbound chat events to per-channel conversation
// instances. The router is a keyed factory and multiplexer; it holds no
// conversation-domain knowledge.
package conversation

import (
	"log/slog"
	"sync"
)

// Key identifies one logical conversation slot.
type Key struct {
	Team    string
	Channel string
}

// Instance is one live conversation. Deliver enqueues an event into the
// instance's inbox; events delivered for the same key are processed in
// delivery order. Stop asks the instance to terminate and is asynchronous.
type Instance[E any] interface {
	Deliver(event E)
	Stop(reason string)
}

// Factory constructs the instance for a key on its first event.
type Factory[E any] func(Key) Instance[E]

// Router owns the key-to-instance registry. Exactly one instance exists per
// live key; creation is atomic under the registry lock, so concurrent first
// events for a key construct a single instance and both events reach it.
type Router[E any] struct {
	logger  *slog.Logger
	factory Factory[E]

	mu        sync.Mutex
	instances map[Key]Instance[E]
}

func NewRouter[E any](factory Factory[E], logger *slog.Logger) *Router[E] {
	return &Router[E]{
		logger:    logger,
		factory:   factory,
		instances: make(map[Key]Instance[E]),
	}
}

// Route forwards event to the instance for key, creating it if absent.
func (r *Router[E]) Route(key Key, event E) {
	r.mu.Lock()
	instance, ok := r.instances[key]
	if !ok {
		instance = r.factory(key)
		r.instances[key] = instance
		r.logger.Info("created conversation",
			slog.String("team", key.Team),
			slog.String("channel", key.Channel))
	}
	r.mu.Unlock()

	instance.Deliver(event)
}

// Stop signals the instance for key to terminate and removes the registry
// entry. It is idempotent if no instance exists.
func (r *Router[E]) Stop(key Key, reason string) {
	r.mu.Lock()
	instance, ok := r.instances[key]
	if ok {
		delete(r.instances, key)
	}
	r.mu.Unlock()

	if ok {
		instance.Stop(reason)
	}
}

// Remove detaches the registry entry for key without signaling the instance.
// Used when an instance reports that it terminated on its own.
func (r *Router[E]) Remove(key Key) {
	r.mu.Lock()
	delete(r.instances, key)
	r.mu.Unlock()
}

// StopAll stops every live instance. Used on shutdown.
func (r *Router[E]) StopAll(reason string) {
	r.mu.Lock()
	instances := make([]Instance[E], 0, len(r.instances))
	for key, instance := range r.instances {
		instances = append(instances, instance)
		delete(r.instances, key)
	}
	r.mu.Unlock()

	for _, instance := range instances {
		instance.Stop(reason)
	}
}

// Len returns the number of live instances.
func (r *Router[E]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
