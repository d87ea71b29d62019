package handler

import (
	"sync"

	"presence-be/internal/service"
)

// Dispatcher resolves counter instances by logical name. Exactly one
// instance is registered per deployment under a fixed name, so every
// request for that name lands on the same state.
type Dispatcher struct {
	mu        sync.RWMutex
	instances map[string]service.PresenceService
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		instances: make(map[string]service.PresenceService),
	}
}

// Register binds a counter instance to a logical name
func (d *Dispatcher) Register(name string, svc service.PresenceService) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instances[name] = svc
}

// Resolve looks up the counter instance for a logical name
func (d *Dispatcher) Resolve(name string) (service.PresenceService, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	svc, ok := d.instances[name]
	return svc, ok
}
