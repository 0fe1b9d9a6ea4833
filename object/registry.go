package object

import (
	"sync"

	"github.com/edgeo/bacnet-router/bacerr"
)

// Registry is the mapping from object type to its ObjectHandler.
// One handler manages every instance of its type; instance-level
// operations take the instance number as an argument.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Type]ObjectHandler
}

// NewRegistry returns an empty object registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Type]ObjectHandler)}
}

// Register installs h under its own Type(), replacing any prior handler
// for that type.
func (r *Registry) Register(h ObjectHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Type()] = h
}

// Lookup returns the handler for typ, and whether instance is valid
// within it.
func (r *Registry) Lookup(typ Type, instance uint32) (ObjectHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[typ]
	if !ok || !h.ValidInstance(instance) {
		return nil, bacerr.New(bacerr.ClassObject, bacerr.CodeUnknownObject)
	}
	return h, nil
}

// HandlerFor returns the handler registered for typ, if any, without an
// instance check.
func (r *Registry) HandlerFor(typ Type) (ObjectHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[typ]
	return h, ok
}

// Types returns every registered object type.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Type, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}
