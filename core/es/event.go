package es

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// EventRegistry maps event type names to constructors so we can decode persisted events.
type EventRegistry struct {
	mu   sync.RWMutex
	news map[string]func() any
}

func NewRegistry() *EventRegistry {
	return &EventRegistry{news: map[string]func() any{}}
}

func (r *EventRegistry) Register(eventType string, ctor func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.news[eventType] = ctor
}

// Decode reconstructs the event payload carried by env. An event type the
// registry does not know is a programmer error, not a retryable condition.
func (r *EventRegistry) Decode(env Envelope) (any, error) {
	r.mu.RLock()
	ctor, ok := r.news[env.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnhandledDomainEvent, env.Type)
	}
	ev := ctor()
	if env.Data != nil {
		if err := json.Unmarshal(env.Data, ev); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

type Registrar interface {
	Register(eventType string, ctor func() any)
}

// Event returns a reflection-free constructor for an event of type T.
// Each call to the returned function constructs a fresh *T via new(T).
func Event[T any]() func() any { return func() any { return new(T) } }

// RegisterEvents registers event constructors. For each provided constructor,
// we call it once to determine the event type name and then register the
// original constructor so future decodes produce fresh instances per call.
func RegisterEvents(r Registrar, ctors ...func() any) {
	for _, ctor := range ctors {
		sample := ctor()
		r.Register(EventTypeOf(sample), ctor)
	}
}

// EventTypeOf returns the storage type name of an event. Events can override
// the reflected name by implementing EventType() string.
func EventTypeOf(ev any) string {
	if t, ok := ev.(interface{ EventType() string }); ok {
		return t.EventType()
	}
	rt := reflect.TypeOf(ev)
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return rt.Name()
}
