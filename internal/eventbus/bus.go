// Package eventbus fans out core service events to UI subscribers.
package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/redpen/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventRequest carries a proofreading request transition.
	EventRequest EventType = "request"
	// EventRegistry carries a command registry rebuild.
	EventRegistry EventType = "registry"
)

// AllSurfaces subscribes to events from every surface.
const AllSurfaces schema.SurfaceID = ""

// Event represents a UI-facing event emitted by the core service.
type Event struct {
	Type     EventType
	Request  schema.RequestEvent
	Registry schema.RegistryEvent
}

// Bus fans out events to per-surface subscribers. Request events reach the
// surface's subscribers plus any AllSurfaces subscriber; registry events
// reach everyone.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.SurfaceID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[schema.SurfaceID]map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the surface and returns a channel +
// cancel. Subscribing to AllSurfaces receives every event.
func (b *Bus) Subscribe(surface schema.SurfaceID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	surfSubs := b.subs[surface]
	if surfSubs == nil {
		surfSubs = make(map[chan Event]struct{})
		b.subs[surface] = surfSubs
	}
	surfSubs[ch] = struct{}{}
	count := len(surfSubs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("surface", surface).Debug("eventbus subscribe", "subs", count)
	}
	return ch, func() {
		b.mu.Lock()
		if subs := b.subs[surface]; subs != nil {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(b.subs, surface)
			}
		}
		b.mu.Unlock()
		close(ch)
		if b.log != nil {
			b.log.With("surface", surface).Debug("eventbus unsubscribe")
		}
	}
}

// OnRequestEvent publishes a request lifecycle event.
func (b *Bus) OnRequestEvent(event schema.RequestEvent) {
	b.publish(event.Surface, Event{Type: EventRequest, Request: event})
}

// OnRegistryEvent publishes a registry rebuild event to all subscribers.
func (b *Bus) OnRegistryEvent(event schema.RegistryEvent) {
	b.broadcast(Event{Type: EventRegistry, Registry: event})
}

func (b *Bus) publish(surface schema.SurfaceID, event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	subs := make([]chan Event, 0, len(b.subs[surface])+len(b.subs[AllSurfaces]))
	for sub := range b.subs[surface] {
		subs = append(subs, sub)
	}
	if surface != AllSurfaces {
		for sub := range b.subs[AllSurfaces] {
			subs = append(subs, sub)
		}
	}
	b.mu.Unlock()
	b.send(surface, event, subs)
}

func (b *Bus) broadcast(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	var subs []chan Event
	for _, surfSubs := range b.subs {
		for sub := range surfSubs {
			subs = append(subs, sub)
		}
	}
	b.mu.Unlock()
	b.send(AllSurfaces, event, subs)
}

func (b *Bus) send(surface schema.SurfaceID, event Event, subs []chan Event) {
	if len(subs) == 0 {
		return
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.log != nil {
		b.log.With("surface", surface).Trace("eventbus dropped", "count", dropped)
	}
}
