package core

import "pkt.systems/redpen/schema"

// EventSink receives request lifecycle and registry events from the service.
type EventSink interface {
	OnRequestEvent(event schema.RequestEvent)
	OnRegistryEvent(event schema.RegistryEvent)
}
