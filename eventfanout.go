package redpen

import (
	"pkt.systems/redpen/core"
	"pkt.systems/redpen/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnRequestEvent(event schema.RequestEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnRequestEvent(event)
	}
}

func (f eventFanout) OnRegistryEvent(event schema.RegistryEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnRegistryEvent(event)
	}
}
