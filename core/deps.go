package core

import "pkt.systems/pslog"

// ServiceDeps captures dependencies for the core service. Config, Host, and
// Completer degrade gracefully when absent: operations that need a missing
// collaborator fail with the matching schema sentinel.
type ServiceDeps struct {
	Config     ConfigSource
	Host       HostSurface
	Completer  Completer
	Dispatcher Dispatcher
	EventSink  EventSink
	Logger     pslog.Logger
}
