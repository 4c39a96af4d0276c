package core

import "pkt.systems/redpen/schema"

// HostSurface exposes the editor capabilities the service drives. The
// service invokes every method through its Dispatcher, so implementations
// may assume calls arrive on the host's front-end loop.
type HostSurface interface {
	// FetchContent reads surface content asynchronously. The host calls
	// deliver exactly once, from any goroutine, when the content is ready
	// or the fetch failed.
	FetchContent(surface schema.SurfaceID, mode schema.ContentMode, deliver func(content string, err error))
	// InsertContent replaces surface content with completed text.
	InsertContent(surface schema.SurfaceID, text string, mode schema.InsertMode) error
	// ShowAlert surfaces a completion failure. The message is shown verbatim.
	ShowAlert(surface schema.SurfaceID, tag schema.AlertTag, message string)
	// ShowModalNotice surfaces an informational notice the user must dismiss.
	ShowModalNotice(surface schema.SurfaceID, message string)
	// ShowProgress displays a progress indicator until the handle is closed.
	ShowProgress(surface schema.SurfaceID, message string) ProgressHandle
	// RenderLayout installs the registry's menus and toolbars on the surface.
	RenderLayout(surface schema.SurfaceID, table schema.ActionTable, layout schema.LayoutDocument) error
}

// ProgressHandle dismisses a visible progress indicator. Close is idempotent.
type ProgressHandle interface {
	Close()
}

// Dispatcher schedules work on the host's front-end loop. All host-visible
// effects and pipeline continuations run through it, in submission order.
type Dispatcher interface {
	Dispatch(fn func())
}

// syncDispatcher runs work inline. Used when the host has no thread affinity.
type syncDispatcher struct{}

func (syncDispatcher) Dispatch(fn func()) { fn() }
