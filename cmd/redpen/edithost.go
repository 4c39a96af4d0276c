package main

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"pkt.systems/redpen/core"
	"pkt.systems/redpen/schema"
)

// applyMsg carries dispatched service work onto the program's update loop.
type applyMsg struct {
	fn func()
}

// teaDispatcher funnels service callbacks into the bubbletea loop. Dispatch
// only queues, so the service may call it from inside an Update without
// deadlocking on Program.Send; a pump goroutine forwards queued work as
// messages in submission order.
type teaDispatcher struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

func newTeaDispatcher() *teaDispatcher {
	return &teaDispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Dispatch queues fn for the update loop. Never blocks.
func (d *teaDispatcher) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run pumps queued work into the program until Close. Send unblocks when the
// program exits, so a stuck shutdown cannot hang the pump.
func (d *teaDispatcher) Run(p *tea.Program) {
	d.pump(func(msg tea.Msg) { p.Send(msg) })
}

func (d *teaDispatcher) pump(send func(tea.Msg)) {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			fn := d.queue[0]
			d.queue = d.queue[1:]
			d.mu.Unlock()
			send(applyMsg{fn: fn})
		}
	}
}

// Close stops the pump. Queued work that has not been sent is dropped.
func (d *teaDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	close(d.done)
}

// statusKind styles one line of the status panel.
type statusKind int

const (
	statusInfo statusKind = iota
	statusError
)

type statusLine struct {
	kind statusKind
	text string
}

const statusHistoryLimit = 50

// editorUI is the host-visible surface state: registry, progress indicator,
// modal notice, and the status panel. Like docBuffer it is confined to the
// update loop.
type editorUI struct {
	table  schema.ActionTable
	layout schema.LayoutDocument

	progressSeq     int
	progressVisible bool
	progressText    string

	modalText string

	status []statusLine
}

func newEditorUI() *editorUI {
	return &editorUI{}
}

func (u *editorUI) pushStatus(kind statusKind, text string) {
	u.status = append(u.status, statusLine{kind: kind, text: text})
	if len(u.status) > statusHistoryLimit {
		u.status = u.status[len(u.status)-statusHistoryLimit:]
	}
}

// editorHost implements core.HostSurface over the shared editor state. The
// service invokes it through the dispatcher, so every method runs on the
// update loop.
type editorHost struct {
	doc *docBuffer
	ui  *editorUI
}

func (h *editorHost) FetchContent(_ schema.SurfaceID, _ schema.ContentMode, deliver func(string, error)) {
	deliver(h.doc.Text(), nil)
}

func (h *editorHost) InsertContent(_ schema.SurfaceID, text string, _ schema.InsertMode) error {
	h.doc.SetText(text)
	return nil
}

func (h *editorHost) ShowAlert(_ schema.SurfaceID, tag schema.AlertTag, message string) {
	h.ui.pushStatus(statusError, fmt.Sprintf("[%s] %s", tag, message))
}

func (h *editorHost) ShowModalNotice(_ schema.SurfaceID, message string) {
	h.ui.modalText = message
}

func (h *editorHost) ShowProgress(_ schema.SurfaceID, message string) core.ProgressHandle {
	h.ui.progressSeq++
	h.ui.progressVisible = true
	h.ui.progressText = message
	return &editProgress{ui: h.ui, seq: h.ui.progressSeq}
}

func (h *editorHost) RenderLayout(_ schema.SurfaceID, table schema.ActionTable, layout schema.LayoutDocument) error {
	h.ui.table = table
	h.ui.layout = layout
	return nil
}

// editProgress dismisses the indicator it opened. The sequence guard keeps a
// stale Close from hiding a newer indicator.
type editProgress struct {
	ui  *editorUI
	seq int
}

func (p *editProgress) Close() {
	if p.ui.progressSeq != p.seq {
		return
	}
	p.ui.progressVisible = false
	p.ui.progressText = ""
}
