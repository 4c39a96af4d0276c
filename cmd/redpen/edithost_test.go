package main

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pkt.systems/redpen/schema"
)

func TestTeaDispatcherDeliversInOrder(t *testing.T) {
	disp := newTeaDispatcher()
	defer disp.Close()

	var got []int
	done := make(chan struct{})
	go disp.pump(func(msg tea.Msg) {
		apply, ok := msg.(applyMsg)
		if !ok {
			t.Errorf("unexpected message %T", msg)
			return
		}
		apply.fn()
		if len(got) == 5 {
			close(done)
		}
	})

	for i := 1; i <= 5; i++ {
		n := i
		disp.Dispatch(func() { got = append(got, n) })
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("pump did not deliver queued work")
	}
	for i, n := range got {
		if n != i+1 {
			t.Fatalf("delivery order = %v", got)
		}
	}
}

func TestTeaDispatcherCloseStopsPump(t *testing.T) {
	disp := newTeaDispatcher()

	stopped := make(chan struct{})
	go func() {
		disp.pump(func(tea.Msg) {})
		close(stopped)
	}()

	disp.Close()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("pump did not stop after close")
	}

	// Dispatch after close is a silent no-op.
	disp.Dispatch(func() { t.Errorf("dispatched after close") })
	disp.Close()
}

func TestEditorHostFetchDeliversDocument(t *testing.T) {
	doc := newDocBuffer("")
	doc.InsertString("teh cat sat")
	host := &editorHost{doc: doc, ui: newEditorUI()}

	var delivered string
	var deliveredErr error
	host.FetchContent("editor", schema.ContentDocument, func(content string, err error) {
		delivered = content
		deliveredErr = err
	})
	if deliveredErr != nil {
		t.Fatalf("fetch error: %v", deliveredErr)
	}
	if delivered != "teh cat sat" {
		t.Fatalf("delivered = %q", delivered)
	}
}

func TestEditorHostInsertReplacesDocument(t *testing.T) {
	doc := newDocBuffer("")
	doc.InsertString("teh cat sat")
	doc.dirty = false
	host := &editorHost{doc: doc, ui: newEditorUI()}

	if err := host.InsertContent("editor", "The cat sat.", schema.InsertReplaceDocument); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := doc.Text(); got != "The cat sat." {
		t.Fatalf("document = %q", got)
	}
	if !doc.dirty {
		t.Fatalf("expected replacement to mark the buffer dirty")
	}
}

func TestEditorHostProgressSequenceGuard(t *testing.T) {
	ui := newEditorUI()
	host := &editorHost{doc: newDocBuffer(""), ui: ui}

	first := host.ShowProgress("editor", "working on a")
	second := host.ShowProgress("editor", "working on b")

	first.Close()
	if !ui.progressVisible || ui.progressText != "working on b" {
		t.Fatalf("stale close hid the newer indicator: visible=%v text=%q", ui.progressVisible, ui.progressText)
	}

	second.Close()
	if ui.progressVisible {
		t.Fatalf("indicator still visible after close")
	}
	second.Close()
	if ui.progressVisible {
		t.Fatalf("double close reopened the indicator")
	}
}

func TestEditorHostAlertAndNotice(t *testing.T) {
	ui := newEditorUI()
	host := &editorHost{doc: newDocBuffer(""), ui: ui}

	host.ShowAlert("editor", schema.AlertProofreadingError, "model overloaded")
	if len(ui.status) != 1 {
		t.Fatalf("status lines = %d", len(ui.status))
	}
	if ui.status[0].kind != statusError {
		t.Fatalf("alert kind = %v", ui.status[0].kind)
	}

	host.ShowModalNotice("editor", schema.NoticeEmptyResponse)
	if ui.modalText != schema.NoticeEmptyResponse {
		t.Fatalf("modal = %q", ui.modalText)
	}
}

func TestEditorHostRenderLayoutStoresRegistry(t *testing.T) {
	ui := newEditorUI()
	host := &editorHost{doc: newDocBuffer(""), ui: ui}

	table := schema.ActionTable{{ID: "ai-proofread-fix", Kind: schema.ActionPrompt, Label: "Fix"}}
	layout := schema.LayoutDocument{Roots: []schema.LayoutNode{{Kind: schema.LayoutMenu, ID: schema.LayoutIDMainMenu}}}
	if err := host.RenderLayout("editor", table, layout); err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(ui.table) != 1 || ui.table[0].ID != "ai-proofread-fix" {
		t.Fatalf("stored table = %+v", ui.table)
	}
	if len(ui.layout.Roots) != 1 {
		t.Fatalf("stored layout roots = %d", len(ui.layout.Roots))
	}
}

func TestEditorUIStatusHistoryBounded(t *testing.T) {
	ui := newEditorUI()
	for i := 0; i < statusHistoryLimit+10; i++ {
		ui.pushStatus(statusInfo, fmt.Sprintf("line %d", i))
	}
	if len(ui.status) != statusHistoryLimit {
		t.Fatalf("status history = %d, want %d", len(ui.status), statusHistoryLimit)
	}
	if ui.status[len(ui.status)-1].text != fmt.Sprintf("line %d", statusHistoryLimit+9) {
		t.Fatalf("history dropped the wrong end: %q", ui.status[len(ui.status)-1].text)
	}
}
