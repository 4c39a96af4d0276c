package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"pkt.systems/redpen/core"
	"pkt.systems/redpen/internal/command"
	"pkt.systems/redpen/internal/eventbus"
	"pkt.systems/redpen/schema"
)

type editorOverlay int

const (
	overlayNone editorOverlay = iota
	overlayMenu
	overlayDropdown
	overlayCommand
	overlayQuitConfirm
)

func (o editorOverlay) String() string {
	switch o {
	case overlayNone:
		return "none"
	case overlayMenu:
		return "menu"
	case overlayDropdown:
		return "dropdown"
	case overlayCommand:
		return "command"
	case overlayQuitConfirm:
		return "quit_confirm"
	default:
		return "unknown"
	}
}

// menuEntry is one row of the flattened proofreading menu.
type menuEntry struct {
	action    schema.ActionID
	kind      schema.ActionKind
	label     string
	depth     int
	separator bool
}

func (e menuEntry) selectable() bool {
	return !e.separator && (e.kind == schema.ActionPrompt || e.kind == schema.ActionModel)
}

// buildMenuEntries flattens the proofreading submenu of the layout into rows,
// resolving labels through the table. Model entries render indented under
// their submenu header.
func buildMenuEntries(table schema.ActionTable, layout schema.LayoutDocument) []menuEntry {
	var entries []menuEntry
	var walk func(nodes []schema.LayoutNode, depth int)
	walk = func(nodes []schema.LayoutNode, depth int) {
		for _, n := range nodes {
			switch n.Kind {
			case schema.LayoutSeparator:
				entries = append(entries, menuEntry{separator: true, depth: depth})
			case schema.LayoutItem, schema.LayoutSubmenu:
				d, ok := table.Find(n.Action)
				if !ok {
					continue
				}
				entries = append(entries, menuEntry{
					action: d.ID,
					kind:   d.Kind,
					label:  d.Label,
					depth:  depth,
				})
				walk(n.Items, depth+1)
			default:
				walk(n.Items, depth)
			}
		}
	}
	layout.Walk(func(n schema.LayoutNode) {
		if n.Kind == schema.LayoutPlaceholder && n.ID == schema.LayoutIDMenuHolder {
			walk(n.Items, 0)
		}
	})
	return entries
}

type busEventMsg struct {
	event eventbus.Event
}

type startedMsg struct {
	err error
}

type editModel struct {
	th  theme
	ctx context.Context

	width  int
	height int

	surface  schema.SurfaceID
	svc      core.Service
	commands *command.Handler
	events   <-chan eventbus.Event
	startFn  func(context.Context) error

	doc *docBuffer
	ui  *editorUI
	now time.Time

	overlay         editorOverlay
	menuEntries     []menuEntry
	menuIndex       int
	dropdownChoices []schema.PromptChoice
	dropdownIndex   int
	commandInput    string

	requestState string
}

type editModelConfig struct {
	Surface  schema.SurfaceID
	Service  core.Service
	Commands *command.Handler
	Events   <-chan eventbus.Event
	Start    func(context.Context) error
	Doc      *docBuffer
	UI       *editorUI
}

func newEditModel(ctx context.Context, cfg editModelConfig) editModel {
	if ctx == nil {
		ctx = context.Background()
	}
	return editModel{
		th:       defaultTheme(),
		ctx:      ctx,
		surface:  cfg.Surface,
		svc:      cfg.Service,
		commands: cfg.Commands,
		events:   cfg.Events,
		startFn:  cfg.Start,
		doc:      cfg.Doc,
		ui:       cfg.UI,
		now:      time.Now(),
	}
}

func (m editModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), m.waitEvent()}
	if m.startFn != nil {
		ctx := m.ctx
		start := m.startFn
		cmds = append(cmds, func() tea.Msg {
			return startedMsg{err: start(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return t })
}

func (m editModel) waitEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return busEventMsg{event: event}
	}
}

func (m editModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch t := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = t.Width
		m.height = t.Height
		return m, nil
	case applyMsg:
		if t.fn != nil {
			t.fn()
		}
		return m, nil
	case startedMsg:
		if t.err != nil {
			m.ui.pushStatus(statusError, "startup failed: "+t.err.Error())
		} else {
			m.ui.pushStatus(statusInfo, "ready: F10 menu, Ctrl+P proofread, Esc commands")
		}
		return m, nil
	case busEventMsg:
		m = m.onBusEvent(t.event)
		return m, m.waitEvent()
	case time.Time:
		m.now = t
		return m, tickCmd()
	case tea.KeyMsg:
		return m.onKey(t)
	default:
		return m, nil
	}
}

func (m editModel) onBusEvent(event eventbus.Event) editModel {
	switch event.Type {
	case eventbus.EventRegistry:
		m.ui.pushStatus(statusInfo, fmt.Sprintf("registry: %d prompts, %d models, model %s",
			event.Registry.Prompts, event.Registry.Models, event.Registry.Selected))
	case eventbus.EventRequest:
		req := event.Request
		if req.State != schema.RequestTerminated {
			m.requestState = string(req.State)
			return m
		}
		m.requestState = ""
		if req.Outcome == schema.OutcomeInserted {
			m.ui.pushStatus(statusInfo, fmt.Sprintf("proofreading applied (%s, %s)", req.Prompt, req.Model))
		}
	}
	return m
}

func (m editModel) onKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ui.modalText != "" {
		m.ui.modalText = ""
		return m, nil
	}
	if k.Type == tea.KeyCtrlC || k.Type == tea.KeyCtrlQ {
		return m.requestQuit()
	}
	switch m.overlay {
	case overlayMenu:
		return m.updateMenu(k)
	case overlayDropdown:
		return m.updateDropdown(k)
	case overlayCommand:
		return m.updateCommand(k)
	case overlayQuitConfirm:
		return m.updateQuitConfirm(k)
	default:
		return m.updateEditor(k)
	}
}

func (m editModel) requestQuit() (tea.Model, tea.Cmd) {
	if m.doc != nil && m.doc.dirty {
		m.overlay = overlayQuitConfirm
		return m, nil
	}
	return m, tea.Quit
}

func (m editModel) updateEditor(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyRunes:
		if k.Alt {
			switch string(k.Runes) {
			case "b":
				m.doc.MoveWordLeft()
			case "f":
				m.doc.MoveWordRight()
			}
			return m, nil
		}
		for _, r := range k.Runes {
			m.doc.InsertRune(r)
		}
	case tea.KeySpace:
		m.doc.InsertRune(' ')
	case tea.KeyEnter:
		m.doc.InsertRune('\n')
	case tea.KeyTab:
		m.doc.InsertRune('\t')
	case tea.KeyBackspace:
		m.doc.Backspace()
	case tea.KeyDelete:
		m.doc.Delete()
	case tea.KeyLeft:
		m.doc.MoveLeft()
	case tea.KeyRight:
		m.doc.MoveRight()
	case tea.KeyUp:
		m.doc.MoveUp()
	case tea.KeyDown:
		m.doc.MoveDown()
	case tea.KeyHome, tea.KeyCtrlA:
		m.doc.MoveLineStart()
	case tea.KeyEnd, tea.KeyCtrlE:
		m.doc.MoveLineEnd()
	case tea.KeyPgUp:
		m.doc.MoveLines(-m.pageSize())
	case tea.KeyPgDown:
		m.doc.MoveLines(m.pageSize())
	case tea.KeyCtrlK:
		m.doc.KillLineEnd()
	case tea.KeyCtrlU:
		m.doc.KillLineStart()
	case tea.KeyCtrlW:
		m.doc.DeleteWordBackward()
	case tea.KeyCtrlS:
		if err := m.doc.Save(); err != nil {
			m.ui.pushStatus(statusError, "save failed: "+err.Error())
		} else {
			m.ui.pushStatus(statusInfo, "saved "+m.doc.path)
		}
	case tea.KeyCtrlP:
		return m.openDropdown()
	case tea.KeyF10:
		return m.openMenu()
	case tea.KeyEsc:
		m.overlay = overlayCommand
		m.commandInput = ""
	}
	return m, nil
}

func (m editModel) openMenu() (tea.Model, tea.Cmd) {
	entries := buildMenuEntries(m.ui.table, m.ui.layout)
	if len(entries) == 0 {
		m.ui.pushStatus(statusError, "no actions available; check prompts and API key, then /reload")
		return m, nil
	}
	m.overlay = overlayMenu
	m.menuEntries = entries
	m.menuIndex = nextSelectable(entries, -1, 1)
	return m, nil
}

func (m editModel) updateMenu(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		m.overlay = overlayNone
	case tea.KeyUp:
		m.menuIndex = nextSelectable(m.menuEntries, m.menuIndex, -1)
	case tea.KeyDown:
		m.menuIndex = nextSelectable(m.menuEntries, m.menuIndex, 1)
	case tea.KeyEnter:
		if m.menuIndex < 0 || m.menuIndex >= len(m.menuEntries) {
			m.overlay = overlayNone
			return m, nil
		}
		entry := m.menuEntries[m.menuIndex]
		m.overlay = overlayNone
		return m.activate(entry.action), nil
	}
	return m, nil
}

// nextSelectable steps from index in the given direction to the nearest
// activatable row, staying put when there is none.
func nextSelectable(entries []menuEntry, index, dir int) int {
	for i := index + dir; i >= 0 && i < len(entries); i += dir {
		if entries[i].selectable() {
			return i
		}
	}
	if index >= 0 && index < len(entries) && entries[index].selectable() {
		return index
	}
	return -1
}

func (m editModel) openDropdown() (tea.Model, tea.Cmd) {
	resp, err := m.svc.ActivateAction(m.ctx, schema.ActivateActionRequest{
		Surface: m.surface,
		Action:  schema.ActionIDDropdown,
		Mode:    schema.ContentDocument,
	})
	if err != nil {
		m.ui.pushStatus(statusError, "proofread menu: "+err.Error())
		return m, nil
	}
	if len(resp.Choices) == 0 {
		m.ui.pushStatus(statusError, "no prompts configured")
		return m, nil
	}
	m.overlay = overlayDropdown
	m.dropdownChoices = resp.Choices
	m.dropdownIndex = 0
	return m, nil
}

func (m editModel) updateDropdown(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		m.overlay = overlayNone
	case tea.KeyUp:
		if m.dropdownIndex > 0 {
			m.dropdownIndex--
		}
	case tea.KeyDown:
		if m.dropdownIndex < len(m.dropdownChoices)-1 {
			m.dropdownIndex++
		}
	case tea.KeyEnter:
		if m.dropdownIndex < 0 || m.dropdownIndex >= len(m.dropdownChoices) {
			m.overlay = overlayNone
			return m, nil
		}
		choice := m.dropdownChoices[m.dropdownIndex]
		m.overlay = overlayNone
		return m.activate(choice.Action), nil
	}
	return m, nil
}

// activate routes a registry action through the service and reports the
// outcome on the status panel.
func (m editModel) activate(action schema.ActionID) editModel {
	resp, err := m.svc.ActivateAction(m.ctx, schema.ActivateActionRequest{
		Surface: m.surface,
		Action:  action,
		Mode:    schema.ContentDocument,
	})
	if err != nil {
		m.ui.pushStatus(statusError, err.Error())
		return m
	}
	switch resp.Kind {
	case schema.ActionPrompt:
		m.ui.pushStatus(statusInfo, fmt.Sprintf("proofreading started (request %s)", resp.Request))
	case schema.ActionModel:
		m.ui.pushStatus(statusInfo, fmt.Sprintf("model set to %s", resp.Model))
	}
	return m
}

func (m editModel) updateCommand(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		m.overlay = overlayNone
		m.commandInput = ""
	case tea.KeyRunes:
		if !k.Alt {
			m.commandInput += string(k.Runes)
		}
	case tea.KeySpace:
		m.commandInput += " "
	case tea.KeyBackspace:
		if m.commandInput != "" {
			runes := []rune(m.commandInput)
			m.commandInput = string(runes[:len(runes)-1])
		}
	case tea.KeyEnter:
		input := m.commandInput
		m.overlay = overlayNone
		m.commandInput = ""
		if input == "" {
			return m, nil
		}
		return m.runCommand(input)
	}
	return m, nil
}

func (m editModel) runCommand(input string) (tea.Model, tea.Cmd) {
	res, handled, err := m.commands.Handle(m.ctx, m.surface, input)
	if !handled {
		m.ui.pushStatus(statusError, "commands start with /, try /help")
		return m, nil
	}
	if err != nil {
		m.ui.pushStatus(statusError, err.Error())
		return m, nil
	}
	for _, line := range res.Lines {
		m.ui.pushStatus(statusInfo, line)
	}
	if res.Quit {
		return m.requestQuit()
	}
	return m, nil
}

func (m editModel) updateQuitConfirm(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEnter:
		return m, tea.Quit
	case tea.KeyEsc:
		m.overlay = overlayNone
	case tea.KeyRunes:
		switch string(k.Runes) {
		case "y", "Y":
			return m, tea.Quit
		case "n", "N":
			m.overlay = overlayNone
		}
	}
	return m, nil
}
