package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"pkt.systems/redpen/schema"
)

type theme struct {
	Header     lipgloss.Style
	Muted      lipgloss.Style
	Accent     lipgloss.Style
	Success    lipgloss.Style
	Danger     lipgloss.Style
	Cursor     lipgloss.Style
	Input      lipgloss.Style
	Overlay    lipgloss.Style
	OverlayBox lipgloss.Style
}

func defaultTheme() theme {
	accent := lipgloss.Color("#FF5F5F")
	secondary := lipgloss.Color("#7D7D7D")
	success := lipgloss.Color("#00D787")
	danger := lipgloss.Color("#FF0055")

	return theme{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
		Muted: lipgloss.NewStyle().
			Foreground(secondary),
		Accent: lipgloss.NewStyle().
			Foreground(accent),
		Success: lipgloss.NewStyle().
			Foreground(success),
		Danger: lipgloss.NewStyle().
			Foreground(danger),
		Cursor: lipgloss.NewStyle().
			Reverse(true),
		Input: lipgloss.NewStyle().
			Foreground(accent),
		Overlay: lipgloss.NewStyle().
			Foreground(secondary),
		OverlayBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
	}
}

const statusPanelLines = 3

func (m editModel) View() string {
	w, h := m.effectiveSize()
	if w < 20 || h < 8 {
		return m.viewTooSmall(w, h)
	}

	base := strings.Join([]string{
		m.viewHeader(w),
		m.viewDocument(w, m.bodyHeight()),
		m.viewStatus(),
		m.viewFooter(),
	}, "\n")

	if m.ui.modalText != "" {
		return renderOverlay(m.th, base, m.viewModal())
	}
	switch m.overlay {
	case overlayMenu:
		return renderOverlay(m.th, base, m.viewMenu())
	case overlayDropdown:
		return renderOverlay(m.th, base, m.viewDropdown())
	case overlayQuitConfirm:
		return renderOverlay(m.th, base, m.viewQuitConfirm())
	}
	return base
}

func (m editModel) effectiveSize() (int, int) {
	w := m.width
	h := m.height
	if w <= 0 {
		w = 80
	}
	if h <= 0 {
		h = 24
	}
	return w, h
}

// bodyHeight is what remains after the header, status panel, and footer.
func (m editModel) bodyHeight() int {
	_, h := m.effectiveSize()
	body := h - 2 - (statusPanelLines + 1)
	if body < 3 {
		body = 3
	}
	return body
}

func (m editModel) pageSize() int {
	page := m.bodyHeight() - 1
	if page < 1 {
		page = 1
	}
	return page
}

func (m editModel) viewTooSmall(w, h int) string {
	lines := []string{
		m.th.Header.Render("redpen"),
		m.th.Danger.Render("Terminal too small"),
		m.th.Muted.Render(fmt.Sprintf("Minimum: 20x8. Current: %dx%d", w, h)),
	}
	return strings.Join(lines, "\n")
}

func (m editModel) viewHeader(width int) string {
	name := m.doc.path
	if name == "" {
		name = "(no file)"
	}
	if m.doc.dirty {
		name += " *"
	}
	line, col := m.doc.CursorLineCol()
	left := m.th.Header.Render("redpen") + "  " + name
	right := m.th.Muted.Render(fmt.Sprintf("%d:%d  %s", line+1, col+1, m.modelLabel()))
	pad := width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

func (m editModel) modelLabel() string {
	if d, ok := m.ui.table.Find(schema.ActionIDModelMenu); ok {
		return cleanLabel(d.Label)
	}
	return "no model"
}

func (m editModel) viewDocument(width, height int) string {
	lines := m.doc.Lines()
	cursorLine, cursorCol := m.doc.CursorLineCol()

	top := 0
	if cursorLine >= height {
		top = cursorLine - height + 1
	}

	rows := make([]string, 0, height)
	for i := top; i < top+height; i++ {
		if i >= len(lines) {
			rows = append(rows, m.th.Muted.Render("~"))
			continue
		}
		line := truncateLine(lines[i], width-1)
		if i == cursorLine {
			line = renderCursorLine(m.th, line, cursorCol)
		}
		rows = append(rows, line)
	}
	return strings.Join(rows, "\n")
}

func truncateLine(line string, width int) string {
	if width < 1 {
		width = 1
	}
	runes := []rune(line)
	if len(runes) <= width {
		return line
	}
	return string(runes[:width])
}

func renderCursorLine(th theme, line string, col int) string {
	runes := []rune(line)
	if col > len(runes) {
		col = len(runes)
	}
	cell := " "
	rest := ""
	if col < len(runes) {
		cell = string(runes[col])
		rest = string(runes[col+1:])
	}
	return string(runes[:col]) + th.Cursor.Render(cell) + rest
}

func (m editModel) viewStatus() string {
	rows := make([]string, 0, statusPanelLines+1)

	switch {
	case m.ui.progressVisible:
		rows = append(rows, m.th.Accent.Render(spinnerFrame(m.now)+" "+m.ui.progressText))
	case m.requestState != "":
		rows = append(rows, m.th.Muted.Render(spinnerFrame(m.now)+" "+m.requestState))
	default:
		rows = append(rows, m.th.Muted.Render("idle"))
	}

	status := m.ui.status
	start := len(status) - statusPanelLines
	if start < 0 {
		start = 0
	}
	for _, s := range status[start:] {
		switch s.kind {
		case statusError:
			rows = append(rows, m.th.Danger.Render(s.text))
		default:
			rows = append(rows, s.text)
		}
	}
	for len(rows) < statusPanelLines+1 {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}

func (m editModel) viewFooter() string {
	if m.overlay == overlayCommand {
		return "> " + m.th.Input.Render(m.commandInput) + m.th.Cursor.Render(" ")
	}
	return m.th.Muted.Render("[Ctrl+S] Save    [Ctrl+P] Proofread    [F10] Menu    [Esc] Commands    [Ctrl+Q] Quit")
}

func (m editModel) viewMenu() string {
	title := "AI"
	if d, ok := m.ui.table.Find(schema.ActionIDMenu); ok {
		title = cleanLabel(d.Label)
	}
	lines := []string{
		m.th.Accent.Render(title),
		m.th.Muted.Render("Esc: back    Enter: activate"),
	}
	for i, entry := range m.menuEntries {
		indent := strings.Repeat("  ", entry.depth)
		if entry.separator {
			lines = append(lines, indent+m.th.Muted.Render("────────"))
			continue
		}
		label := cleanLabel(entry.label)
		prefix := "  "
		if i == m.menuIndex {
			prefix = m.th.Accent.Render("> ")
			label = m.th.Accent.Render(label)
		} else if !entry.selectable() {
			label = m.th.Muted.Render(label)
		}
		lines = append(lines, indent+prefix+label)
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m editModel) viewDropdown() string {
	title := "AI Proofread"
	if d, ok := m.ui.table.Find(schema.ActionIDDropdown); ok {
		title = cleanLabel(d.Label)
	}
	lines := []string{
		m.th.Accent.Render(title),
		m.th.Muted.Render("Esc: back    Enter: proofread"),
	}
	for i, choice := range m.dropdownChoices {
		prefix := "  "
		label := choice.Label
		if i == m.dropdownIndex {
			prefix = m.th.Accent.Render("> ")
			label = m.th.Accent.Render(label)
		}
		lines = append(lines, prefix+label)
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m editModel) viewModal() string {
	lines := []string{
		m.th.Accent.Render(schema.ProgressTitle),
		"",
		m.ui.modalText,
		"",
		m.th.Muted.Render("press any key"),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func (m editModel) viewQuitConfirm() string {
	lines := []string{
		m.th.Danger.Render("Unsaved changes"),
		"",
		"Quit without saving?",
		m.th.Muted.Render("Enter/y: quit    n/Esc: back"),
	}
	return m.th.OverlayBox.Render(strings.Join(lines, "\n"))
}

func renderOverlay(th theme, base, overlay string) string {
	return th.Overlay.Render(base) + "\n\n" + overlay
}

func spinnerFrame(now time.Time) string {
	frames := []string{"|", "/", "-", "\\"}
	return frames[int(now.UnixMilli()/120)%len(frames)]
}

// cleanLabel strips menu mnemonic markers from registry labels.
func cleanLabel(label string) string {
	return strings.ReplaceAll(label, "_", "")
}
