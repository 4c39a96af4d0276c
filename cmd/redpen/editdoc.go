package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

// docBuffer is the editable document: a rune buffer with a cursor and a
// backing file. It is confined to the program's update loop; mutations from
// service callbacks arrive there through the dispatcher.
type docBuffer struct {
	path   string
	buf    []rune
	cursor int
	dirty  bool
}

func newDocBuffer(path string) *docBuffer {
	return &docBuffer{path: path}
}

// Load reads the backing file. A missing file leaves the buffer empty so the
// editor can create it on save.
func (d *docBuffer) Load() error {
	if d.path == "" {
		return nil
	}
	raw, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	d.buf = []rune(strings.ReplaceAll(string(raw), "\r\n", "\n"))
	d.cursor = 0
	d.dirty = false
	return nil
}

// Save writes the buffer back to the backing file.
func (d *docBuffer) Save() error {
	if d.path == "" {
		return errors.New("no file to save to")
	}
	if err := os.WriteFile(d.path, []byte(string(d.buf)), 0o644); err != nil {
		return err
	}
	d.dirty = false
	return nil
}

func (d *docBuffer) Text() string {
	return string(d.buf)
}

// SetText replaces the whole buffer, keeping the cursor inside the new text.
func (d *docBuffer) SetText(text string) {
	d.buf = []rune(text)
	if d.cursor > len(d.buf) {
		d.cursor = len(d.buf)
	}
	d.dirty = true
}

func (d *docBuffer) Len() int {
	return len(d.buf)
}

func (d *docBuffer) InsertRune(r rune) {
	if d.cursor < 0 {
		d.cursor = 0
	}
	if d.cursor > len(d.buf) {
		d.cursor = len(d.buf)
	}
	d.buf = append(d.buf[:d.cursor], append([]rune{r}, d.buf[d.cursor:]...)...)
	d.cursor++
	d.dirty = true
}

func (d *docBuffer) InsertString(s string) {
	for _, r := range s {
		d.InsertRune(r)
	}
}

func (d *docBuffer) Backspace() {
	if d.cursor <= 0 {
		return
	}
	d.buf = append(d.buf[:d.cursor-1], d.buf[d.cursor:]...)
	d.cursor--
	d.dirty = true
}

func (d *docBuffer) Delete() {
	if d.cursor < 0 || d.cursor >= len(d.buf) {
		return
	}
	d.buf = append(d.buf[:d.cursor], d.buf[d.cursor+1:]...)
	d.dirty = true
}

func (d *docBuffer) MoveLeft() {
	if d.cursor > 0 {
		d.cursor--
	}
}

func (d *docBuffer) MoveRight() {
	if d.cursor < len(d.buf) {
		d.cursor++
	}
}

func (d *docBuffer) MoveLineStart() {
	d.cursor = d.lineStart()
}

func (d *docBuffer) MoveLineEnd() {
	d.cursor = d.lineEnd()
}

func (d *docBuffer) MoveWordLeft() {
	if d.cursor <= 0 {
		return
	}
	i := d.cursor
	for i > 0 && isWordSpace(d.buf[i-1]) {
		i--
	}
	for i > 0 && !isWordSpace(d.buf[i-1]) {
		i--
	}
	d.cursor = i
}

func (d *docBuffer) MoveWordRight() {
	if d.cursor >= len(d.buf) {
		return
	}
	i := d.cursor
	for i < len(d.buf) && isWordSpace(d.buf[i]) {
		i++
	}
	for i < len(d.buf) && !isWordSpace(d.buf[i]) {
		i++
	}
	d.cursor = i
}

func (d *docBuffer) DeleteWordBackward() {
	if d.cursor <= 0 {
		return
	}
	start := d.cursor
	for start > 0 && isWordSpace(d.buf[start-1]) {
		start--
	}
	for start > 0 && !isWordSpace(d.buf[start-1]) {
		start--
	}
	d.buf = append(d.buf[:start], d.buf[d.cursor:]...)
	d.cursor = start
	d.dirty = true
}

func (d *docBuffer) MoveUp() {
	start := d.lineStart()
	if start == 0 {
		return
	}
	col := d.cursor - start
	prevEnd := start - 1
	prevStart := 0
	for i := prevEnd - 1; i >= 0; i-- {
		if d.buf[i] == '\n' {
			prevStart = i + 1
			break
		}
	}
	prevLen := prevEnd - prevStart
	if col > prevLen {
		col = prevLen
	}
	d.cursor = prevStart + col
}

func (d *docBuffer) MoveDown() {
	end := d.lineEnd()
	if end >= len(d.buf) {
		return
	}
	start := d.lineStart()
	col := d.cursor - start
	nextStart := end + 1
	nextEnd := len(d.buf)
	for i := nextStart; i < len(d.buf); i++ {
		if d.buf[i] == '\n' {
			nextEnd = i
			break
		}
	}
	nextLen := nextEnd - nextStart
	if col > nextLen {
		col = nextLen
	}
	d.cursor = nextStart + col
}

// MoveLines moves the cursor delta lines, keeping the column where possible.
func (d *docBuffer) MoveLines(delta int) {
	for ; delta < 0; delta++ {
		d.MoveUp()
	}
	for ; delta > 0; delta-- {
		d.MoveDown()
	}
}

func (d *docBuffer) KillLineStart() {
	if d.cursor <= 0 {
		return
	}
	start := d.lineStart()
	if start >= d.cursor {
		return
	}
	d.buf = append(d.buf[:start], d.buf[d.cursor:]...)
	d.cursor = start
	d.dirty = true
}

func (d *docBuffer) KillLineEnd() {
	if d.cursor >= len(d.buf) {
		return
	}
	end := d.lineEnd()
	if end <= d.cursor {
		return
	}
	d.buf = append(d.buf[:d.cursor], d.buf[end:]...)
	d.dirty = true
}

// Lines splits the buffer for rendering. An empty buffer is one empty line.
func (d *docBuffer) Lines() []string {
	return strings.Split(string(d.buf), "\n")
}

// CursorLineCol reports the zero-based cursor position.
func (d *docBuffer) CursorLineCol() (int, int) {
	line := 0
	col := 0
	for i := 0; i < d.cursor && i < len(d.buf); i++ {
		if d.buf[i] == '\n' {
			line++
			col = 0
			continue
		}
		col++
	}
	return line, col
}

func (d *docBuffer) lineStart() int {
	for i := d.cursor - 1; i >= 0; i-- {
		if d.buf[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

func (d *docBuffer) lineEnd() int {
	for i := d.cursor; i < len(d.buf); i++ {
		if d.buf[i] == '\n' {
			return i
		}
	}
	return len(d.buf)
}

func isWordSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
