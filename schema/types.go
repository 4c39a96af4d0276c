package schema

// PromptID identifies a proofreading prompt.
type PromptID string

// ActionID identifies an entry in the command registry.
type ActionID string

// ModelID identifies an LLM model.
type ModelID string

// SurfaceID identifies an editor surface attached to the service.
type SurfaceID string

// RequestID identifies a single proofreading invocation.
type RequestID string

// AlertTag classifies host alerts so surfaces can route or style them.
type AlertTag string

// Prompt is one proofreading instruction loaded from the prompt file.
type Prompt struct {
	ID   PromptID
	Name string
	Text string
}

// PromptList is the ordered set of configured prompts.
type PromptList []Prompt

// Find returns the prompt with the given id and whether it exists.
func (l PromptList) Find(id PromptID) (Prompt, bool) {
	for _, p := range l {
		if p.ID == id {
			return p, true
		}
	}
	return Prompt{}, false
}

// ModelState holds the available completion models and the active selection.
type ModelState struct {
	Available []ModelID
	Selected  ModelID
}

// Has reports whether model is in the available set.
func (s ModelState) Has(model ModelID) bool {
	for _, m := range s.Available {
		if m == model {
			return true
		}
	}
	return false
}

// ActionKind discriminates registry entries. Dispatch is always on the kind
// tag; action id strings are opaque to callers.
type ActionKind string

const (
	// ActionPrompt invokes one proofreading prompt.
	ActionPrompt ActionKind = "prompt"
	// ActionMenu is the top-level menu header entry.
	ActionMenu ActionKind = "menu"
	// ActionDropdown is the toolbar dropdown entry.
	ActionDropdown ActionKind = "dropdown"
	// ActionModelMenu is the model submenu header entry.
	ActionModelMenu ActionKind = "model-menu"
	// ActionModel selects a completion model.
	ActionModel ActionKind = "model"
)

// ActionDescriptor is one renderable, dispatchable registry entry.
type ActionDescriptor struct {
	ID       ActionID
	Kind     ActionKind
	Prompt   PromptID
	Model    ModelID
	Label    string
	Tooltip  string
	IconHint string
}

// ActionTable is the ordered command registry: one entry per prompt, the
// menu, dropdown, and model-menu headers, then one entry per model.
type ActionTable []ActionDescriptor

// Find returns the descriptor with the given id and whether it exists.
func (t ActionTable) Find(id ActionID) (ActionDescriptor, bool) {
	for _, d := range t {
		if d.ID == id {
			return d, true
		}
	}
	return ActionDescriptor{}, false
}

// Well-known registry entry ids.
const (
	// ActionIDMenu is the top-level menu entry id.
	ActionIDMenu ActionID = "ai-menu"
	// ActionIDDropdown is the toolbar dropdown entry id.
	ActionIDDropdown ActionID = "ai-proofread-dropdown"
	// ActionIDModelMenu is the model submenu entry id.
	ActionIDModelMenu ActionID = "ai-model-menu"
)

// ContentMode selects what part of the surface a request reads.
type ContentMode string

const (
	// ContentDocument reads the whole editable document.
	ContentDocument ContentMode = "document"
	// ContentSelection reads the current selection.
	ContentSelection ContentMode = "selection"
)

// InsertMode selects how completed text replaces surface content.
type InsertMode string

const (
	// InsertReplaceDocument replaces the whole editable document.
	InsertReplaceDocument InsertMode = "replace-document"
	// InsertReplaceSelection replaces the current selection.
	InsertReplaceSelection InsertMode = "replace-selection"
)

// InsertModeFor maps a content mode to the matching insert mode.
func InsertModeFor(mode ContentMode) InsertMode {
	if mode == ContentSelection {
		return InsertReplaceSelection
	}
	return InsertReplaceDocument
}

// PromptChoice is one entry of the transient dropdown menu.
type PromptChoice struct {
	Action ActionID
	Label  string
}
