package schema

import "time"

// RegistrySnapshot is a read-only view of the built registry for transports
// and hosts. Rebuilds replace the whole snapshot; entries are never mutated
// in place.
type RegistrySnapshot struct {
	Table   ActionTable
	Layout  LayoutDocument
	Prompts PromptList
	Models  ModelState
}

// Empty reports whether no registry has been built yet.
func (s RegistrySnapshot) Empty() bool {
	return len(s.Table) == 0
}

// RequestSnapshot is a read-only view of an outstanding request.
type RequestSnapshot struct {
	ID        RequestID
	Surface   SurfaceID
	Prompt    PromptID
	Model     ModelID
	State     RequestState
	StartedAt time.Time
}
