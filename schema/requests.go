package schema

// Surface lifecycle.

// AttachSurfaceRequest describes a request to attach an editor surface.
type AttachSurfaceRequest struct {
	Surface SurfaceID
}

// AttachSurfaceResponse reports the attach result and current registry.
type AttachSurfaceResponse struct {
	Rendered bool
	Registry RegistrySnapshot
}

// DetachSurfaceRequest describes a request to detach an editor surface.
type DetachSurfaceRequest struct {
	Surface SurfaceID
}

// DetachSurfaceResponse reports how many outstanding requests were canceled.
type DetachSurfaceResponse struct {
	Canceled int
}

// Configuration and registry.

// ReloadRequest describes a request to reload configuration and rebuild the
// registry.
type ReloadRequest struct{}

// ReloadResponse reports the rebuilt registry.
type ReloadResponse struct {
	Registry RegistrySnapshot
}

// RefreshModelsRequest describes a request to refresh the model list from
// the completion service.
type RefreshModelsRequest struct{}

// RefreshModelsResponse reports the models and rebuilt registry.
type RefreshModelsResponse struct {
	Models   []ModelID
	Registry RegistrySnapshot
}

// RegistryRequest describes a request for the current registry snapshot.
type RegistryRequest struct{}

// RegistryResponse reports the current registry snapshot.
type RegistryResponse struct {
	Registry RegistrySnapshot
}

// Activation.

// ActivateActionRequest describes activation of a registry entry on a surface.
type ActivateActionRequest struct {
	Surface SurfaceID
	Action  ActionID
	Mode    ContentMode
}

// ActivateActionResponse reports what the activation did. Kind mirrors the
// activated entry: prompt activations carry the request id, dropdown
// activations carry the transient menu choices, model activations carry the
// newly selected model.
type ActivateActionResponse struct {
	Kind    ActionKind
	Request RequestID
	Choices []PromptChoice
	Model   ModelID
}

// Model selection.

// SelectModelRequest describes a request to switch the completion model.
type SelectModelRequest struct {
	Model ModelID
}

// SelectModelResponse reports the selection, any persistence failure, and
// the rebuilt registry. PersistErr is informational; the selection holds
// regardless.
type SelectModelResponse struct {
	Model      ModelID
	PersistErr string
	Registry   RegistrySnapshot
}

// Introspection.

// ActiveRequestsRequest describes a request to list outstanding requests.
// An empty Surface lists all surfaces.
type ActiveRequestsRequest struct {
	Surface SurfaceID
}

// ActiveRequestsResponse reports outstanding request snapshots.
type ActiveRequestsResponse struct {
	Requests []RequestSnapshot
}
