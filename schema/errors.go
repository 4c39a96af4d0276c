package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmptyConfiguration indicates a registry build with no prompts.
	ErrEmptyConfiguration = errors.New("no prompts configured")
	// ErrNoPrompts indicates the prompt file yielded no usable prompts.
	ErrNoPrompts = errors.New("no prompts loaded")
	// ErrNoAPIKey indicates no API key is available from any source.
	ErrNoAPIKey = errors.New("no API key configured")
	// ErrActionNotFound indicates an unknown action id.
	ErrActionNotFound = errors.New("action not found")
	// ErrActionNotInvokable indicates activation of a menu header entry.
	ErrActionNotInvokable = errors.New("action is not invokable")
	// ErrSurfaceNotFound indicates an unattached surface id.
	ErrSurfaceNotFound = errors.New("surface not attached")
	// ErrSurfaceBusy indicates the surface already has an outstanding request.
	ErrSurfaceBusy = errors.New("proofreading already in progress")
	// ErrUnknownModel indicates a model outside the available set.
	ErrUnknownModel = errors.New("unknown model")
	// ErrInvalidModel indicates an invalid model identifier.
	ErrInvalidModel = errors.New("invalid model")
	// ErrEmptyContent indicates the surface had no content to proofread.
	ErrEmptyContent = errors.New("no content to proofread")
	// ErrPromptNotFound indicates an action whose prompt is missing from
	// the registry's prompt snapshot.
	ErrPromptNotFound = errors.New("prompt not found for action")
	// ErrConfigUnavailable indicates no configuration source is wired.
	ErrConfigUnavailable = errors.New("config source not configured")
	// ErrHostUnavailable indicates no host surface is wired.
	ErrHostUnavailable = errors.New("host surface not configured")
	// ErrCompleterUnavailable indicates no completion service is wired.
	ErrCompleterUnavailable = errors.New("completion service not configured")
)

// APIError carries a completion service failure. Message is shown to the
// user verbatim.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

// AsAPIError unwraps err to an APIError if one is in its chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
