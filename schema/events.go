package schema

// RequestState tracks a proofreading request through its lifecycle. States
// only ever advance; a terminated request never transitions again.
type RequestState string

const (
	// RequestIdle indicates a context that has not started fetching.
	RequestIdle RequestState = "idle"
	// RequestFetchingContent indicates the surface content fetch is pending.
	RequestFetchingContent RequestState = "fetching-content"
	// RequestAwaitingCompletion indicates the completion call is in flight.
	RequestAwaitingCompletion RequestState = "awaiting-completion"
	// RequestDispatching indicates the terminal effect is being applied.
	RequestDispatching RequestState = "dispatching"
	// RequestTerminated indicates teardown ran and the context is dead.
	RequestTerminated RequestState = "terminated"
)

// RequestOutcome classifies how a request ended.
type RequestOutcome string

const (
	// OutcomeInserted means completed text replaced surface content.
	OutcomeInserted RequestOutcome = "inserted"
	// OutcomeEmpty means the completion service returned no text.
	OutcomeEmpty RequestOutcome = "empty"
	// OutcomeAPIError means the completion call failed and was alerted.
	OutcomeAPIError RequestOutcome = "api-error"
	// OutcomeHostError means a host capability failed; aborted silently.
	OutcomeHostError RequestOutcome = "host-error"
	// OutcomeCanceled means the surface detached or the context was canceled.
	OutcomeCanceled RequestOutcome = "canceled"
)

// RequestEvent reports a request lifecycle transition.
type RequestEvent struct {
	Surface SurfaceID
	Request RequestID
	Prompt  PromptID
	Model   ModelID
	State   RequestState
	Outcome RequestOutcome
	Err     string
}

// RegistryEvent reports a registry rebuild.
type RegistryEvent struct {
	Prompts  int
	Models   int
	Selected ModelID
}
