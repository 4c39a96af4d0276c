package schema

// CompletionRequest carries one proofreading call to the completion service.
// Prompts is the prompt list snapshot taken when the request started; the
// service resolves Prompt against it, never against live configuration.
type CompletionRequest struct {
	Content string
	Prompt  PromptID
	Prompts PromptList
	APIKey  string
	Model   ModelID
}

// CompletionResponse carries the completed text. An empty Text with a nil
// error means the service answered with no usable content.
type CompletionResponse struct {
	Text string
}
