package schema

import "fmt"

// AlertProofreadingError tags completion failures surfaced as host alerts.
const AlertProofreadingError AlertTag = "ai:error-proofreading"

// NoticeEmptyResponse is shown when the completion service returns no text.
const NoticeEmptyResponse = "No response received from proofreading service"

// ProgressTitle titles the progress indicator on hosts that window it.
const ProgressTitle = "AI Proofreading"

// ProgressMessage renders the progress indicator text for a model.
func ProgressMessage(model ModelID) string {
	return fmt.Sprintf("Proofreading with %s may take a little longer. Please wait...", model)
}
