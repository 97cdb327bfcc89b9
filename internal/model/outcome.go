// Package model defines the core domain models used throughout the application.
package model

// OutcomeStatus is the terminal state of a pipeline invocation.
type OutcomeStatus string

// Pipeline outcome statuses.
const (
	OutcomeAccepted          OutcomeStatus = "ACCEPTED"
	OutcomeNeedsConfirmation OutcomeStatus = "NEEDS_CONFIRMATION"
	OutcomeRejected          OutcomeStatus = "REJECTED"
)

// RejectReason is a machine-readable reason code for a rejected invocation.
type RejectReason string

// Reject reason codes.
const (
	RejectUnsupportedModality   RejectReason = "unsupported_modality"
	RejectTranscriptionFailure  RejectReason = "transcription_failure"
	RejectExtractionUnavailable RejectReason = "extraction_unavailable"
	RejectNoExpenseFound        RejectReason = "no_expense_found"
	RejectCanceled              RejectReason = "canceled"
)

// PipelineOutcome is the terminal value returned to the external caller.
// Exactly one of Resolved or Candidate is populated depending on Status.
type PipelineOutcome struct {
	InvocationID string
	Status       OutcomeStatus
	Resolved     *ResolvedExpense
	Candidate    *CandidateExpense
	// AmbiguousFields names the fields the caller must confirm when
	// Status is OutcomeNeedsConfirmation.
	AmbiguousFields []string
	Reason          RejectReason
	Message         string
}

// UserProfile carries per-user settings read as a snapshot at
// invocation start.
type UserProfile struct {
	UserID              string
	HomeCurrency        string
	Locale              string
	ConfidenceThreshold float64 // 0 means "use the configured default"
}
