// internal/models/outcome.go
package models

type OutcomeKind string

const (
	OutcomeProceed             OutcomeKind = "proceed"
	OutcomeProceedWithFallback OutcomeKind = "proceed_with_fallback"
	OutcomeClarify             OutcomeKind = "clarify"
)

// ClarificationRequest asks the caller for the fields the engine would not guess.
type ClarificationRequest struct {
	Needed           bool     `json:"needed"`
	UnresolvedFields []string `json:"unresolvedFields"`
	Reason           string   `json:"reason"`
}

// DegradedField records a fallback that was applied instead of blocking.
type DegradedField struct {
	Field string `json:"field"`
	Note  string `json:"note"`
}
