// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Parameter resolution errors
const (
	ErrCodeUnknownField          ErrorCode = "UNKNOWN_FIELD"
	ErrCodeEmptyParameterSet     ErrorCode = "EMPTY_PARAMETER_SET"
	ErrCodeUngroundedValue       ErrorCode = "UNGROUNDED_VALUE"
	ErrCodeCardinality           ErrorCode = "CARDINALITY_VIOLATION"
	ErrCodeInvalidFacet          ErrorCode = "INVALID_FACET"
	ErrCodeAmbiguousResolution   ErrorCode = "AMBIGUOUS_RESOLUTION"
	ErrCodeUnresolvedMention     ErrorCode = "UNRESOLVED_MENTION"
	ErrCodeLookupTimeout         ErrorCode = "LOOKUP_TIMEOUT"
	ErrCodeClarificationRequired ErrorCode = "CLARIFICATION_REQUIRED"
	ErrCodeInvalidOperation      ErrorCode = "INVALID_OPERATION"
)

// Collaborator errors
const (
	ErrCodeExtractionFailed      ErrorCode = "EXTRACTION_FAILED"
	ErrCodeExtractionTimeout     ErrorCode = "EXTRACTION_TIMEOUT"
	ErrCodeGBIFRequestFailed     ErrorCode = "GBIF_REQUEST_FAILED"
	ErrCodeGBIFTimeout           ErrorCode = "GBIF_TIMEOUT"
	ErrCodeBoundaryLookupFailed  ErrorCode = "BOUNDARY_LOOKUP_FAILED"
	ErrCodeArtifactPublishFailed ErrorCode = "ARTIFACT_PUBLISH_FAILED"
	ErrCodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewClarificationRequiredError is thrown when the engine stops at a clarification.
// Not retryable: only a new request from the caller can move it forward.
func NewClarificationRequiredError(reason string, fields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClarificationRequired,
		Message:   "Request needs clarification",
		Details:   reason,
		Retryable: false,
		Metadata: map[string]interface{}{
			"unresolvedFields": fields,
		},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidOperationError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidOperation,
		Message:   "Unsupported operation",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExtractionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailed,
		Message:   "Parameter extraction API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewExtractionTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionTimeout,
		Message:   "Parameter extraction API timeout",
		Details:   "API call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGBIFRequestFailedError carries the attempted query so the failure can be audited.
func NewGBIFRequestFailedError(apiURL string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGBIFRequestFailed,
		Message:   "GBIF API request failed",
		Details:   err.Error(),
		Retryable: true,
		Metadata: map[string]interface{}{
			"apiUrl": apiURL,
		},
		Timestamp: time.Now().UTC(),
	}
}

func NewGBIFTimeoutError(apiURL string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGBIFTimeout,
		Message:   "GBIF API timeout",
		Details:   fmt.Sprintf("url: %s", apiURL),
		Retryable: true,
		Metadata: map[string]interface{}{
			"apiUrl": apiURL,
		},
		Timestamp: time.Now().UTC(),
	}
}

func NewBoundaryLookupFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBoundaryLookupFailed,
		Message:   "Administrative boundary lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewArtifactPublishFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeArtifactPublishFailed,
		Message:   "Artifact publish failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. Validation failures
// that survived the extraction retry bound all surface as a clarification.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeUnknownField:          "CLARIFICATION_REQUIRED",
	ErrCodeEmptyParameterSet:     "CLARIFICATION_REQUIRED",
	ErrCodeUngroundedValue:       "CLARIFICATION_REQUIRED",
	ErrCodeCardinality:           "CLARIFICATION_REQUIRED",
	ErrCodeInvalidFacet:          "CLARIFICATION_REQUIRED",
	ErrCodeAmbiguousResolution:   "CLARIFICATION_REQUIRED",
	ErrCodeUnresolvedMention:     "CLARIFICATION_REQUIRED",
	ErrCodeClarificationRequired: "CLARIFICATION_REQUIRED",
	ErrCodeLookupTimeout:         "LOOKUP_TIMEOUT",
	ErrCodeInvalidOperation:      "INVALID_OPERATION",
	ErrCodeExtractionFailed:      "EXTRACTION_FAILED",
	ErrCodeExtractionTimeout:     "EXTRACTION_TIMEOUT",
	ErrCodeGBIFRequestFailed:     "GBIF_REQUEST_FAILED",
	ErrCodeGBIFTimeout:           "GBIF_TIMEOUT",
	ErrCodeBoundaryLookupFailed:  "BOUNDARY_LOOKUP_FAILED",
	ErrCodeArtifactPublishFailed: "ARTIFACT_PUBLISH_FAILED",
}

// GetRetryCount returns the job retry count Camunda should use for the code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeExtractionFailed,
		ErrCodeGBIFRequestFailed,
		ErrCodeBoundaryLookupFailed,
		ErrCodeArtifactPublishFailed:
		return 3

	case ErrCodeExtractionTimeout,
		ErrCodeGBIFTimeout:
		return 2

	case ErrCodeLookupTimeout:
		return 1

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "EXTRACTION"):
		return "AI"
	case strings.Contains(codeStr, "GBIF"), strings.Contains(codeStr, "LOOKUP"):
		return "EXTERNAL"
	case strings.Contains(codeStr, "RESOLUTION"), strings.Contains(codeStr, "MENTION"), strings.Contains(codeStr, "CLARIFICATION"):
		return "RESOLUTION"
	case strings.Contains(codeStr, "FIELD"), strings.Contains(codeStr, "PARAMETER"),
		strings.Contains(codeStr, "UNGROUNDED"), strings.Contains(codeStr, "FACET"),
		strings.Contains(codeStr, "CARDINALITY"), strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "ARTIFACT"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
