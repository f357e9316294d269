// internal/common/errors/resolution.go
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Sentinels for the resolution engine. Match with errors.Is.
var (
	ErrUnknownField        = stderrors.New(string(ErrCodeUnknownField))
	ErrEmptyParameterSet   = stderrors.New(string(ErrCodeEmptyParameterSet))
	ErrUngroundedValue     = stderrors.New(string(ErrCodeUngroundedValue))
	ErrCardinality         = stderrors.New(string(ErrCodeCardinality))
	ErrInvalidFacet        = stderrors.New(string(ErrCodeInvalidFacet))
	ErrAmbiguousResolution = stderrors.New(string(ErrCodeAmbiguousResolution))
	ErrUnresolvedMention   = stderrors.New(string(ErrCodeUnresolvedMention))
	ErrLookupTimeout       = stderrors.New(string(ErrCodeLookupTimeout))
)

var sentinelCodes = map[error]ErrorCode{
	ErrUnknownField:        ErrCodeUnknownField,
	ErrEmptyParameterSet:   ErrCodeEmptyParameterSet,
	ErrUngroundedValue:     ErrCodeUngroundedValue,
	ErrCardinality:         ErrCodeCardinality,
	ErrInvalidFacet:        ErrCodeInvalidFacet,
	ErrAmbiguousResolution: ErrCodeAmbiguousResolution,
	ErrUnresolvedMention:   ErrCodeUnresolvedMention,
	ErrLookupTimeout:       ErrCodeLookupTimeout,
}

// ResolutionError is a field-scoped engine failure.
type ResolutionError struct {
	Kind   error
	Field  string
	Value  string
	Detail string
}

func (e *ResolutionError) Error() string {
	msg := e.Kind.Error()
	if e.Field != "" {
		msg += ": field " + e.Field
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" value %q", e.Value)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Kind
}

// Code returns the error code of the wrapped sentinel.
func (e *ResolutionError) Code() ErrorCode {
	if code, ok := sentinelCodes[e.Kind]; ok {
		return code
	}
	return ErrCodeInternal
}

func NewUnknownFieldError(field string) *ResolutionError {
	return &ResolutionError{Kind: ErrUnknownField, Field: field, Detail: "not a recognised parameter for this operation"}
}

func NewEmptyParameterSetError() *ResolutionError {
	return &ResolutionError{Kind: ErrEmptyParameterSet, Detail: "no parameter carries a value"}
}

func NewUngroundedValueError(field, value string) *ResolutionError {
	return &ResolutionError{Kind: ErrUngroundedValue, Field: field, Value: value, Detail: "value does not appear in the request text"}
}

func NewCardinalityError(field string, count int) *ResolutionError {
	return &ResolutionError{Kind: ErrCardinality, Field: field, Detail: fmt.Sprintf("single-valued field has %d values", count)}
}

func NewInvalidFacetError(facet, detail string) *ResolutionError {
	return &ResolutionError{Kind: ErrInvalidFacet, Field: "facet", Value: facet, Detail: detail}
}

func NewAmbiguousResolutionError(field, term, detail string) *ResolutionError {
	return &ResolutionError{Kind: ErrAmbiguousResolution, Field: field, Value: term, Detail: detail}
}

func NewUnresolvedMentionError(field, term, detail string) *ResolutionError {
	return &ResolutionError{Kind: ErrUnresolvedMention, Field: field, Value: term, Detail: detail}
}

func NewLookupTimeoutError(term string) *ResolutionError {
	return &ResolutionError{Kind: ErrLookupTimeout, Value: term, Detail: "name lookup timed out"}
}

// IsRecoverableByExtraction reports whether re-running the extraction step with the
// error as feedback can fix it.
func IsRecoverableByExtraction(err error) bool {
	return stderrors.Is(err, ErrUnknownField) ||
		stderrors.Is(err, ErrEmptyParameterSet) ||
		stderrors.Is(err, ErrUngroundedValue) ||
		stderrors.Is(err, ErrCardinality) ||
		stderrors.Is(err, ErrInvalidFacet)
}

// FromResolutionError converts an engine error into a StandardError. Other errors are
// returned as INTERNAL_ERROR.
func FromResolutionError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}

	var resErr *ResolutionError
	if !stderrors.As(err, &resErr) {
		return NewInternalError(err)
	}

	metadata := map[string]interface{}{}
	if resErr.Field != "" {
		metadata["field"] = resErr.Field
	}
	if resErr.Value != "" {
		metadata["value"] = resErr.Value
	}

	code := resErr.Code()
	return &StandardError{
		Code:      code,
		Message:   resErr.Error(),
		Details:   resErr.Detail,
		Retryable: IsRetryableErrorCode(code),
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}
