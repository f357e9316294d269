// internal/common/errors/errors_test.go
package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionError_UnwrapsToSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		code     ErrorCode
	}{
		{"unknown field", NewUnknownFieldError("colour"), ErrUnknownField, ErrCodeUnknownField},
		{"empty set", NewEmptyParameterSetError(), ErrEmptyParameterSet, ErrCodeEmptyParameterSet},
		{"ungrounded", NewUngroundedValueError("decimalLatitude", "-40,-30"), ErrUngroundedValue, ErrCodeUngroundedValue},
		{"cardinality", NewCardinalityError("q", 2), ErrCardinality, ErrCodeCardinality},
		{"facet", NewInvalidFacetError("limit", "control field"), ErrInvalidFacet, ErrCodeInvalidFacet},
		{"ambiguous", NewAmbiguousResolutionError("genusKey", "cedar", "2 candidates"), ErrAmbiguousResolution, ErrCodeAmbiguousResolution},
		{"unresolved", NewUnresolvedMentionError("speciesKey", "blue wolf", "no match"), ErrUnresolvedMention, ErrCodeUnresolvedMention},
		{"timeout", NewLookupTimeoutError("Puma concolor"), ErrLookupTimeout, ErrCodeLookupTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("validate: %w", tt.err)
			assert.True(t, stderrors.Is(wrapped, tt.sentinel))

			var resErr *ResolutionError
			require.True(t, stderrors.As(wrapped, &resErr))
			assert.Equal(t, tt.code, resErr.Code())
		})
	}
}

func TestResolutionError_Message(t *testing.T) {
	err := NewUngroundedValueError("decimalLatitude", "-40.5")
	assert.Equal(t, `UNGROUNDED_VALUE: field decimalLatitude value "-40.5": value does not appear in the request text`, err.Error())
}

func TestIsRecoverableByExtraction(t *testing.T) {
	assert.True(t, IsRecoverableByExtraction(NewUnknownFieldError("x")))
	assert.True(t, IsRecoverableByExtraction(NewEmptyParameterSetError()))
	assert.True(t, IsRecoverableByExtraction(NewUngroundedValueError("taxonKey", "1")))
	assert.True(t, IsRecoverableByExtraction(NewCardinalityError("q", 3)))
	assert.True(t, IsRecoverableByExtraction(NewInvalidFacetError("offset", "control field")))

	assert.False(t, IsRecoverableByExtraction(NewAmbiguousResolutionError("genusKey", "cedar", "")))
	assert.False(t, IsRecoverableByExtraction(NewLookupTimeoutError("x")))
	assert.False(t, IsRecoverableByExtraction(stderrors.New("boom")))
}

func TestFromResolutionError(t *testing.T) {
	t.Run("resolution error keeps field scope", func(t *testing.T) {
		stdErr := FromResolutionError(NewUngroundedValueError("taxonKey", "212"))

		assert.Equal(t, ErrCodeUngroundedValue, stdErr.Code)
		assert.False(t, stdErr.Retryable)
		assert.Equal(t, "taxonKey", stdErr.Metadata["field"])
		assert.Equal(t, "212", stdErr.Metadata["value"])
	})

	t.Run("standard error passes through", func(t *testing.T) {
		original := NewGBIFTimeoutError("https://api.gbif.org/v1/occurrence/search")
		assert.Same(t, original, FromResolutionError(fmt.Errorf("execute: %w", original)))
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		stdErr := FromResolutionError(stderrors.New("boom"))
		assert.Equal(t, ErrCodeInternal, stdErr.Code)
		assert.Equal(t, "boom", stdErr.Details)
	})
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name         string
		stdErr       *StandardError
		expectedCode string
		retries      int
	}{
		{
			name:         "validation failure surfaces as clarification",
			stdErr:       FromResolutionError(NewInvalidFacetError("limit", "control field")),
			expectedCode: "CLARIFICATION_REQUIRED",
			retries:      0,
		},
		{
			name:         "gbif failure is retried",
			stdErr:       NewGBIFRequestFailedError("https://api.gbif.org/v1/species/search", stderrors.New("status 503")),
			expectedCode: "GBIF_REQUEST_FAILED",
			retries:      3,
		},
		{
			name:         "extraction timeout gets partial retry",
			stdErr:       NewExtractionTimeoutError(),
			expectedCode: "EXTRACTION_TIMEOUT",
			retries:      2,
		},
		{
			name:         "non retryable flag wins",
			stdErr:       &StandardError{Code: ErrCodeGBIFRequestFailed, Message: "bad request", Retryable: false},
			expectedCode: "GBIF_REQUEST_FAILED",
			retries:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmnErr := ConvertToBPMNError(tt.stdErr)
			assert.Equal(t, tt.expectedCode, bpmnErr.Code)
			assert.Equal(t, tt.retries, bpmnErr.Retries)
			assert.Equal(t, string(tt.stdErr.Code), bpmnErr.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestConvertToBPMNError_CarriesMetadata(t *testing.T) {
	stdErr := NewClarificationRequiredError("ambiguous genus", []string{"genusKey"})
	vars := ConvertToBPMNError(stdErr).ToErrorVariables()

	assert.Equal(t, "CLARIFICATION_REQUIRED", vars["errorCode"])
	assert.Equal(t, []string{"genusKey"}, vars["unresolvedFields"])
	assert.Equal(t, "ambiguous genus", vars["errorDetails"])
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeExtractionFailed))
	assert.Equal(t, "EXTERNAL", GetErrorCategory(ErrCodeGBIFTimeout))
	assert.Equal(t, "EXTERNAL", GetErrorCategory(ErrCodeLookupTimeout))
	assert.Equal(t, "RESOLUTION", GetErrorCategory(ErrCodeAmbiguousResolution))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeUngroundedValue))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidFacet))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeArtifactPublishFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
