// internal/engine/negotiate/negotiator.go
package negotiate

import (
	"errors"
	"fmt"
	"strings"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/engine/schema"
	"gbif-workers/internal/models"
)

// Assessment is everything known about one request cycle when the engine must decide.
type Assessment struct {
	Descriptor       *schema.Descriptor
	Params           models.ParameterSet
	// ValidationErr is the last validation failure once retries are exhausted.
	ValidationErr    error
	Attempts         int
	// Unresolved lists identifier fields whose mention was ambiguous or not found,
	// with one error per mention in ResolutionErrors.
	Unresolved       []string
	ResolutionErrors []error
	Degraded         []models.DegradedField
}

// Outcome is the terminal decision. Clarification is set only for OutcomeClarify, in
// which case Params is the degraded set kept for audit and must not be executed.
type Outcome struct {
	Kind          models.OutcomeKind           `json:"kind"`
	Params        models.ParameterSet          `json:"params"`
	Degraded      []models.DegradedField       `json:"degraded,omitempty"`
	Clarification *models.ClarificationRequest `json:"clarification,omitempty"`
}

func (o Outcome) Executable() bool {
	return o.Kind != models.OutcomeClarify
}

// Decide is a pure function of the assessment.
func Decide(a Assessment) Outcome {
	params := a.Params.Clone()
	if params == nil {
		params = models.ParameterSet{}
	}

	if a.ValidationErr != nil {
		return clarify(params, a.Degraded, validationFields(a), validationReason(a))
	}

	if len(a.Unresolved) > 0 {
		return clarify(params, a.Degraded, a.Unresolved, resolutionReason(a))
	}

	if a.Descriptor != nil {
		var missing []string
		for _, field := range a.Descriptor.RequiredFields() {
			if !params.Has(field) {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			reason := fmt.Sprintf("%s requires %s, which the request does not specify", a.Descriptor.Operation(), strings.Join(missing, ", "))
			return clarify(params, a.Degraded, missing, reason)
		}
	}

	if len(a.Degraded) > 0 {
		return Outcome{
			Kind:     models.OutcomeProceedWithFallback,
			Params:   params,
			Degraded: append([]models.DegradedField(nil), a.Degraded...),
		}
	}
	return Outcome{Kind: models.OutcomeProceed, Params: params}
}

func clarify(params models.ParameterSet, degraded []models.DegradedField, fields []string, reason string) Outcome {
	return Outcome{
		Kind:     models.OutcomeClarify,
		Params:   params,
		Degraded: append([]models.DegradedField(nil), degraded...),
		Clarification: &models.ClarificationRequest{
			Needed:           true,
			UnresolvedFields: dedupe(fields),
			Reason:           reason,
		},
	}
}

func validationFields(a Assessment) []string {
	var resErr *apperrors.ResolutionError
	if errors.As(a.ValidationErr, &resErr) && resErr.Field != "" {
		return []string{resErr.Field}
	}
	if a.Descriptor != nil {
		if required := a.Descriptor.RequiredFields(); len(required) > 0 {
			return required
		}
	}
	return []string{"parameters"}
}

func validationReason(a Assessment) string {
	var resErr *apperrors.ResolutionError
	detail := a.ValidationErr.Error()
	if errors.As(a.ValidationErr, &resErr) {
		switch {
		case errors.Is(resErr, apperrors.ErrUngroundedValue):
			detail = fmt.Sprintf("%s value %q does not appear in the request", resErr.Field, resErr.Value)
		case errors.Is(resErr, apperrors.ErrUnknownField):
			detail = fmt.Sprintf("%s is not a recognised filter", resErr.Field)
		case errors.Is(resErr, apperrors.ErrEmptyParameterSet):
			detail = "no usable filter could be extracted"
		case errors.Is(resErr, apperrors.ErrInvalidFacet):
			detail = fmt.Sprintf("%q cannot be used to group results", resErr.Value)
		}
	}
	if a.Attempts > 1 {
		return fmt.Sprintf("%s (after %d attempts)", detail, a.Attempts)
	}
	return detail
}

func resolutionReason(a Assessment) string {
	if len(a.ResolutionErrors) == 0 {
		return fmt.Sprintf("could not resolve %s", strings.Join(a.Unresolved, ", "))
	}
	parts := make([]string, 0, len(a.ResolutionErrors))
	for _, err := range a.ResolutionErrors {
		var resErr *apperrors.ResolutionError
		if !errors.As(err, &resErr) {
			parts = append(parts, err.Error())
			continue
		}
		verb := "was not found"
		if errors.Is(resErr, apperrors.ErrAmbiguousResolution) {
			verb = "is ambiguous"
		}
		part := fmt.Sprintf("%s: %q %s", resErr.Field, resErr.Value, verb)
		if resErr.Detail != "" {
			part += " (" + resErr.Detail + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "; ")
}

func dedupe(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
