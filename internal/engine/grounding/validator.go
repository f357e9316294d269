// Package grounding rejects extracted parameters that the request text does not
// support.
package grounding

import (
	"sort"
	"strings"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/engine/schema"
	"gbif-workers/internal/models"
)

// Validate checks params against the operation schema and the request text. Checks
// run in a fixed order and the first failure is returned as a *ResolutionError:
// unknown field, empty set, ungrounded high-risk value, then cardinality.
func Validate(d *schema.Descriptor, params models.ParameterSet, request string) error {
	fields := params.Fields()

	for _, field := range fields {
		if !d.Allows(field) {
			return apperrors.NewUnknownFieldError(field)
		}
	}

	if params.Populated() == 0 {
		return apperrors.NewEmptyParameterSetError()
	}

	normalizedRequest := Normalize(request)
	for _, field := range d.HighRiskFields() {
		for _, value := range params.Get(field) {
			v := Normalize(value)
			if v == "" || !containsNormalized(normalizedRequest, v) {
				return apperrors.NewUngroundedValueError(field, value)
			}
		}
	}

	for _, field := range fields {
		if n := len(params.Get(field)); n > 1 && d.CardinalityOf(field) == schema.Single {
			return apperrors.NewCardinalityError(field, n)
		}
	}

	return nil
}

// UngroundedFields lists every high-risk field holding a value absent from the
// request. Used for feedback when more than the first failure is useful.
func UngroundedFields(d *schema.Descriptor, params models.ParameterSet, request string) []string {
	normalizedRequest := Normalize(request)
	var out []string
	for _, field := range d.HighRiskFields() {
		for _, value := range params.Get(field) {
			v := Normalize(value)
			if v == "" || !containsNormalized(normalizedRequest, v) {
				out = append(out, field)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func containsNormalized(haystack, needle string) bool {
	return needle != "" && strings.Contains(haystack, needle)
}
