// internal/engine/facet/guard.go
package facet

import (
	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/engine/schema"
	"gbif-workers/internal/models"
)

// Field is the parameter that carries the grouping dimensions.
const Field = "facet"

// Check rejects facet dimensions that cannot be used for grouping. A facet must be an
// allowed field of the operation and must not be one of its control fields
// (pagination, limits, facet paging).
func Check(d *schema.Descriptor, facets []string) error {
	if !d.Aggregation() {
		if len(facets) > 0 {
			return apperrors.NewInvalidFacetError(facets[0], "operation "+string(d.Operation())+" does not aggregate")
		}
		return nil
	}

	for _, f := range facets {
		switch {
		case f == "":
			return apperrors.NewInvalidFacetError(f, "empty facet name")
		case d.IsControl(f):
			return apperrors.NewInvalidFacetError(f, "control fields are not grouping dimensions")
		case !d.Allows(f):
			return apperrors.NewInvalidFacetError(f, "not a field of operation "+string(d.Operation()))
		}
	}
	return nil
}

// CheckParams runs Check over the facet values of params.
func CheckParams(d *schema.Descriptor, params models.ParameterSet) error {
	return Check(d, params.Get(Field))
}

// Valid returns the facets Check would accept, in the order given.
func Valid(d *schema.Descriptor) []string {
	if !d.Aggregation() {
		return nil
	}
	var out []string
	for _, f := range d.AllowedFields() {
		if !d.IsControl(f) {
			out = append(out, f)
		}
	}
	return out
}
