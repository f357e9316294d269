// internal/engine/geo/resolver.go
package geo

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gbif-workers/internal/common/metrics"
	"gbif-workers/internal/engine/schema"
	"gbif-workers/internal/models"
)

// BoundaryLookup resolves an address to the boundaries it could identify. The chain
// may stop short of the finest part; an empty chain means nothing resolved.
type BoundaryLookup interface {
	Lookup(ctx context.Context, loc models.Location) ([]models.Boundary, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Resolver struct {
	lookup BoundaryLookup
	logger Logger
}

func NewResolver(lookup BoundaryLookup, log Logger) *Resolver {
	return &Resolver{
		lookup: lookup,
		logger: log.With(map[string]interface{}{"component": "geo-resolution"}),
	}
}

// Resolve binds the most specific boundary that resolved and moves every finer
// address part to the fallback terms. A lookup failure is not fatal: all parts fall
// back to free text. Only cancellation of ctx is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, loc models.Location) (models.GeographicConstraint, error) {
	constraint := models.GeographicConstraint{Location: loc}
	parts := loc.Parts()
	if len(parts) == 0 {
		return constraint, nil
	}

	var chain []models.Boundary
	if r.lookup != nil {
		var err error
		chain, err = r.lookup.Lookup(ctx, loc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return constraint, ctxErr
			}
			r.logger.Warn("boundary lookup failed, using free text", map[string]interface{}{
				"location": describe(parts),
				"error":    err,
			})
			chain = nil
		}
	}

	chain = usable(chain)
	sort.SliceStable(chain, func(i, j int) bool { return chain[i].Level > chain[j].Level })
	constraint.Chain = chain

	bound := models.BoundaryLevel(-1)
	if active, ok := constraint.Active(); ok {
		bound = active.Level
		metrics.BoundaryLookups.WithLabelValues(active.Level.String(), "resolved").Inc()
	} else {
		metrics.BoundaryLookups.WithLabelValues("none", "unresolved").Inc()
	}

	for _, part := range parts {
		if part.Level > bound {
			constraint.FallbackTerms = append(constraint.FallbackTerms, part.Term)
		}
	}

	r.logger.Info("location resolved", map[string]interface{}{
		"location":  describe(parts),
		"chain":     len(chain),
		"fallbacks": len(constraint.FallbackTerms),
	})
	return constraint, nil
}

// ResolveAll resolves every non-empty location in order, one constraint each.
func (r *Resolver) ResolveAll(ctx context.Context, locs []models.Location) ([]models.GeographicConstraint, error) {
	var out []models.GeographicConstraint
	for _, loc := range locs {
		if loc.Empty() {
			continue
		}
		c, err := r.Resolve(ctx, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Apply writes the binding boundaries and the fallback terms into params and returns
// notes for every term that could not be bound. Boundaries of several locations share
// one field as list values. Fallback text is only written for a single location,
// since free text would exclude the records of every other location.
func Apply(d *schema.Descriptor, params models.ParameterSet, constraints ...models.GeographicConstraint) []models.DegradedField {
	var (
		degraded   []models.DegradedField
		fallback   []string
		level      = "any boundary"
		boundField string
		bound      []string
	)

	for _, c := range constraints {
		terms := append([]string(nil), c.FallbackTerms...)

		active, ok := c.Active()
		switch {
		case !ok:
		case !d.Allows(active.Field):
			degraded = append(degraded, models.DegradedField{
				Field: active.Field,
				Note:  fmt.Sprintf("%s has no %s filter, %q kept as free text", d.Operation(), active.Field, active.Name),
			})
			terms = append([]string{boundaryTerm(c.Location, active)}, terms...)
		case boundField != "" && active.Field != boundField:
			degraded = append(degraded, models.DegradedField{
				Field: active.Field,
				Note:  fmt.Sprintf("%q cannot be combined with the %s filter, not applied", active.Name, boundField),
			})
			continue
		default:
			boundField = active.Field
			if !contains(bound, active.ID) {
				bound = append(bound, active.ID)
			}
			level = active.Level.String() + " " + active.Name
		}

		if len(terms) == 0 {
			continue
		}
		if len(constraints) > 1 {
			degraded = append(degraded, models.DegradedField{
				Field: "location",
				Note:  fmt.Sprintf("%s not resolved to a boundary, dropped so the other locations still match", quoteAll(terms)),
			})
			continue
		}
		fallback = append(fallback, terms...)
	}

	if boundField != "" {
		params.Set(boundField, bound...)
	}
	if len(fallback) == 0 {
		return degraded
	}

	field := d.FallbackField()
	if field == "" {
		return append(degraded, models.DegradedField{
			Field: "location",
			Note:  fmt.Sprintf("%s has no free-text field, %s not applied", d.Operation(), quoteAll(fallback)),
		})
	}

	text := strings.Join(fallback, " ")
	if existing := strings.TrimSpace(params.First(field)); existing != "" {
		text = existing + " " + text
	}
	params.Set(field, text)

	return append(degraded, models.DegradedField{
		Field: field,
		Note:  fmt.Sprintf("%s not resolved below %s, kept as free text", quoteAll(fallback), level),
	})
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func usable(chain []models.Boundary) []models.Boundary {
	out := chain[:0:0]
	for _, b := range chain {
		if b.ID != "" && b.Field != "" {
			out = append(out, b)
		}
	}
	return out
}

func boundaryTerm(loc models.Location, b models.Boundary) string {
	for _, part := range loc.Parts() {
		if part.Level == b.Level {
			return part.Term
		}
	}
	return b.Name
}

func describe(parts []models.LocationPart) string {
	terms := make([]string, len(parts))
	for i, p := range parts {
		terms[i] = p.Level.String() + "=" + p.Term
	}
	return strings.Join(terms, ", ")
}

func quoteAll(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return strings.Join(quoted, ", ")
}
