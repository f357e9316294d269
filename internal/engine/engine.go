// Package engine turns a natural-language request into a validated GBIF query, or
// into a clarification request when it would otherwise have to guess.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/common/metrics"
	"gbif-workers/internal/common/observability"
	"gbif-workers/internal/engine/facet"
	"gbif-workers/internal/engine/geo"
	"gbif-workers/internal/engine/grounding"
	"gbif-workers/internal/engine/names"
	"gbif-workers/internal/engine/negotiate"
	"gbif-workers/internal/engine/query"
	"gbif-workers/internal/engine/schema"
	"gbif-workers/internal/models"
)

// ExtractionRequest is sent to the structured extraction service. Feedback carries
// the rejection of every earlier attempt of the same cycle.
type ExtractionRequest struct {
	Request   string           `json:"request"`
	Operation models.Operation `json:"operation"`
	Schema    schema.Summary   `json:"schema"`
	Attempt   int              `json:"attempt"`
	Feedback  []string         `json:"feedback,omitempty"`
}

// Extraction is the extractor's untrusted guess.
type Extraction struct {
	Params    models.ParameterSet  `json:"params"`
	Mentions  []models.NameMention `json:"mentions,omitempty"`
	Locations []models.Location    `json:"locations,omitempty"`
}

type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (*Extraction, error)
}

// PersonNormalizer maps a collector or determiner name to the forms the same person
// is recorded under.
type PersonNormalizer interface {
	Normalize(ctx context.Context, name string) (models.PersonMatch, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Request is one resolution cycle. When Params is set the extractor is skipped and
// the set is validated as given, which is how a caller answers a clarification.
// Mentions and Locations are known values; known locations replace the extracted ones.
type Request struct {
	Text      string
	Operation models.Operation
	Params    models.ParameterSet
	Mentions  []models.NameMention
	Locations []models.Location
}

// Result is the engine's boundary. Query is set only when the outcome is executable
// and every path parameter is known.
type Result struct {
	RequestID string                        `json:"requestId"`
	Operation models.Operation              `json:"operation"`
	Outcome   negotiate.Outcome             `json:"outcome"`
	Records   []models.ResolutionRecord     `json:"records,omitempty"`
	Geography []models.GeographicConstraint `json:"geography,omitempty"`
	People    []models.PersonMatch          `json:"people,omitempty"`
	Query     *query.Query                  `json:"query,omitempty"`
	Attempts  int                           `json:"attempts"`
}

type Config struct {
	MaxAttempts int
}

type Engine struct {
	registry  *schema.Registry
	extractor Extractor
	names     *names.Pipeline
	geo       *geo.Resolver
	people    PersonNormalizer
	policy    negotiate.RetryPolicy
	logger    Logger
}

type Option func(*Engine)

// WithPeople expands recordedBy and identifiedBy values to every recorded form of
// the person they name.
func WithPeople(people PersonNormalizer) Option {
	return func(e *Engine) {
		e.people = people
	}
}

func New(registry *schema.Registry, extractor Extractor, pipeline *names.Pipeline, resolver *geo.Resolver, config Config, log Logger, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		extractor: extractor,
		names:     pipeline,
		geo:       resolver,
		policy:    negotiate.RetryPolicy{MaxAttempts: config.MaxAttempts},
		logger:    log.With(map[string]interface{}{"component": "engine"}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve runs one request cycle. Validation and resolution problems never surface as
// errors; they end in a Clarify outcome. Errors are reserved for the operation being
// unknown, the extractor failing and ctx being cancelled.
func (e *Engine) Resolve(ctx context.Context, req Request) (*Result, error) {
	d, err := e.registry.Get(req.Operation)
	if err != nil {
		return nil, apperrors.NewInvalidOperationError(string(req.Operation))
	}

	result := &Result{
		RequestID: uuid.NewString(),
		Operation: req.Operation,
	}
	log := e.logger.With(map[string]interface{}{
		"requestId": result.RequestID,
		"operation": string(req.Operation),
	})

	ctx, span := observability.StartSpan(ctx, "engine.resolve",
		attribute.String("operation", string(req.Operation)),
		attribute.String("request_id", result.RequestID),
	)
	start := time.Now()
	defer func() {
		observability.EndSpan(span, err)
	}()

	cycle, err := e.extract(ctx, d, req, log)
	if err != nil {
		return nil, err
	}
	result.Attempts = cycle.attempts
	extraction := cycle.extraction

	if cycle.rejected != nil {
		result.Outcome = negotiate.Decide(negotiate.Assessment{
			Descriptor:    d,
			Params:        extraction.Params,
			ValidationErr: cycle.rejected,
			Attempts:      cycle.attempts,
		})
		e.finish(log, result, start)
		return result, nil
	}

	records, err := e.names.Resolve(ctx, req.Text, extraction.Mentions, req.Mentions)
	if err != nil {
		return nil, err
	}
	result.Records = records

	locations := extraction.Locations
	if len(req.Locations) > 0 {
		locations = req.Locations
	}
	constraints, err := e.geo.ResolveAll(ctx, locations)
	if err != nil {
		return nil, err
	}
	result.Geography = constraints

	params := extraction.Params.Clone()
	result.People, err = e.normalizePeople(ctx, d, params, log)
	if err != nil {
		return nil, err
	}

	folded := names.Fold(d, records)
	folded.Apply(params)

	degraded := append([]models.DegradedField(nil), folded.Degraded...)
	degraded = append(degraded, geo.Apply(d, params, constraints...)...)

	result.Outcome = negotiate.Decide(negotiate.Assessment{
		Descriptor:       d,
		Params:           params,
		Attempts:         cycle.attempts,
		Unresolved:       folded.Unresolved,
		ResolutionErrors: folded.Errors,
		Degraded:         degraded,
	})

	if result.Outcome.Executable() {
		q, qErr := query.Assemble(d, result.Outcome.Params)
		switch {
		case qErr == nil:
			result.Query = &q
		case errors.Is(qErr, query.ErrMissingPathParameter):
			log.Warn("query not assembled, path parameter unresolved", map[string]interface{}{"error": qErr})
		default:
			err = apperrors.NewInternalError(qErr)
			return nil, err
		}
	}

	e.finish(log, result, start)
	return result, nil
}

type extractCycle struct {
	extraction *Extraction
	attempts   int
	// rejected is the validation error that ended the loop, if any.
	rejected   error
}

// extract runs the validate-reject-retry loop until an extraction passes or the retry
// policy gives up.
func (e *Engine) extract(ctx context.Context, d *schema.Descriptor, req Request, log Logger) (extractCycle, error) {
	if req.Params != nil {
		ext := &Extraction{Params: req.Params.Clone()}
		return extractCycle{extraction: ext, attempts: 1, rejected: validate(d, ext.Params, req.Text)}, nil
	}
	if e.extractor == nil {
		return extractCycle{}, apperrors.NewExtractionFailedError(fmt.Errorf("no extractor configured"))
	}

	var feedback []string
	for attempt := 1; ; attempt++ {
		ext, err := e.extractor.Extract(ctx, ExtractionRequest{
			Request:   req.Text,
			Operation: d.Operation(),
			Schema:    d.Summary(),
			Attempt:   attempt,
			Feedback:  feedback,
		})
		if err != nil {
			metrics.ExtractionAttempts.WithLabelValues(string(d.Operation()), "error").Inc()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return extractCycle{}, ctxErr
			}
			return extractCycle{}, err
		}
		if ext.Params == nil {
			ext.Params = models.ParameterSet{}
		}

		verr := validate(d, ext.Params, req.Text)
		if verr == nil {
			metrics.ExtractionAttempts.WithLabelValues(string(d.Operation()), "accepted").Inc()
			return extractCycle{extraction: ext, attempts: attempt}, nil
		}
		metrics.ExtractionAttempts.WithLabelValues(string(d.Operation()), "rejected").Inc()

		log.Warn("extracted parameters rejected", map[string]interface{}{
			"attempt": attempt,
			"error":   verr.Error(),
		})
		if !e.policy.Next(attempt, verr) {
			return extractCycle{extraction: ext, attempts: attempt, rejected: verr}, nil
		}
		feedback = append(feedback, negotiate.Feedback(attempt, verr))
	}
}

// personFields hold collector and determiner names as recorded on specimens.
var personFields = []string{"recordedBy", "identifiedBy"}

// normalizePeople adds the recorded name forms of every matched person to the field
// that named them. A failed lookup keeps the value as given; only cancellation of ctx
// is returned.
func (e *Engine) normalizePeople(ctx context.Context, d *schema.Descriptor, params models.ParameterSet, log Logger) ([]models.PersonMatch, error) {
	if e.people == nil {
		return nil, nil
	}

	var matches []models.PersonMatch
	for _, field := range personFields {
		values := params.Get(field)
		if len(values) == 0 || !d.Allows(field) {
			continue
		}

		expanded := append([]string(nil), values...)
		seen := map[string]bool{}
		for _, v := range values {
			seen[strings.ToLower(v)] = true
		}
		for _, v := range values {
			match, err := e.people.Normalize(ctx, v)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				log.Warn("collector name not normalised", map[string]interface{}{
					"field": field,
					"name":  v,
					"error": err.Error(),
				})
				continue
			}
			match.Field = field
			matches = append(matches, match)
			if !match.Found() {
				continue
			}
			for _, n := range match.Names {
				if !seen[strings.ToLower(n)] {
					seen[strings.ToLower(n)] = true
					expanded = append(expanded, n)
				}
			}
		}
		params.Set(field, expanded...)
	}
	return matches, nil
}

func validate(d *schema.Descriptor, params models.ParameterSet, request string) error {
	if err := grounding.Validate(d, params, request); err != nil {
		return err
	}
	if d.Aggregation() {
		return facet.CheckParams(d, params)
	}
	return nil
}

func (e *Engine) finish(log Logger, result *Result, start time.Time) {
	metrics.ResolutionOutcomes.WithLabelValues(string(result.Operation), string(result.Outcome.Kind)).Inc()

	fields := map[string]interface{}{
		"outcome":    string(result.Outcome.Kind),
		"attempts":   result.Attempts,
		"records":    len(result.Records),
		"durationMs": time.Since(start).Milliseconds(),
	}
	if c := result.Outcome.Clarification; c != nil {
		fields["unresolvedFields"] = c.UnresolvedFields
		fields["reason"] = c.Reason
	}
	if len(result.Outcome.Degraded) > 0 {
		fields["degraded"] = len(result.Outcome.Degraded)
	}
	log.Info("parameters resolved", fields)
}
