// internal/engine/names/pipeline.go
package names

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/common/metrics"
	"gbif-workers/internal/common/observability"
	"gbif-workers/internal/engine/grounding"
	"gbif-workers/internal/models"
)

const (
	DefaultLookupTimeout  = 10 * time.Second
	DefaultMaxConcurrency = 8
)

// Matcher is the external name-match lookup.
type Matcher interface {
	Match(ctx context.Context, name string, rank models.Rank) ([]models.MatchCandidate, error)
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(ctx context.Context, name string, rank models.Rank) ([]models.MatchCandidate, error)

func (f MatcherFunc) Match(ctx context.Context, name string, rank models.Rank) ([]models.MatchCandidate, error) {
	return f(ctx, name, rank)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Config struct {
	LookupTimeout  time.Duration
	MaxConcurrency int
}

// Pipeline resolves name mentions to backbone identifiers. It holds no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	matcher Matcher
	config  Config
	logger  Logger
}

func NewPipeline(matcher Matcher, config Config, log Logger) *Pipeline {
	if config.LookupTimeout <= 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Pipeline{
		matcher: matcher,
		config:  config,
		logger:  log.With(map[string]interface{}{"component": "name-resolution"}),
	}
}

// Resolve looks up every distinct mention concurrently and returns one record per
// distinct lookup, known pairs first, in input order. Extracted mentions whose term
// does not occur in request are dropped; known pairs come from the caller and are
// trusted. A failed or timed-out lookup degrades to not_found without affecting the
// others. The only error returned is the cancellation of ctx.
func (p *Pipeline) Resolve(ctx context.Context, request string, mentions, known []models.NameMention) ([]models.ResolutionRecord, error) {
	unique := make([]models.NameMention, 0, len(known)+len(mentions))
	seen := make(map[string]bool, len(known)+len(mentions))

	add := func(m models.NameMention, trusted bool) {
		if !m.Rank.Valid() || m.LookupName() == "" {
			p.logger.Warn("skipping mention without name or supported rank", map[string]interface{}{
				"term": m.TermFound,
				"rank": m.Rank.String(),
			})
			return
		}
		if !trusted && !grounding.Grounded(m.TermFound, request) {
			p.logger.Warn("skipping mention not present in request", map[string]interface{}{
				"term": m.TermFound,
			})
			return
		}
		key := m.LookupKey()
		if seen[key] {
			return
		}
		seen[key] = true
		unique = append(unique, m)
	}
	for _, m := range known {
		add(m, true)
	}
	for _, m := range mentions {
		add(m, false)
	}

	records := make([]models.ResolutionRecord, len(unique))

	var g errgroup.Group
	g.SetLimit(p.config.MaxConcurrency)
	for i, m := range unique {
		g.Go(func() error {
			records[i] = p.lookup(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Info("name mentions resolved", map[string]interface{}{
		"mentions": len(unique),
		"resolved": countStatus(records, models.StatusResolved),
	})
	return records, nil
}

func (p *Pipeline) lookup(ctx context.Context, m models.NameMention) models.ResolutionRecord {
	if ctx.Err() != nil {
		return notFound(m, ctx.Err().Error())
	}

	ctx, span := observability.StartSpan(ctx, "names.lookup",
		attribute.String("name", m.LookupName()),
		attribute.String("rank", m.Rank.String()),
	)

	lookupCtx, cancel := context.WithTimeout(ctx, p.config.LookupTimeout)
	defer cancel()

	start := time.Now()
	candidates, err := p.matcher.Match(lookupCtx, m.LookupName(), m.Rank)

	var record models.ResolutionRecord
	switch {
	case err == nil:
		record = Classify(m, candidates)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
		record = notFound(m, apperrors.NewLookupTimeoutError(m.LookupName()).Error())
	default:
		record = notFound(m, fmt.Sprintf("lookup failed: %v", err))
	}
	observability.EndSpan(span, err)

	metrics.NameLookups.WithLabelValues(string(record.Status)).Inc()
	metrics.NameLookupDuration.WithLabelValues(string(record.Status)).Observe(time.Since(start).Seconds())

	if err != nil {
		p.logger.Warn("name lookup degraded to not_found", map[string]interface{}{
			"name":  m.LookupName(),
			"rank":  m.Rank.String(),
			"error": err,
		})
	}
	return record
}

func notFound(m models.NameMention, detail string) models.ResolutionRecord {
	return models.ResolutionRecord{
		Mention:      m,
		ResolvedRank: models.RankUnknown,
		Status:       models.StatusNotFound,
		Detail:       detail,
	}
}

func countStatus(records []models.ResolutionRecord, status models.ResolutionStatus) int {
	n := 0
	for _, r := range records {
		if r.Status == status {
			n++
		}
	}
	return n
}
