// internal/engine/names/pipeline_test.go
package names

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gbif-workers/internal/models"
)

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{
		t:      t,
		fields: make(map[string]interface{}),
	}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, l.mergeFields(fields))
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return &TestLogger{t: l.t, fields: l.mergeFields(fields)}
}

func (l *TestLogger) mergeFields(fields map[string]interface{}) map[string]interface{} {
	all := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}
	return all
}

// backbone is a fixed name-match table keyed by lower-cased name.
type backbone struct {
	calls   atomic.Int32
	entries map[string][]models.MatchCandidate
}

func (b *backbone) Match(ctx context.Context, name string, rank models.Rank) ([]models.MatchCandidate, error) {
	b.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.entries[strings.ToLower(name)], nil
}

func newBackbone() *backbone {
	return &backbone{entries: map[string][]models.MatchCandidate{
		"puma concolor": {{Key: "2435099", Name: "Puma concolor", Rank: models.RankSpecies, Confidence: 99}},
		"puma":          {{Key: "2435098", Name: "Puma", Rank: models.RankGenus, Confidence: 98}},
		"felidae":       {{Key: "9703", Name: "Felidae", Rank: models.RankFamily, Confidence: 99}},
		"aves":          {{Key: "212", Name: "Aves", Rank: models.RankClass, Confidence: 97}},
		"oak": {
			{Key: "2877951", Name: "Quercus", Rank: models.RankGenus, Confidence: 90},
			{Key: "3054375", Name: "Lithocarpus", Rank: models.RankGenus, Confidence: 90},
		},
	}}
}

func TestPipeline_Resolve(t *testing.T) {
	matcher := newBackbone()
	p := NewPipeline(matcher, Config{LookupTimeout: time.Second}, NewTestLogger(t))

	request := "Puma concolor and oak records, also anything in Atlantis"
	mentions := []models.NameMention{
		{TermFound: "Puma concolor", Rank: models.RankSpecies},
		{TermFound: "oak", Rank: models.RankGenus},
		{TermFound: "Atlantis", Rank: models.RankGenus},
	}

	records, err := p.Resolve(context.Background(), request, mentions, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.StatusResolved, records[0].Status)
	assert.Equal(t, "2435099", records[0].ResolvedKey)
	assert.Equal(t, models.StatusAmbiguous, records[1].Status)
	assert.Contains(t, records[1].Detail, "Quercus")
	assert.Contains(t, records[1].Detail, "Lithocarpus")
	assert.Equal(t, models.StatusNotFound, records[2].Status)
}

func TestPipeline_DeduplicatesLookups(t *testing.T) {
	matcher := newBackbone()
	p := NewPipeline(matcher, Config{}, NewTestLogger(t))

	request := "Puma concolor, puma concolor and PUMA CONCOLOR"
	mentions := []models.NameMention{
		{TermFound: "Puma concolor", Rank: models.RankSpecies},
		{TermFound: "puma concolor", Rank: models.RankSpecies},
		{TermFound: "PUMA CONCOLOR", Rank: models.RankSpecies},
	}
	known := []models.NameMention{{TermFound: "cougar", ScientificName: "Puma concolor", Rank: models.RankSpecies}}

	records, err := p.Resolve(context.Background(), request, mentions, known)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "cougar", records[0].Mention.TermFound, "known pairs come first")
	assert.Equal(t, int32(1), matcher.calls.Load())
}

func TestPipeline_DropsUngroundedAndInvalidMentions(t *testing.T) {
	matcher := newBackbone()
	p := NewPipeline(matcher, Config{}, NewTestLogger(t))

	mentions := []models.NameMention{
		{TermFound: "Felidae", Rank: models.RankFamily},
		{TermFound: "Aves", Rank: models.RankClass},
		{TermFound: "Puma", Rank: models.RankUnknown},
	}

	records, err := p.Resolve(context.Background(), "records of Aves and Puma", mentions, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "212", records[0].ResolvedKey)
}

func TestPipeline_Idempotent(t *testing.T) {
	p := NewPipeline(newBackbone(), Config{}, NewTestLogger(t))
	request := "Puma in Felidae"
	mentions := []models.NameMention{
		{TermFound: "Puma", Rank: models.RankGenus},
		{TermFound: "Felidae", Rank: models.RankFamily},
	}

	first, err := p.Resolve(context.Background(), request, mentions, nil)
	require.NoError(t, err)
	second, err := p.Resolve(context.Background(), request, mentions, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPipeline_FailuresDegradeSingleLookup(t *testing.T) {
	matcher := MatcherFunc(func(ctx context.Context, name string, rank models.Rank) ([]models.MatchCandidate, error) {
		switch name {
		case "Puma":
			return []models.MatchCandidate{{Key: "2435098", Name: "Puma", Rank: models.RankGenus, Confidence: 98}}, nil
		case "Lynx":
			<-ctx.Done()
			return nil, ctx.Err()
		default:
			return nil, errors.New("service unavailable")
		}
	})
	p := NewPipeline(matcher, Config{LookupTimeout: 20 * time.Millisecond}, NewTestLogger(t))

	mentions := []models.NameMention{
		{TermFound: "Puma", Rank: models.RankGenus},
		{TermFound: "Lynx", Rank: models.RankGenus},
		{TermFound: "Felis", Rank: models.RankGenus},
	}

	records, err := p.Resolve(context.Background(), "Puma, Lynx and Felis", mentions, nil)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.StatusResolved, records[0].Status)
	assert.Equal(t, models.StatusNotFound, records[1].Status)
	assert.Contains(t, records[1].Detail, "LOOKUP_TIMEOUT")
	assert.Equal(t, models.StatusNotFound, records[2].Status)
	assert.Contains(t, records[2].Detail, "service unavailable")
}

func TestPipeline_CancellationAbandonsLookups(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{}, 4)
	matcher := MatcherFunc(func(ctx context.Context, name string, rank models.Rank) ([]models.MatchCandidate, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	})
	p := NewPipeline(matcher, Config{LookupTimeout: time.Minute}, NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	mentions := []models.NameMention{
		{TermFound: "Puma", Rank: models.RankGenus},
		{TermFound: "Lynx", Rank: models.RankGenus},
	}

	done := make(chan struct{})
	var (
		records []models.ResolutionRecord
		err     error
	)
	go func() {
		defer close(done)
		records, err = p.Resolve(ctx, "Puma and Lynx", mentions, nil)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Resolve did not return after cancellation")
	}

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, records)
}

func TestPipeline_NoMentions(t *testing.T) {
	matcher := newBackbone()
	p := NewPipeline(matcher, Config{}, NewTestLogger(t))

	records, err := p.Resolve(context.Background(), "all records from 2020", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, matcher.calls.Load())
}
