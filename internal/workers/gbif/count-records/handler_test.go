// internal/workers/gbif/count-records/handler_test.go
package countrecords

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/common/gbif"
	apphttp "gbif-workers/internal/common/http"
	"gbif-workers/internal/engine"
	"gbif-workers/internal/engine/negotiate"
	"gbif-workers/internal/engine/query"
	"gbif-workers/internal/models"
	"gbif-workers/internal/workers/gbif/gbifjob"
)

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return l.with(fields)
}

func (l *TestLogger) with(fields map[string]interface{}) *TestLogger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

type clientLogger struct{ *TestLogger }

func (l clientLogger) With(fields map[string]interface{}) gbif.Logger {
	return clientLogger{l.TestLogger.with(fields)}
}

type fakeResolver struct {
	result *engine.Result
	err    error
	got    engine.Request
}

func (f *fakeResolver) Resolve(ctx context.Context, req engine.Request) (*engine.Result, error) {
	f.got = req
	return f.result, f.err
}

type recordingPublisher struct {
	artifacts []models.Artifact
}

func (p *recordingPublisher) Publish(ctx context.Context, a models.Artifact) error {
	p.artifacts = append(p.artifacts, a)
	return nil
}

func facetResult(op models.Operation, pairs ...query.Pair) *engine.Result {
	q := query.Query{Operation: op, Path: "/occurrence/search", PortalPath: "/occurrence/search", Pairs: pairs}
	if op == models.OperationSpeciesFacets {
		q.Path, q.PortalPath = "/species/search", "/species/search"
	}
	return &engine.Result{
		RequestID: "req-1",
		Operation: op,
		Outcome:   negotiate.Outcome{Kind: models.OutcomeProceed, Params: models.ParameterSet{}},
		Query:     &q,
		Attempts:  1,
	}
}

// gbifServer answers facet searches and the species lookups used to name them.
func gbifServer(t *testing.T, searchStatus int) *gbif.Client {
	t.Helper()
	mux := http.NewServeMux()
	search := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("limit"))
		if searchStatus != http.StatusOK {
			w.WriteHeader(searchStatus)
			return
		}
		fmt.Fprint(w, `{
			"offset": 0, "limit": 0, "endOfRecords": false, "count": 48213,
			"results": [],
			"facets": [{"field": "SPECIES_KEY", "counts": [
				{"name": "2435099", "count": 40000},
				{"name": "9999999", "count": 8213}
			]}]
		}`)
	}
	mux.HandleFunc("/v1/occurrence/search", search)
	mux.HandleFunc("/v1/species/search", search)
	mux.HandleFunc("/v1/species/2435099", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"key": 2435099, "scientificName": "Puma concolor (Linnaeus, 1771)", "rank": "SPECIES"}`)
	})
	mux.HandleFunc("/v1/species/9999999", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	exec := apphttp.NewClient(2*time.Second, apphttp.WithMaxRetries(0))
	return gbif.NewClient(exec, gbif.Config{APIBaseURL: server.URL + "/v1"}, clientLogger{NewTestLogger(t)})
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name     string
		taskType string
		result   *engine.Result
		wantPath string
	}{
		{
			name:     "occurrence facets",
			taskType: TaskTypeOccurrences,
			result: facetResult(models.OperationOccurrenceFacets,
				query.Pair{Field: "continent", Value: "ASIA"},
				query.Pair{Field: "facet", Value: "speciesKey"},
				query.Pair{Field: "limit", Value: "0"},
			),
			wantPath: "/occurrence/search?continent=ASIA&facet=speciesKey&limit=0",
		},
		{
			name:     "species facets",
			taskType: TaskTypeSpecies,
			result: facetResult(models.OperationSpeciesFacets,
				query.Pair{Field: "facet", Value: "speciesKey"},
				query.Pair{Field: "limit", Value: "0"},
			),
			wantPath: "/species/search?facet=speciesKey&limit=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := gbifServer(t, http.StatusOK)
			resolver := &fakeResolver{result: tt.result}
			publisher := &recordingPublisher{}
			h, err := NewHandler(HandlerOptions{
				Config:    LoadConfig(tt.taskType),
				Resolver:  resolver,
				Counter:   client,
				Publisher: publisher,
				Logger:    NewTestLogger(t),
			})
			require.NoError(t, err)

			out, err := h.Execute(context.Background(), &Input{Request: gbifjob.Request{Request: "How many species are recorded in Temperate Asia?"}})
			require.NoError(t, err)

			assert.Equal(t, Operations[tt.taskType], resolver.got.Operation)
			assert.Equal(t, int64(48213), out.Count)
			require.Len(t, out.Facets, 1)
			require.Len(t, out.Facets[0].Counts, 2)
			assert.Equal(t, "Puma concolor (Linnaeus, 1771)", out.Facets[0].Counts[0].ScientificName)
			assert.Empty(t, out.Facets[0].Counts[1].ScientificName, "failed lookups stay unnamed")
			assert.Equal(t, "https://www.gbif.org"+tt.wantPath, out.Resolution.PortalURL)

			require.Len(t, publisher.artifacts, 1)
			a := publisher.artifacts[0]
			assert.Equal(t, int64(48213), a.RecordCount)
			assert.False(t, a.Truncated)
			assert.Equal(t, models.ArtifactSucceeded, a.Status)
		})
	}
}

func TestHandler_Execute_WithoutEnrichment(t *testing.T) {
	config := LoadConfig(TaskTypeOccurrences)
	config.EnrichNames = false
	h, err := NewHandler(HandlerOptions{
		Config: config,
		Resolver: &fakeResolver{result: facetResult(models.OperationOccurrenceFacets,
			query.Pair{Field: "facet", Value: "speciesKey"},
			query.Pair{Field: "limit", Value: "0"},
		)},
		Counter:   gbifServer(t, http.StatusOK),
		Publisher: &recordingPublisher{},
		Logger:    NewTestLogger(t),
	})
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), &Input{Request: gbifjob.Request{Request: "species counts"}})
	require.NoError(t, err)
	assert.Empty(t, out.Facets[0].Counts[0].ScientificName)
}

func TestHandler_Execute_SearchFailure(t *testing.T) {
	publisher := &recordingPublisher{}
	h, err := NewHandler(HandlerOptions{
		Config: LoadConfig(TaskTypeOccurrences),
		Resolver: &fakeResolver{result: facetResult(models.OperationOccurrenceFacets,
			query.Pair{Field: "limit", Value: "0"},
		)},
		Counter:   gbifServer(t, http.StatusServiceUnavailable),
		Publisher: publisher,
		Logger:    NewTestLogger(t),
	})
	require.NoError(t, err)

	out, err := h.Execute(context.Background(), &Input{Request: gbifjob.Request{Request: "how many records"}})
	assert.Nil(t, out)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeGBIFRequestFailed, stdErr.Code)
	require.Len(t, publisher.artifacts, 1)
	assert.Equal(t, models.ArtifactFailed, publisher.artifacts[0].Status)
}

func TestHandler_Execute_Clarification(t *testing.T) {
	h, err := NewHandler(HandlerOptions{
		Config: LoadConfig(TaskTypeSpecies),
		Resolver: &fakeResolver{result: &engine.Result{
			Operation: models.OperationSpeciesFacets,
			Outcome:   negotiate.Outcome{Kind: models.OutcomeClarify},
		}},
		Counter:   gbifServer(t, http.StatusOK),
		Publisher: &recordingPublisher{},
		Logger:    NewTestLogger(t),
	})
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), &Input{Request: gbifjob.Request{Request: "count them"}})
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeClarificationRequired, stdErr.Code)
}
