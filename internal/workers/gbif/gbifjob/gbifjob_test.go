// internal/workers/gbif/gbifjob/gbifjob_test.go
package gbifjob

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/engine"
	"gbif-workers/internal/engine/negotiate"
	"gbif-workers/internal/engine/query"
	"gbif-workers/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]interface{}
		wantErr bool
	}{
		{name: "request text", vars: map[string]interface{}{"request": "pumas in Florida"}},
		{name: "params answer a clarification", vars: map[string]interface{}{"request": "", "params": map[string]interface{}{"genusKey": "2877951"}}},
		{name: "missing request", vars: map[string]interface{}{"params": map[string]interface{}{}}, wantErr: true},
		{name: "blank request without params", vars: map[string]interface{}{"request": "  "}, wantErr: true},
		{name: "wrong type", vars: map[string]interface{}{"request": 12}, wantErr: true},
		{name: "negative max records", vars: map[string]interface{}{"request": "x", "maxRecords": -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.vars)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequest_EngineRequest(t *testing.T) {
	r := Request{
		Request: "oaks",
		Params:  map[string]interface{}{"genusKey": 2877951, "country": []interface{}{"US", "CA"}},
	}
	req, err := r.EngineRequest(models.OperationOccurrenceSearch)
	require.NoError(t, err)
	assert.Equal(t, models.OperationOccurrenceSearch, req.Operation)
	assert.Equal(t, []string{"2877951"}, req.Params.Get("genusKey"))
	assert.Equal(t, []string{"US", "CA"}, req.Params.Get("country"))

	r.Params = map[string]interface{}{"year": map[string]interface{}{"from": 1990}}
	_, err = r.EngineRequest(models.OperationOccurrenceSearch)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRequest_EngineRequestLocations(t *testing.T) {
	r := Request{
		Request:   "bird records from Gainesville, FL and Montreal",
		Location:  &models.Location{Country: "United States", State: "Florida", Locality: "Gainesville"},
		Locations: []models.Location{{}, {Country: "Canada", Locality: "Montreal"}},
	}

	req, err := r.EngineRequest(models.OperationOccurrenceSearch)
	require.NoError(t, err)
	require.Len(t, req.Locations, 2)
	assert.Equal(t, "Gainesville", req.Locations[0].Locality)
	assert.Equal(t, "Montreal", req.Locations[1].Locality)
}

func TestExecutableQuery(t *testing.T) {
	clarify := &engine.Result{
		RequestID: "r-1",
		Operation: models.OperationOccurrenceSearch,
		Outcome: negotiate.Outcome{
			Kind: models.OutcomeClarify,
			Clarification: &models.ClarificationRequest{
				Needed:           true,
				UnresolvedFields: []string{"genusKey"},
				Reason:           `genusKey: "oak" is ambiguous`,
			},
		},
	}
	_, err := ExecutableQuery(clarify)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeClarificationRequired, stdErr.Code)
	assert.Equal(t, []string{"genusKey"}, stdErr.Metadata["unresolvedFields"])
	assert.Equal(t, "r-1", stdErr.Metadata["requestId"])

	missingPath := &engine.Result{Operation: models.OperationSpeciesTaxonomic, Outcome: negotiate.Outcome{Kind: models.OutcomeProceed}}
	_, err = ExecutableQuery(missingPath)
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeClarificationRequired, stdErr.Code)

	q := query.Query{Operation: models.OperationDatasetSearch, Path: "/dataset/search", Pairs: []query.Pair{{Field: "q", Value: "bats"}}}
	ok := &engine.Result{Operation: models.OperationDatasetSearch, Outcome: negotiate.Outcome{Kind: models.OutcomeProceed}, Query: &q}
	got, err := ExecutableQuery(ok)
	require.NoError(t, err)
	assert.Equal(t, q, got)

	res := NewResolution(ok, "https://api.gbif.org/v1", "https://www.gbif.org")
	assert.Equal(t, "https://api.gbif.org/v1/dataset/search?q=bats", res.APIURL)
	assert.Equal(t, "https://www.gbif.org/dataset/search?q=bats", res.PortalURL)
}

type recordingPublisher struct {
	artifacts []models.Artifact
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, a models.Artifact) error {
	p.artifacts = append(p.artifacts, a)
	return p.err
}

type nopLogger struct{}

func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

func TestPublishArtifact(t *testing.T) {
	q := query.Query{Operation: models.OperationOccurrenceSearch, Path: "/occurrence/search", PortalPath: "/occurrence/search", Pairs: []query.Pair{{Field: "taxonKey", Value: "2435099"}}}
	res := &engine.Result{
		RequestID: "r-2",
		Operation: models.OperationOccurrenceSearch,
		Outcome:   negotiate.Outcome{Kind: models.OutcomeProceed, Params: models.ParameterSet{"taxonKey": {"2435099"}}},
		Query:     &q,
	}

	p := &recordingPublisher{}
	id, published := PublishArtifact(context.Background(), p, nopLogger{}, res, Executed{
		Description: "pumas",
		Query:       q,
		APIBase:     "https://api.gbif.org/v1",
		PortalBase:  "https://www.gbif.org",
		RecordCount: 5000,
		Returned:    300,
	})
	assert.True(t, published)
	require.Len(t, p.artifacts, 1)
	a := p.artifacts[0]
	assert.Equal(t, id, a.ID)
	assert.Equal(t, "r-2", a.RequestID)
	assert.True(t, a.Truncated)
	assert.Equal(t, models.ArtifactSucceeded, a.Status)
	assert.Equal(t, "https://www.gbif.org/occurrence/search?taxonKey=2435099", a.PortalURL)

	failing := &recordingPublisher{err: errors.New("sns down")}
	_, published = PublishArtifact(context.Background(), failing, nopLogger{}, res, Executed{Query: q, Err: errors.New("GBIF 503")})
	assert.False(t, published)
	assert.Equal(t, models.ArtifactFailed, failing.artifacts[0].Status)
	assert.False(t, failing.artifacts[0].Truncated)
}
