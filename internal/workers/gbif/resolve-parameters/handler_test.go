// internal/workers/gbif/resolve-parameters/handler_test.go
package resolveparameters

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

// fakeResolver returns a canned result and records the request it was given.
type fakeResolver struct {
	result *engine.Result
	err    error
	got    engine.Request
}

func (f *fakeResolver) Resolve(ctx context.Context, req engine.Request) (*engine.Result, error) {
	f.got = req
	return f.result, f.err
}

func createTestConfig() *Config {
	return LoadConfig()
}

func TestHandler_Execute(t *testing.T) {
	facetQuery := query.Query{
		Operation:  models.OperationOccurrenceFacets,
		Path:       "/occurrence/search",
		PortalPath: "/occurrence/search",
		Pairs: []query.Pair{
			{Field: "continent", Value: "ASIA"},
			{Field: "facet", Value: "speciesKey"},
			{Field: "limit", Value: "0"},
		},
	}

	tests := []struct {
		name           string
		input          *Input
		result         *engine.Result
		wantExecutable bool
		validate       func(t *testing.T, out *Output, got engine.Request)
	}{
		{
			name: "proceed with query",
			input: &Input{
				Request:   gbifjob.Request{Request: "How many species are recorded in Temperate Asia?"},
				Operation: models.OperationOccurrenceFacets,
			},
			result: &engine.Result{
				RequestID: "req-1",
				Operation: models.OperationOccurrenceFacets,
				Outcome: negotiate.Outcome{
					Kind:   models.OutcomeProceed,
					Params: models.ParameterSet{"continent": {"ASIA"}, "facet": {"speciesKey"}},
				},
				Query:    &facetQuery,
				Attempts: 1,
			},
			wantExecutable: true,
			validate: func(t *testing.T, out *Output, got engine.Request) {
				assert.Equal(t, "https://api.gbif.org/v1/occurrence/search?continent=ASIA&facet=speciesKey&limit=0", out.Resolution.APIURL)
				assert.Equal(t, "https://www.gbif.org/occurrence/search?continent=ASIA&facet=speciesKey&limit=0", out.Resolution.PortalURL)
				assert.Nil(t, got.Params)
			},
		},
		{
			name: "clarification is returned, not thrown",
			input: &Input{
				Request:   gbifjob.Request{Request: "oak records"},
				Operation: models.OperationOccurrenceSearch,
			},
			result: &engine.Result{
				RequestID: "req-2",
				Operation: models.OperationOccurrenceSearch,
				Outcome: negotiate.Outcome{
					Kind:   models.OutcomeClarify,
					Params: models.ParameterSet{},
					Clarification: &models.ClarificationRequest{
						Needed:           true,
						UnresolvedFields: []string{"genusKey"},
						Reason:           `genusKey: "oak" is ambiguous`,
					},
				},
				Attempts: 1,
			},
			validate: func(t *testing.T, out *Output, got engine.Request) {
				require.NotNil(t, out.Resolution.Clarification)
				assert.Equal(t, []string{"genusKey"}, out.Resolution.Clarification.UnresolvedFields)
				assert.Empty(t, out.Resolution.APIURL)
			},
		},
		{
			name: "caller-supplied params are passed through",
			input: &Input{
				Request: gbifjob.Request{
					Request: "oak records",
					Params:  map[string]interface{}{"genusKey": "2877951"},
				},
				Operation: models.OperationOccurrenceSearch,
			},
			result: &engine.Result{
				Operation: models.OperationOccurrenceSearch,
				Outcome:   negotiate.Outcome{Kind: models.OutcomeProceed, Params: models.ParameterSet{"genusKey": {"2877951"}}},
			},
			wantExecutable: true,
			validate: func(t *testing.T, out *Output, got engine.Request) {
				assert.Equal(t, []string{"2877951"}, got.Params.Get("genusKey"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{result: tt.result}
			handler := NewHandler(createTestConfig(), resolver, nil, NewTestLogger(t))

			out, err := handler.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExecutable, out.Executable)
			assert.Equal(t, tt.input.Operation, resolver.got.Operation)
			assert.Equal(t, tt.result.Outcome.Kind, out.Resolution.Outcome)
			if tt.validate != nil {
				tt.validate(t, out, resolver.got)
			}
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     *Input
		engineErr error
		check     func(t *testing.T, err error)
	}{
		{
			name:  "missing operation",
			input: &Input{Request: gbifjob.Request{Request: "pumas"}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrOperationRequired)
			},
		},
		{
			name:  "unknown operation",
			input: &Input{Request: gbifjob.Request{Request: "pumas"}, Operation: "occurrence_download"},
			check: func(t *testing.T, err error) {
				var stdErr *apperrors.StandardError
				require.True(t, errors.As(err, &stdErr))
				assert.Equal(t, apperrors.ErrCodeInvalidOperation, stdErr.Code)
			},
		},
		{
			name: "unusable params",
			input: &Input{
				Request:   gbifjob.Request{Request: "pumas", Params: map[string]interface{}{"year": map[string]interface{}{"from": 1}}},
				Operation: models.OperationOccurrenceSearch,
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, gbifjob.ErrInvalidInput)
			},
		},
		{
			name:      "extraction failure",
			input:     &Input{Request: gbifjob.Request{Request: "pumas"}, Operation: models.OperationOccurrenceSearch},
			engineErr: apperrors.NewExtractionTimeoutError(),
			check: func(t *testing.T, err error) {
				var stdErr *apperrors.StandardError
				require.True(t, errors.As(err, &stdErr))
				assert.Equal(t, apperrors.ErrCodeExtractionTimeout, stdErr.Code)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(createTestConfig(), &fakeResolver{err: tt.engineErr}, nil, NewTestLogger(t))

			out, err := handler.Execute(context.Background(), tt.input)
			assert.Nil(t, out)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}
