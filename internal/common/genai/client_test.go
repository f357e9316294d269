// internal/common/genai/client_test.go
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gbif-workers/internal/common/errors"
	apphttp "gbif-workers/internal/common/http"
	"gbif-workers/internal/engine"
	"gbif-workers/internal/models"
)

// TestLogger implements the Logger interface for testing
type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	return l
}

func newClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	poster := apphttp.NewClient(5*time.Second, apphttp.WithMaxRetries(0))
	return NewClient(poster, Config{BaseURL: server.URL + "/", Timeout: timeout}, &TestLogger{t: t})
}

func TestExtract(t *testing.T) {
	var got engine.ExtractionRequest
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ExtractPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"params": {"year": "2020", "country": ["US"], "limit": 20, "hasCoordinate": true, "q": null},
			"mentions": [{"termFound": "pumas", "scientificName": "Puma concolor", "rank": "SPECIES"}],
			"location": {"country": "United States", "state": "Florida"}
		}`))
	}, time.Second)

	extraction, err := client.Extract(context.Background(), engine.ExtractionRequest{
		Request:   "pumas in Florida in 2020",
		Operation: models.OperationOccurrenceSearch,
		Attempt:   2,
		Feedback:  []string{"Attempt 1 was rejected: ..."},
	})
	require.NoError(t, err)

	assert.Equal(t, "pumas in Florida in 2020", got.Request)
	assert.Equal(t, 2, got.Attempt)
	assert.Len(t, got.Feedback, 1)

	assert.Equal(t, []string{"2020"}, extraction.Params.Get("year"))
	assert.Equal(t, []string{"US"}, extraction.Params.Get("country"))
	assert.Equal(t, []string{"20"}, extraction.Params.Get("limit"))
	assert.Equal(t, []string{"true"}, extraction.Params.Get("hasCoordinate"))
	assert.Empty(t, extraction.Params.Get("q"))
	require.Len(t, extraction.Mentions, 1)
	assert.Equal(t, models.RankSpecies, extraction.Mentions[0].Rank)
	require.Len(t, extraction.Locations, 1)
	assert.Equal(t, "Florida", extraction.Locations[0].State)
}

func TestExtract_MultipleLocations(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"params": {},
			"locations": [
				{"country": "United States", "state": "Florida", "locality": "Gainesville"},
				{"country": "Canada", "state": "Quebec", "locality": "Montreal"}
			]
		}`))
	}, time.Second)

	extraction, err := client.Extract(context.Background(), engine.ExtractionRequest{
		Request:   "bird records from Gainesville, FL and Montreal",
		Operation: models.OperationOccurrenceSearch,
		Attempt:   1,
	})
	require.NoError(t, err)

	require.Len(t, extraction.Locations, 2)
	assert.Equal(t, "Gainesville", extraction.Locations[0].Locality)
	assert.Equal(t, "Montreal", extraction.Locations[1].Locality)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		timeout  time.Duration
		wantCode apperrors.ErrorCode
	}{
		{
			name: "service error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model overloaded", http.StatusBadRequest)
			},
			timeout:  time.Second,
			wantCode: apperrors.ErrCodeExtractionFailed,
		},
		{
			name: "missing params",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"mentions": []}`))
			},
			timeout:  time.Second,
			wantCode: apperrors.ErrCodeExtractionFailed,
		},
		{
			name: "mention without term",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"params": {}, "mentions": [{"scientificName": "Puma"}]}`))
			},
			timeout:  time.Second,
			wantCode: apperrors.ErrCodeExtractionFailed,
		},
		{
			name: "nested parameter value",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"params": {"year": {"from": 1990}}}`))
			},
			timeout:  time.Second,
			wantCode: apperrors.ErrCodeExtractionFailed,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			},
			timeout:  20 * time.Millisecond,
			wantCode: apperrors.ErrCodeExtractionTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, tt.handler, tt.timeout)

			extraction, err := client.Extract(context.Background(), engine.ExtractionRequest{
				Request:   "pumas",
				Operation: models.OperationOccurrenceSearch,
				Attempt:   1,
			})
			assert.Nil(t, extraction)

			var stdErr *apperrors.StandardError
			require.True(t, errors.As(err, &stdErr))
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}
