// internal/common/artifact/publisher_test.go
package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appaws "gbif-workers/internal/common/aws"
	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/models"
)

// MockSNSService records published messages
type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	inputs      []*sns.PublishInput
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{}, nil
}

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

func sampleArtifact() models.Artifact {
	a := New(models.OperationOccurrenceFacets, "species counts in Asia")
	a.APIURL = "https://api.gbif.org/v1/occurrence/search?continent=ASIA&facet=speciesKey&limit=0"
	a.Params = models.ParameterSet{"continent": {"ASIA"}, "facet": {"speciesKey"}}
	a.RecordCount = 1200
	return a
}

func TestSNSPublisher_Publish(t *testing.T) {
	mock := &MockSNSService{}
	publisher := NewSNSPublisher(appaws.NewSNSClientWithAPI(mock), "arn:aws:sns:eu-west-1:123456789012:gbif-artifacts")

	a := sampleArtifact()
	require.NoError(t, publisher.Publish(context.Background(), a))
	require.Len(t, mock.inputs, 1)

	input := mock.inputs[0]
	assert.Equal(t, "arn:aws:sns:eu-west-1:123456789012:gbif-artifacts", *input.TopicArn)
	assert.Equal(t, "occurrence_facets", *input.MessageAttributes["operation"].StringValue)

	var decoded models.Artifact
	require.NoError(t, json.Unmarshal([]byte(*input.Message), &decoded))
	assert.Equal(t, a.ID, decoded.ID)
	assert.Equal(t, a.APIURL, decoded.APIURL)
	assert.Equal(t, []string{"ASIA"}, decoded.Params.Get("continent"))
}

func TestSNSPublisher_Failure(t *testing.T) {
	mock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	publisher := NewSNSPublisher(appaws.NewSNSClientWithAPI(mock), "arn")

	err := publisher.Publish(context.Background(), sampleArtifact())
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeArtifactPublishFailed, stdErr.Code)
}

func TestNew(t *testing.T) {
	a := New(models.OperationDatasetSearch, "datasets about bats")
	b := New(models.OperationDatasetSearch, "datasets about bats")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, models.ArtifactSucceeded, a.Status)
	assert.False(t, a.CreatedAt.IsZero())
	assert.NoError(t, NewLogPublisher(&TestLogger{t: t}).Publish(context.Background(), a))
}
