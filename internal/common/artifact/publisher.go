// internal/common/artifact/publisher.go
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	appaws "gbif-workers/internal/common/aws"
	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, a models.Artifact) error
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// New stamps an artifact with a fresh id and creation time.
func New(op models.Operation, description string) models.Artifact {
	return models.Artifact{
		ID:          uuid.NewString(),
		Operation:   op,
		Description: description,
		Status:      models.ArtifactSucceeded,
		CreatedAt:   time.Now().UTC(),
	}
}

// LogPublisher writes artifacts to the log. It is used when no topic is configured.
type LogPublisher struct {
	logger Logger
}

func NewLogPublisher(log Logger) *LogPublisher {
	return &LogPublisher{logger: log.With(map[string]interface{}{"component": "artifacts"})}
}

func (p *LogPublisher) Publish(ctx context.Context, a models.Artifact) error {
	p.logger.Info("artifact", map[string]interface{}{
		"artifactId":  a.ID,
		"operation":   a.Operation,
		"status":      a.Status,
		"apiUrl":      a.APIURL,
		"portalUrl":   a.PortalURL,
		"recordCount": a.RecordCount,
		"truncated":   a.Truncated,
	})
	return nil
}

// SNSPublisher sends each artifact as a JSON message to one topic.
type SNSPublisher struct {
	client   *appaws.SNSClient
	topicARN string
}

func NewSNSPublisher(client *appaws.SNSClient, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

func (p *SNSPublisher) Publish(ctx context.Context, a models.Artifact) error {
	body, err := json.Marshal(a)
	if err != nil {
		return apperrors.NewArtifactPublishFailedError(fmt.Errorf("encode artifact: %w", err))
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("gbif-artifact"),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"operation": {DataType: aws.String("String"), StringValue: aws.String(string(a.Operation))},
			"status":    {DataType: aws.String("String"), StringValue: aws.String(string(a.Status))},
		},
	})
	if err != nil {
		return apperrors.NewArtifactPublishFailedError(err)
	}
	return nil
}
