// internal/workers/gbif/find-occurrence-by-id/handler.go
package findoccurrencebyid

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"gbif-workers/internal/common/artifact"
	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/engine/query"
	"gbif-workers/internal/models"
	"gbif-workers/internal/workers/gbif/gbifjob"
)

const (
	TaskType = "find-occurrence-by-id"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Fetcher reads a single record. *gbif.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, q query.Query) (json.RawMessage, error)
	APIBaseURL() string
	PortalBaseURL() string
}

type Handler struct {
	config    *Config
	resolver  gbifjob.Resolver
	fetcher   Fetcher
	publisher artifact.Publisher
	recorder  gbifjob.Recorder
	errors    *apperrors.ErrorHandler
	logger    Logger
}

func NewHandler(config *Config, resolver gbifjob.Resolver, fetcher Fetcher, publisher artifact.Publisher, recorder gbifjob.Recorder, log Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		resolver:  resolver,
		fetcher:   fetcher,
		publisher: publisher,
		recorder:  recorder,
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := gbifjob.Track(h.recorder, TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := gbifjob.Decode(job, &input); err != nil {
		done(gbifjob.ErrorCode(err))
		gbifjob.FailInput(client, job, err, h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		done(gbifjob.ErrorCode(err))
		if errors.Is(err, gbifjob.ErrInvalidInput) {
			gbifjob.FailInput(client, job, err, h.logger)
			return
		}
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	done("")
	gbifjob.Complete(client, job, output, h.logger)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	req, err := input.EngineRequest(models.OperationOccurrenceByID)
	if err != nil {
		return nil, err
	}
	if input.GbifID != "" {
		if req.Params == nil {
			req.Params = models.ParameterSet{}
		}
		req.Params.Set("gbifId", input.GbifID)
	}

	res, err := h.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	q, err := gbifjob.ExecutableQuery(res)
	if err != nil {
		return nil, err
	}

	record, fetchErr := h.fetcher.Fetch(ctx, q)
	executed := gbifjob.Executed{
		Description: input.Request.Request,
		Query:       q,
		APIBase:     h.fetcher.APIBaseURL(),
		PortalBase:  h.fetcher.PortalBaseURL(),
		Err:         fetchErr,
	}
	if fetchErr == nil {
		executed.RecordCount, executed.Returned = 1, 1
	}
	artifactID, published := gbifjob.PublishArtifact(ctx, h.publisher, h.logger, res, executed)

	outcome := "ok"
	if fetchErr != nil {
		outcome = "error"
	}
	if h.recorder != nil {
		h.recorder.RecordQuery(ctx, string(models.OperationOccurrenceByID), outcome)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	h.logger.Info("occurrence fetched", map[string]interface{}{
		"requestId": res.RequestID,
		"path":      q.Path,
	})

	return &Output{
		Resolution:        gbifjob.NewResolution(res, h.fetcher.APIBaseURL(), h.fetcher.PortalBaseURL()),
		Occurrence:        record,
		ArtifactID:        artifactID,
		ArtifactPublished: published,
	}, nil
}
