// internal/workers/gbif/count-records/handler.go
package countrecords

import (
	"context"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"gbif-workers/internal/common/artifact"
	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/common/gbif"
	"gbif-workers/internal/engine/query"
	"gbif-workers/internal/workers/gbif/gbifjob"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Counter runs facet searches. *gbif.Client implements it.
type Counter interface {
	Search(ctx context.Context, q query.Query) (*gbif.SearchResponse, error)
	EnrichFacets(ctx context.Context, facets []gbif.Facet)
	APIBaseURL() string
	PortalBaseURL() string
}

type Handler struct {
	config    *Config
	resolver  gbifjob.Resolver
	counter   Counter
	publisher artifact.Publisher
	recorder  gbifjob.Recorder
	errors    *apperrors.ErrorHandler
	logger    Logger
}

type HandlerOptions struct {
	Config    *Config
	Resolver  gbifjob.Resolver
	Counter   Counter
	Publisher artifact.Publisher
	Recorder  gbifjob.Recorder
	Logger    Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for count-records: %w", err)
	}
	l := opts.Logger.With(map[string]interface{}{"taskType": opts.Config.TaskType})
	return &Handler{
		config:    opts.Config,
		resolver:  opts.Resolver,
		counter:   opts.Counter,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := gbifjob.Track(h.recorder, h.config.TaskType)
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
	op := h.config.Operation()
	req, err := input.EngineRequest(op)
	if err != nil {
		return nil, err
	}

	res, err := h.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	q, err := gbifjob.ExecutableQuery(res)
	if err != nil {
		return nil, err
	}

	resp, searchErr := h.counter.Search(ctx, q)
	executed := gbifjob.Executed{
		Description: input.Request.Request,
		Query:       q,
		APIBase:     h.counter.APIBaseURL(),
		PortalBase:  h.counter.PortalBaseURL(),
		Err:         searchErr,
	}
	if resp != nil {
		executed.RecordCount = resp.Count
	}
	artifactID, published := gbifjob.PublishArtifact(ctx, h.publisher, h.logger, res, executed)

	if searchErr != nil {
		if h.recorder != nil {
			h.recorder.RecordQuery(ctx, string(op), "error")
		}
		return nil, searchErr
	}
	if h.recorder != nil {
		h.recorder.RecordQuery(ctx, string(op), "ok")
	}

	facets := resp.Facets
	if facets == nil {
		facets = []gbif.Facet{}
	}
	if h.config.EnrichNames {
		h.counter.EnrichFacets(ctx, facets)
	}

	h.logger.Info("records counted", map[string]interface{}{
		"requestId": res.RequestID,
		"count":     resp.Count,
		"facets":    len(facets),
	})

	return &Output{
		Resolution:        gbifjob.NewResolution(res, h.counter.APIBaseURL(), h.counter.PortalBaseURL()),
		Count:             resp.Count,
		Facets:            facets,
		ArtifactID:        artifactID,
		ArtifactPublished: published,
	}, nil
}
