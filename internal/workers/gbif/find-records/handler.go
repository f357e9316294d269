// internal/workers/gbif/find-records/handler.go
package findrecords

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

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

// Searcher pages through a search endpoint. *gbif.Client implements it.
type Searcher interface {
	FetchAll(ctx context.Context, q query.Query, maxRecords int) (*gbif.Page, error)
	APIBaseURL() string
	PortalBaseURL() string
}

// Handler resolves a request into a search query and collects up to maxRecords
// results from GBIF.
type Handler struct {
	config    *Config
	resolver  gbifjob.Resolver
	searcher  Searcher
	publisher artifact.Publisher
	recorder  gbifjob.Recorder
	errors    *apperrors.ErrorHandler
	logger    Logger
}

type HandlerOptions struct {
	Config    *Config
	Resolver  gbifjob.Resolver
	Searcher  Searcher
	Publisher artifact.Publisher
	Recorder  gbifjob.Recorder
	Logger    Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for find-records: %w", err)
	}
	l := opts.Logger.With(map[string]interface{}{"taskType": opts.Config.TaskType})
	return &Handler{
		config:    opts.Config,
		resolver:  opts.Resolver,
		searcher:  opts.Searcher,
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

// maxRecords picks the job's maxRecords, then the limit the query itself carries,
// then the configured default, clamped to the record limit.
func (h *Handler) maxRecords(requested int, q query.Query) int {
	if requested <= 0 {
		if v := q.Get("limit"); len(v) > 0 {
			requested, _ = strconv.Atoi(strings.TrimSpace(v[0]))
		}
	}
	switch {
	case requested <= 0:
		return h.config.MaxRecords
	case requested > h.config.RecordLimit:
		return h.config.RecordLimit
	default:
		return requested
	}
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

	limit := h.maxRecords(input.MaxRecords, q)
	page, fetchErr := h.searcher.FetchAll(ctx, q, limit)

	executed := gbifjob.Executed{
		Description: input.Request.Request,
		Query:       q,
		APIBase:     h.searcher.APIBaseURL(),
		PortalBase:  h.searcher.PortalBaseURL(),
		Err:         fetchErr,
	}
	if page != nil {
		executed.RecordCount = page.Count
		executed.Returned = len(page.Results)
	}
	artifactID, published := gbifjob.PublishArtifact(ctx, h.publisher, h.logger, res, executed)

	if fetchErr != nil {
		if h.recorder != nil {
			h.recorder.RecordQuery(ctx, string(op), "error")
		}
		return nil, fetchErr
	}
	if h.recorder != nil {
		h.recorder.RecordQuery(ctx, string(op), "ok")
	}

	output := &Output{
		Resolution:        gbifjob.NewResolution(res, h.searcher.APIBaseURL(), h.searcher.PortalBaseURL()),
		Count:             page.Count,
		Returned:          len(page.Results),
		Truncated:         page.Count > int64(gbif.StartOffset(q)+len(page.Results)),
		Partial:           page.Partial,
		Results:           page.Results,
		ArtifactID:        artifactID,
		ArtifactPublished: published,
	}

	h.logger.Info("records fetched", map[string]interface{}{
		"requestId": res.RequestID,
		"count":     page.Count,
		"returned":  len(page.Results),
		"partial":   page.Partial,
	})
	return output, nil
}
