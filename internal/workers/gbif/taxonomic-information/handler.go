// internal/workers/gbif/taxonomic-information/handler.go
package taxonomicinformation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"gbif-workers/internal/common/artifact"
	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/common/gbif"
	"gbif-workers/internal/engine"
	"gbif-workers/internal/engine/query"
	"gbif-workers/internal/models"
	"gbif-workers/internal/workers/gbif/gbifjob"
)

const (
	TaskType = "species-taxonomic-information"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Taxonomy reads backbone name usages. *gbif.Client implements it.
type Taxonomy interface {
	TaxonDetail(ctx context.Context, key string, listLimit int) (*gbif.TaxonDetail, error)
	SearchBackbone(ctx context.Context, q string, rank models.Rank) (*gbif.Usage, error)
	APIBaseURL() string
	PortalBaseURL() string
}

type Handler struct {
	config    *Config
	resolver  gbifjob.Resolver
	taxonomy  Taxonomy
	publisher artifact.Publisher
	recorder  gbifjob.Recorder
	errors    *apperrors.ErrorHandler
	logger    Logger
}

func NewHandler(config *Config, resolver gbifjob.Resolver, taxonomy Taxonomy, publisher artifact.Publisher, recorder gbifjob.Recorder, log Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		resolver:  resolver,
		taxonomy:  taxonomy,
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
	req, err := input.EngineRequest(models.OperationSpeciesTaxonomic)
	if err != nil {
		return nil, err
	}

	res, err := h.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := gbifjob.Clarification(res); err != nil {
		return nil, err
	}

	output := &Output{MatchedBy: MatchedByResolution}
	key := res.Outcome.Params.First("key")
	if key == "" {
		usage, err := h.searchBackbone(ctx, res)
		if err != nil {
			return nil, err
		}
		key = string(usage.Key)
		output.MatchedBy = MatchedByBackboneSearch
		output.MatchedName = usage.ScientificName
	}
	output.Key = key

	q := query.Query{
		Operation:  models.OperationSpeciesTaxonomic,
		Path:       "/species/" + key,
		PortalPath: "/species/" + key,
	}
	if res.Query != nil {
		q = *res.Query
	}

	detail, detailErr := h.taxonomy.TaxonDetail(ctx, key, h.config.ListLimit)
	executed := gbifjob.Executed{
		Description: input.Request.Request,
		Query:       q,
		APIBase:     h.taxonomy.APIBaseURL(),
		PortalBase:  h.taxonomy.PortalBaseURL(),
		Err:         detailErr,
	}
	if detailErr == nil {
		executed.RecordCount, executed.Returned = 1, 1
	}
	output.ArtifactID, output.ArtifactPublished = gbifjob.PublishArtifact(ctx, h.publisher, h.logger, res, executed)

	outcome := "ok"
	if detailErr != nil {
		outcome = "error"
	}
	if h.recorder != nil {
		h.recorder.RecordQuery(ctx, string(models.OperationSpeciesTaxonomic), outcome)
	}
	if detailErr != nil {
		return nil, detailErr
	}

	output.Detail = detail
	output.Resolution = gbifjob.NewResolution(res, h.taxonomy.APIBaseURL(), h.taxonomy.PortalBaseURL())
	if output.Resolution.APIURL == "" {
		output.Resolution.APIURL = q.APIURL(h.taxonomy.APIBaseURL())
		output.Resolution.PortalURL = q.PortalURL(h.taxonomy.PortalBaseURL())
	}

	fields := map[string]interface{}{
		"requestId": res.RequestID,
		"key":       key,
		"matchedBy": output.MatchedBy,
	}
	if len(detail.Errors) > 0 {
		fields["failedSections"] = len(detail.Errors)
	}
	h.logger.Info("taxonomic detail fetched", fields)
	return output, nil
}

// searchBackbone finds a key when resolution did not produce one. The search term is
// the fallback q value, then the first resolved name, then the request text.
func (h *Handler) searchBackbone(ctx context.Context, res *engine.Result) (*gbif.Usage, error) {
	term := strings.TrimSpace(res.Outcome.Params.First("q"))
	rank := models.RankUnknown
	if term == "" {
		for _, rec := range res.Records {
			if name := rec.Mention.LookupName(); name != "" {
				term, rank = name, rec.Mention.Rank
				break
			}
		}
	}
	if term == "" {
		return nil, apperrors.NewClarificationRequiredError("no taxon name to look up", []string{"key"})
	}

	usage, err := h.taxonomy.SearchBackbone(ctx, term, rank)
	if err != nil {
		return nil, err
	}
	if usage == nil || usage.Key == "" {
		return nil, apperrors.NewClarificationRequiredError(
			fmt.Sprintf("no accepted backbone name matches %q", term), []string{"key"})
	}

	h.logger.Info("taxon key found by backbone search", map[string]interface{}{
		"term": term,
		"key":  string(usage.Key),
	})
	return usage, nil
}
