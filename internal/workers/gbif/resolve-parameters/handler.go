// internal/workers/gbif/resolve-parameters/handler.go
package resolveparameters

import (
	"context"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/workers/gbif/gbifjob"
)

const (
	TaskType = "resolve-gbif-parameters"
)

var (
	ErrOperationRequired = errors.New("OPERATION_REQUIRED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Handler runs the resolution engine alone. A clarification is a normal result here,
// returned to the process instead of thrown.
type Handler struct {
	config   *Config
	resolver gbifjob.Resolver
	recorder gbifjob.Recorder
	errors   *apperrors.ErrorHandler
	logger   Logger
}

func NewHandler(config *Config, resolver gbifjob.Resolver, recorder gbifjob.Recorder, log Logger) *Handler {
	l := log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		resolver: resolver,
		recorder: recorder,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
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
		if errors.Is(err, gbifjob.ErrInvalidInput) || errors.Is(err, ErrOperationRequired) {
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
	if input.Operation == "" {
		return nil, fmt.Errorf("%w: operation is required", ErrOperationRequired)
	}
	if !input.Operation.Valid() {
		return nil, apperrors.NewInvalidOperationError(string(input.Operation))
	}

	req, err := input.EngineRequest(input.Operation)
	if err != nil {
		return nil, err
	}

	res, err := h.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Resolution: gbifjob.NewResolution(res, h.config.APIBaseURL, h.config.PortalBaseURL),
		Executable: res.Outcome.Executable(),
	}

	h.logger.Info("parameters resolved", map[string]interface{}{
		"requestId": res.RequestID,
		"operation": string(res.Operation),
		"outcome":   string(res.Outcome.Kind),
		"attempts":  res.Attempts,
	})
	return output, nil
}
