// internal/workers/gbif/gbifjob/job.go
package gbifjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/common/metrics"
)

// Recorder receives OpenTelemetry job and query measurements.
// *observability.Observability implements it.
type Recorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
	RecordQuery(ctx context.Context, operation, outcome string)
}

// Track marks a job active and returns the func that closes it out with an error
// code, or "" on success. rec may be nil.
func Track(rec Recorder, taskType string) func(errorCode string) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()

	return func(errorCode string) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
		status := "completed"
		if errorCode != "" {
			status = "failed"
			metrics.WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
		} else {
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		}
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())

		if rec != nil {
			ctx := context.Background()
			rec.RecordJobProcessed(ctx, taskType, status)
			rec.RecordJobDuration(ctx, taskType, time.Since(start), status)
		}
	}
}

// ErrorCode is the metric label for err.
func ErrorCode(err error) string {
	if errors.Is(err, ErrInvalidInput) {
		return ErrInvalidInput.Error()
	}
	return string(apperrors.FromResolutionError(err).Code)
}

type JobLogger interface {
	Error(msg string, fields map[string]interface{})
}

func Complete(client worker.JobClient, job entities.Job, output interface{}, log JobLogger) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		log.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		log.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// FailInput fails a job whose variables cannot be used. Retrying would not help.
func FailInput(client worker.JobClient, job entities.Job, err error, log JobLogger) {
	log.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": ErrInvalidInput.Error(),
	})

	_, _ = client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(0).
		ErrorMessage(err.Error()).
		Send(context.Background())
}

// Decode validates the job variables and unmarshals them into dest.
func Decode(job entities.Job, dest interface{}) error {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := Validate(vars); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(job.Variables), dest); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
