// internal/workers/gbif/gbifjob/artifact.go
package gbifjob

import (
	"context"

	"gbif-workers/internal/common/artifact"
	"gbif-workers/internal/engine"
	"gbif-workers/internal/engine/query"
	"gbif-workers/internal/models"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Executed describes one GBIF call made for a resolved request.
type Executed struct {
	Description string
	Query       query.Query
	APIBase     string
	PortalBase  string
	RecordCount int64
	Returned    int
	Err         error
}

// PublishArtifact records the call. A publish failure is logged and reported as
// false; the job result does not depend on it.
func PublishArtifact(ctx context.Context, p artifact.Publisher, log Logger, res *engine.Result, ex Executed) (string, bool) {
	a := artifact.New(res.Operation, ex.Description)
	a.RequestID = res.RequestID
	a.APIURL = ex.Query.APIURL(ex.APIBase)
	a.PortalURL = ex.Query.PortalURL(ex.PortalBase)
	a.Params = res.Outcome.Params
	a.RecordCount = ex.RecordCount
	a.Returned = ex.Returned
	a.Truncated = ex.RecordCount > int64(ex.Returned) && ex.Returned > 0
	if ex.Err != nil {
		a.Status = models.ArtifactFailed
		a.Error = ex.Err.Error()
	}

	if err := p.Publish(ctx, a); err != nil {
		log.Warn("artifact not published", map[string]interface{}{
			"artifactId": a.ID,
			"error":      err.Error(),
		})
		return a.ID, false
	}
	return a.ID, true
}
