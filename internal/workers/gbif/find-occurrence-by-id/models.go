// internal/workers/gbif/find-occurrence-by-id/models.go
package findoccurrencebyid

import (
	"encoding/json"

	"gbif-workers/internal/workers/gbif/gbifjob"
)

// Input accepts the occurrence id directly as gbifId, or lets the engine find it in
// the request text.
type Input struct {
	gbifjob.Request
	GbifID string `json:"gbifId,omitempty"`
}

type Output struct {
	Resolution        gbifjob.Resolution `json:"resolution"`
	Occurrence        json.RawMessage    `json:"occurrence"`
	ArtifactID        string             `json:"artifactId"`
	ArtifactPublished bool               `json:"artifactPublished"`
}
