// internal/workers/gbif/find-records/models.go
package findrecords

import (
	"encoding/json"

	"gbif-workers/internal/workers/gbif/gbifjob"
)

type Input struct {
	gbifjob.Request
	MaxRecords int `json:"maxRecords,omitempty"`
}

type Output struct {
	Resolution        gbifjob.Resolution `json:"resolution"`
	Count             int64              `json:"count"`
	Returned          int                `json:"returned"`
	Truncated         bool               `json:"truncated"`
	Partial           bool               `json:"partial,omitempty"`
	Results           []json.RawMessage  `json:"results"`
	ArtifactID        string             `json:"artifactId"`
	ArtifactPublished bool               `json:"artifactPublished"`
}
