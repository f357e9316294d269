// internal/workers/gbif/count-records/models.go
package countrecords

import (
	"gbif-workers/internal/common/gbif"
	"gbif-workers/internal/workers/gbif/gbifjob"
)

type Input struct {
	gbifjob.Request
}

type Output struct {
	Resolution        gbifjob.Resolution `json:"resolution"`
	Count             int64              `json:"count"`
	Facets            []gbif.Facet       `json:"facets"`
	ArtifactID        string             `json:"artifactId"`
	ArtifactPublished bool               `json:"artifactPublished"`
}
