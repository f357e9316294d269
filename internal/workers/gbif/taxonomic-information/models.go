// internal/workers/gbif/taxonomic-information/models.go
package taxonomicinformation

import (
	"gbif-workers/internal/common/gbif"
	"gbif-workers/internal/workers/gbif/gbifjob"
)

type Input struct {
	gbifjob.Request
}

type Output struct {
	Resolution gbifjob.Resolution `json:"resolution"`
	Key        string             `json:"key"`

	// MatchedBy is "resolution" when the engine produced the key and "backbone_search"
	// when it came from the fallback search.
	MatchedBy         string            `json:"matchedBy"`
	MatchedName       string            `json:"matchedName,omitempty"`
	Detail            *gbif.TaxonDetail `json:"detail"`
	ArtifactID        string            `json:"artifactId"`
	ArtifactPublished bool              `json:"artifactPublished"`
}

const (
	MatchedByResolution     = "resolution"
	MatchedByBackboneSearch = "backbone_search"
)
