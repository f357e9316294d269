// internal/workers/gbif/resolve-parameters/models.go
package resolveparameters

import (
	"gbif-workers/internal/models"
	"gbif-workers/internal/workers/gbif/gbifjob"
)

type Input struct {
	gbifjob.Request
	Operation models.Operation `json:"operation"`
}

// Output carries either an executable parameter set or the clarification that
// stopped the engine.
type Output struct {
	Resolution gbifjob.Resolution `json:"resolution"`
	Executable bool               `json:"executable"`
}
