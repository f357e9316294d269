// internal/models/artifact.go
package models

import "time"

type ArtifactStatus string

const (
	ArtifactSucceeded ArtifactStatus = "succeeded"
	ArtifactFailed    ArtifactStatus = "failed"
)

// Artifact is the auditable record of one executed (or attempted) GBIF query.
type Artifact struct {
	ID          string         `json:"id"`
	RequestID   string         `json:"requestId,omitempty"`
	Operation   Operation      `json:"operation"`
	Description string         `json:"description"`
	Status      ArtifactStatus `json:"status"`
	APIURL      string         `json:"apiUrl"`
	PortalURL   string         `json:"portalUrl,omitempty"`
	Params      ParameterSet   `json:"params"`
	RecordCount int64          `json:"recordCount"`
	Returned    int            `json:"returned"`
	Truncated   bool           `json:"truncated"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
