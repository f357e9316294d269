// internal/workers/gbif/count-records/config.go
package countrecords

import (
	"fmt"
	"time"

	"gbif-workers/internal/models"
)

const (
	TaskTypeOccurrences = "count-occurrence-records"
	TaskTypeSpecies     = "count-species-records"
)

var Operations = map[string]models.Operation{
	TaskTypeOccurrences: models.OperationOccurrenceFacets,
	TaskTypeSpecies:     models.OperationSpeciesFacets,
}

type Config struct {
	TaskType string
	Timeout  time.Duration
	// EnrichNames looks up scientific names for taxon-key facet counts.
	EnrichNames bool
}

func LoadConfig(taskType string) *Config {
	return &Config{
		TaskType:    taskType,
		Timeout:     60 * time.Second,
		EnrichNames: true,
	}
}

func (c *Config) Operation() models.Operation {
	return Operations[c.TaskType]
}

func (c *Config) Validate() error {
	if _, ok := Operations[c.TaskType]; !ok {
		return fmt.Errorf("unknown task type %q", c.TaskType)
	}
	return nil
}
