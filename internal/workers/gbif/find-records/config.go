// internal/workers/gbif/find-records/config.go
package findrecords

import (
	"fmt"
	"time"

	"gbif-workers/internal/models"
)

const (
	TaskTypeOccurrences = "find-occurrence-records"
	TaskTypeSpecies     = "find-species-records"
	TaskTypeDatasets    = "find-datasets"
)

// Operations maps each task type served by this package to its operation.
var Operations = map[string]models.Operation{
	TaskTypeOccurrences: models.OperationOccurrenceSearch,
	TaskTypeSpecies:     models.OperationSpeciesSearch,
	TaskTypeDatasets:    models.OperationDatasetSearch,
}

type Config struct {
	TaskType string
	Timeout  time.Duration
	// MaxRecords caps a request that does not set its own maxRecords.
	MaxRecords int
	// RecordLimit is the hard upper bound on maxRecords.
	RecordLimit int
}

func LoadConfig(taskType string) *Config {
	return &Config{
		TaskType:    taskType,
		Timeout:     120 * time.Second,
		MaxRecords:  300,
		RecordLimit: 10000,
	}
}

func (c *Config) Operation() models.Operation {
	return Operations[c.TaskType]
}

func (c *Config) Validate() error {
	if _, ok := Operations[c.TaskType]; !ok {
		return fmt.Errorf("unknown task type %q", c.TaskType)
	}
	if c.MaxRecords <= 0 || c.RecordLimit < c.MaxRecords {
		return fmt.Errorf("invalid record limits: max %d, limit %d", c.MaxRecords, c.RecordLimit)
	}
	return nil
}
