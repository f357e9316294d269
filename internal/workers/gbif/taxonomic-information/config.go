// internal/workers/gbif/taxonomic-information/config.go
package taxonomicinformation

import "time"

type Config struct {
	Timeout time.Duration
	// ListLimit caps the children and synonyms sections.
	ListLimit int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:   60 * time.Second,
		ListLimit: 20,
	}
}
