// internal/workers/gbif/find-occurrence-by-id/config.go
package findoccurrencebyid

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
