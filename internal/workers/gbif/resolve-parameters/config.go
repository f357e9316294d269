// internal/workers/gbif/resolve-parameters/config.go
package resolveparameters

import "time"

type Config struct {
	Timeout       time.Duration
	APIBaseURL    string
	PortalBaseURL string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		APIBaseURL:    "https://api.gbif.org/v1",
		PortalBaseURL: "https://www.gbif.org",
	}
}
