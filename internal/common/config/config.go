// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Engine       EngineConfig            `mapstructure:"engine"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	APIs         APIsConfig              `mapstructure:"apis"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPAddress string `mapstructure:"http_address"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
	GADM  GADMConfig  `mapstructure:"gadm"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GADMConfig points at the GADM GeoPackage used for administrative boundaries.
type GADMConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Table   string `mapstructure:"table"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// EngineConfig tunes parameter resolution.
type EngineConfig struct {
	MaxAttempts        int    `mapstructure:"max_attempts"`
	LookupTimeout      int    `mapstructure:"lookup_timeout"` // milliseconds, per name lookup
	SchemaRegistryPath string `mapstructure:"schema_registry_path"`
}

// IntegrationConfig holds settings for AWS services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled          bool   `mapstructure:"enabled"`
			ArtifactTopicARN string `mapstructure:"artifact_topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GBIF     GBIFConfig     `mapstructure:"gbif"`
	GenAI    GenAIConfig    `mapstructure:"genai"`
	Bionomia BionomiaConfig `mapstructure:"bionomia"`
}

type GBIFConfig struct {
	APIBaseURL         string `mapstructure:"api_base_url"`
	V2BaseURL          string `mapstructure:"v2_base_url"`
	PortalBaseURL      string `mapstructure:"portal_base_url"`
	Timeout            int    `mapstructure:"timeout"` // milliseconds
	MaxRetries         int    `mapstructure:"max_retries"`
	PageSize           int    `mapstructure:"page_size"`
	MaxRecords         int    `mapstructure:"max_records"`
	CacheEnabled       bool   `mapstructure:"cache_enabled"`
	CacheTTL           int    `mapstructure:"cache_ttl"` // seconds
	BackboneDatasetKey string `mapstructure:"backbone_dataset_key"`
}

type GenAIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// BionomiaConfig controls collector name normalisation.
type BionomiaConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	BaseURL   string  `mapstructure:"base_url"`
	Timeout   int     `mapstructure:"timeout"` // milliseconds
	Threshold float64 `mapstructure:"threshold"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
