// internal/common/gbif/client.go
package gbif

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"

	apperrors "gbif-workers/internal/common/errors"
)

const (
	DefaultAPIBaseURL         = "https://api.gbif.org/v1"
	DefaultV2BaseURL          = "https://api.gbif.org/v2"
	DefaultPortalBaseURL      = "https://www.gbif.org"
	DefaultBackboneDatasetKey = "d7dddbf4-2cf0-4f39-9b2a-bb099caae36c"
	DefaultPageSize           = 300
)

// Executor performs a GET and returns the body of a successful response.
// *http.Client from internal/common/http and CachedExecutor both satisfy it.
type Executor interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Config struct {
	APIBaseURL         string
	V2BaseURL          string
	PortalBaseURL      string
	PageSize           int
	BackboneDatasetKey string
	// EnrichConcurrency bounds parallel /species/{key} calls during facet enrichment.
	EnrichConcurrency int
}

// Client talks to the GBIF API. It never retries itself; transport retries are the
// executor's business.
type Client struct {
	exec   Executor
	config Config
	logger Logger
}

func NewClient(exec Executor, config Config, log Logger) *Client {
	if config.APIBaseURL == "" {
		config.APIBaseURL = DefaultAPIBaseURL
	}
	if config.V2BaseURL == "" {
		config.V2BaseURL = DefaultV2BaseURL
	}
	if config.PortalBaseURL == "" {
		config.PortalBaseURL = DefaultPortalBaseURL
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.BackboneDatasetKey == "" {
		config.BackboneDatasetKey = DefaultBackboneDatasetKey
	}
	if config.EnrichConcurrency <= 0 {
		config.EnrichConcurrency = 8
	}
	config.APIBaseURL = strings.TrimRight(config.APIBaseURL, "/")
	config.V2BaseURL = strings.TrimRight(config.V2BaseURL, "/")
	config.PortalBaseURL = strings.TrimRight(config.PortalBaseURL, "/")

	return &Client{
		exec:   exec,
		config: config,
		logger: log.With(map[string]interface{}{"component": "gbif-client"}),
	}
}

func (c *Client) APIBaseURL() string    { return c.config.APIBaseURL }
func (c *Client) PortalBaseURL() string { return c.config.PortalBaseURL }

// getJSON fetches url and decodes it into dest. Failures come back as
// GBIF_TIMEOUT or GBIF_REQUEST_FAILED StandardErrors carrying the URL.
func (c *Client) getJSON(ctx context.Context, url string, dest any) error {
	body, err := c.exec.Get(ctx, url)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return apperrors.NewGBIFTimeoutError(url)
		}
		return apperrors.NewGBIFRequestFailedError(url, err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return apperrors.NewGBIFRequestFailedError(url, err)
	}
	return nil
}

// Key is a GBIF identifier. The API returns keys as numbers on v1 and as strings on
// v2; both decode to the same value.
type Key string

func (k *Key) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = Key(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*k = Key(n.String())
	return nil
}
