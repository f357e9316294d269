// internal/common/genai/client.go
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/common/validation"
	"gbif-workers/internal/engine"
	"gbif-workers/internal/models"
)

const ExtractPath = "/api/ai/extract-parameters"

// Poster sends a JSON body and decodes the JSON reply.
type Poster interface {
	PostJSON(ctx context.Context, url string, payload, dest any) error
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client asks the structured extraction service for a parameter set. It implements
// engine.Extractor. A reply that does not match the response schema is an
// EXTRACTION_FAILED error, never a partial extraction.
type Client struct {
	poster Poster
	config Config
	logger Logger
}

func NewClient(poster Poster, config Config, log Logger) *Client {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{
		poster: poster,
		config: config,
		logger: log.With(map[string]interface{}{"component": "extraction-client"}),
	}
}

var locationProperties = map[string]validation.Property{
	"continent":  {Type: "string"},
	"country":    {Type: "string"},
	"countryIso": {Type: "string"},
	"state":      {Type: "string"},
	"county":     {Type: "string"},
	"locality":   {Type: "string"},
}

var responseValidator = validation.MustCompile(validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"params": {Type: "object"},
		"mentions": {
			Type: "array",
			Items: &validation.Property{
				Type:     "object",
				Required: []string{"termFound"},
				Properties: map[string]validation.Property{
					"termFound":      {Type: "string", MinLength: validation.Int(1)},
					"scientificName": {Type: "string"},
					"rank":           {Type: "string"},
				},
			},
		},
		"location":  {Properties: locationProperties},
		"locations": {Type: "array", Items: &validation.Property{Type: "object", Properties: locationProperties}},
	},
	Required:             []string{"params"},
	AdditionalProperties: true,
})

type extractResponse struct {
	Params   map[string]interface{} `json:"params"`
	Mentions []models.NameMention   `json:"mentions"`
	// Older prompts answer with a single location.
	Location  *models.Location  `json:"location"`
	Locations []models.Location `json:"locations"`
}

func (r extractResponse) locations() []models.Location {
	locs := append([]models.Location(nil), r.Locations...)
	if r.Location != nil && !r.Location.Empty() {
		locs = append([]models.Location{*r.Location}, locs...)
	}
	return locs
}

func (c *Client) Extract(ctx context.Context, req engine.ExtractionRequest) (*engine.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	var raw json.RawMessage
	if err := c.poster.PostJSON(ctx, c.config.BaseURL+ExtractPath, req, &raw); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewExtractionTimeoutError()
		}
		return nil, apperrors.NewExtractionFailedError(err)
	}

	if result := responseValidator.ValidateBytes(raw); !result.Valid {
		return nil, apperrors.NewExtractionFailedError(fmt.Errorf("malformed extraction: %s", result.Summary()))
	}

	var resp extractResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperrors.NewExtractionFailedError(err)
	}
	params, err := models.ParameterSetFromMap(resp.Params)
	if err != nil {
		return nil, apperrors.NewExtractionFailedError(err)
	}

	c.logger.Info("parameters extracted", map[string]interface{}{
		"operation": req.Operation,
		"attempt":   req.Attempt,
		"fields":    params.Fields(),
		"mentions":  len(resp.Mentions),
		"duration":  time.Since(start).String(),
	})

	return &engine.Extraction{
		Params:    params,
		Mentions:  resp.Mentions,
		Locations: resp.locations(),
	}, nil
}
