// internal/workers/gbif/gbifjob/gbifjob.go
//
// Package gbifjob holds the job payload and engine plumbing shared by the GBIF
// workers.
package gbifjob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/common/validation"
	"gbif-workers/internal/engine"
	"gbif-workers/internal/engine/query"
	"gbif-workers/internal/models"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
)

// Resolver is satisfied by *engine.Engine.
type Resolver interface {
	Resolve(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Request is the part of a job payload every GBIF worker accepts. Params, Mentions
// and the locations are known values, typically the answer to an earlier
// clarification. Location is the single-place form of Locations.
type Request struct {
	Request   string                 `json:"request"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Mentions  []models.NameMention   `json:"mentions,omitempty"`
	Location  *models.Location       `json:"location,omitempty"`
	Locations []models.Location      `json:"locations,omitempty"`
}

var requestSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"request":    {Type: "string"},
		"operation":  {Type: "string"},
		"params":     {Type: "object"},
		"mentions":   {Type: "array"},
		"location":   {Type: "object"},
		"locations":  {Type: "array"},
		"maxRecords": {Type: "integer", Minimum: validation.Float(0)},
	},
	Required:             []string{"request"},
	AdditionalProperties: true,
}

// Validate checks the raw job variables before they are decoded.
func Validate(vars map[string]interface{}) error {
	result := validation.ValidateInput(vars, requestSchema)
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidInput, result.Summary())
	}
	if s, _ := vars["request"].(string); strings.TrimSpace(s) == "" {
		if _, ok := vars["params"]; !ok {
			return fmt.Errorf("%w: request text or params required", ErrInvalidInput)
		}
	}
	return nil
}

func (r Request) locations() []models.Location {
	var locs []models.Location
	if r.Location != nil && !r.Location.Empty() {
		locs = append(locs, *r.Location)
	}
	for _, loc := range r.Locations {
		if !loc.Empty() {
			locs = append(locs, loc)
		}
	}
	return locs
}

// EngineRequest builds the engine request for op.
func (r Request) EngineRequest(op models.Operation) (engine.Request, error) {
	req := engine.Request{
		Text:      r.Request,
		Operation: op,
		Mentions:  r.Mentions,
		Locations: r.locations(),
	}
	if r.Params != nil {
		params, err := models.ParameterSetFromMap(r.Params)
		if err != nil {
			return engine.Request{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		req.Params = params
	}
	return req, nil
}

// Resolution is the engine outcome as written back to the process.
type Resolution struct {
	RequestID     string                       `json:"requestId"`
	Operation     models.Operation             `json:"operation"`
	Outcome       models.OutcomeKind           `json:"outcome"`
	Params        models.ParameterSet          `json:"params"`
	Degraded      []models.DegradedField       `json:"degraded,omitempty"`
	Clarification *models.ClarificationRequest `json:"clarification,omitempty"`
	Records       []models.ResolutionRecord    `json:"records,omitempty"`
	Attempts      int                          `json:"attempts"`
	APIURL        string                       `json:"apiUrl,omitempty"`
	PortalURL     string                       `json:"portalUrl,omitempty"`
}

func NewResolution(res *engine.Result, apiBase, portalBase string) Resolution {
	out := Resolution{
		RequestID:     res.RequestID,
		Operation:     res.Operation,
		Outcome:       res.Outcome.Kind,
		Params:        res.Outcome.Params,
		Degraded:      res.Outcome.Degraded,
		Clarification: res.Outcome.Clarification,
		Records:       res.Records,
		Attempts:      res.Attempts,
	}
	if res.Query != nil {
		out.APIURL = res.Query.APIURL(apiBase)
		out.PortalURL = res.Query.PortalURL(portalBase)
	}
	return out
}

// Clarification returns the CLARIFICATION_REQUIRED error for a result that stopped
// short of a query, or nil.
func Clarification(res *engine.Result) error {
	if res.Outcome.Executable() {
		return nil
	}
	c := res.Outcome.Clarification
	if c == nil {
		return apperrors.NewClarificationRequiredError("request needs clarification", nil)
	}
	err := apperrors.NewClarificationRequiredError(c.Reason, c.UnresolvedFields)
	err.Metadata["requestId"] = res.RequestID
	return err
}

// ExecutableQuery returns the assembled query of an executable result. A missing
// query means a path parameter could not be resolved.
func ExecutableQuery(res *engine.Result) (query.Query, error) {
	if err := Clarification(res); err != nil {
		return query.Query{}, err
	}
	if res.Query == nil {
		return query.Query{}, apperrors.NewClarificationRequiredError(
			fmt.Sprintf("%s needs an identifier the request does not give", res.Operation), nil)
	}
	return *res.Query, nil
}
