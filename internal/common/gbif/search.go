// internal/common/gbif/search.go
package gbif

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"gbif-workers/internal/engine/query"
)

type FacetCount struct {
	Name           string `json:"name"`
	Count          int64  `json:"count"`
	ScientificName string `json:"scientificName,omitempty"`
}

type Facet struct {
	Field  string       `json:"field"`
	Counts []FacetCount `json:"counts"`
}

// SearchResponse is the paging envelope shared by occurrence, species and dataset
// search.
type SearchResponse struct {
	Offset       int               `json:"offset"`
	Limit        int               `json:"limit"`
	EndOfRecords bool              `json:"endOfRecords"`
	Count        int64             `json:"count"`
	Results      []json.RawMessage `json:"results"`
	Facets       []Facet           `json:"facets,omitempty"`
}

// Search runs one page of q against the API.
func (c *Client) Search(ctx context.Context, q query.Query) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.getJSON(ctx, q.APIURL(c.config.APIBaseURL), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fetch returns the raw body of q, for endpoints that address a single record.
func (c *Client) Fetch(ctx context.Context, q query.Query) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, q.APIURL(c.config.APIBaseURL), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Page is the outcome of FetchAll.
type Page struct {
	Count   int64             `json:"count"`
	Results []json.RawMessage `json:"results"`
	// Partial is set when a later page failed after earlier pages succeeded.
	Partial bool `json:"partial,omitempty"`
}

// FetchAll pages through q in batches of the configured page size until maxRecords
// results are collected or the API reports the end. Paging starts at the offset q
// carries. A failure on the first page is returned; a failure after that keeps what
// was fetched.
func (c *Client) FetchAll(ctx context.Context, q query.Query, maxRecords int) (*Page, error) {
	page := &Page{}
	offset := StartOffset(q)
	for maxRecords <= 0 || len(page.Results) < maxRecords {
		limit := c.config.PageSize
		if maxRecords > 0 && maxRecords-len(page.Results) < limit {
			limit = maxRecords - len(page.Results)
		}
		paged := q.With("limit", strconv.Itoa(limit)).With("offset", strconv.Itoa(offset))

		resp, err := c.Search(ctx, paged)
		if err != nil {
			if len(page.Results) == 0 {
				return nil, err
			}
			c.logger.Warn("stopping pagination after error", map[string]interface{}{
				"offset":  offset,
				"fetched": len(page.Results),
				"error":   err.Error(),
			})
			page.Partial = true
			break
		}

		page.Count = resp.Count
		page.Results = append(page.Results, resp.Results...)
		offset += len(resp.Results)

		if resp.EndOfRecords || len(resp.Results) < limit || (resp.Count > 0 && int64(offset) >= resp.Count) {
			break
		}
	}
	return page, nil
}

// StartOffset is the offset q asks for, or 0.
func StartOffset(q query.Query) int {
	if v := q.Get("offset"); len(v) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(v[0])); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// nameFacets hold backbone keys whose display names can be looked up.
var nameFacets = map[string]bool{
	"KINGDOM_KEY": true,
	"PHYLUM_KEY":  true,
	"CLASS_KEY":   true,
	"ORDER_KEY":   true,
	"FAMILY_KEY":  true,
	"GENUS_KEY":   true,
	"SPECIES_KEY": true,
	"TAXON_KEY":   true,
}

// EnrichFacets fills ScientificName on taxon-key facet counts. Lookups that fail
// leave the count unnamed.
func (c *Client) EnrichFacets(ctx context.Context, facets []Facet) {
	var (
		mu    sync.Mutex
		names = make(map[string]string)
		keys  []string
		seen  = make(map[string]bool)
	)
	for _, f := range facets {
		if !nameFacets[strings.ToUpper(f.Field)] {
			continue
		}
		for _, count := range f.Counts {
			if count.Name != "" && !seen[count.Name] {
				seen[count.Name] = true
				keys = append(keys, count.Name)
			}
		}
	}
	if len(keys) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.EnrichConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			usage, err := c.Usage(gctx, key)
			if err != nil {
				c.logger.Warn("facet name lookup failed", map[string]interface{}{"key": key, "error": err.Error()})
				return nil
			}
			mu.Lock()
			names[key] = usage.ScientificName
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i := range facets {
		for j := range facets[i].Counts {
			if name, ok := names[facets[i].Counts[j].Name]; ok {
				facets[i].Counts[j].ScientificName = name
			}
		}
	}
}
