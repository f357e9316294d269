// internal/common/gbif/taxon.go
package gbif

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"gbif-workers/internal/models"
)

// Usage is the subset of a backbone name usage the workers read.
type Usage struct {
	Key             Key    `json:"key"`
	ScientificName  string `json:"scientificName"`
	CanonicalName   string `json:"canonicalName,omitempty"`
	Rank            string `json:"rank,omitempty"`
	TaxonomicStatus string `json:"taxonomicStatus,omitempty"`
}

func (c *Client) UsageURL(key string) string {
	return c.config.APIBaseURL + "/species/" + url.PathEscape(key)
}

func (c *Client) Usage(ctx context.Context, key string) (*Usage, error) {
	var u Usage
	if err := c.getJSON(ctx, c.UsageURL(key), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// BackboneSearchURL finds accepted backbone usages for free text.
func (c *Client) BackboneSearchURL(q string, rank models.Rank) string {
	v := url.Values{}
	v.Set("q", q)
	v.Set("status", "ACCEPTED")
	v.Set("datasetKey", c.config.BackboneDatasetKey)
	if rank.Valid() {
		v.Set("rank", rank.String())
	}
	v.Set("limit", "1")
	return c.config.APIBaseURL + "/species/search?" + v.Encode()
}

// SearchBackbone returns the best accepted usage for q, or nil when nothing matches.
func (c *Client) SearchBackbone(ctx context.Context, q string, rank models.Rank) (*Usage, error) {
	var resp struct {
		Results []Usage `json:"results"`
	}
	if err := c.getJSON(ctx, c.BackboneSearchURL(q, rank), &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// Section names of a TaxonDetail.
const (
	SectionBasic      = "basic"
	SectionParsedName = "parsed_name"
	SectionParents    = "parents"
	SectionChildren   = "children"
	SectionSynonyms   = "synonyms"
)

// TaxonDetail bundles the views of one backbone usage. A section whose call failed
// is absent from Sections and its error is kept in Errors.
type TaxonDetail struct {
	Key      string                     `json:"key"`
	Sections map[string]json.RawMessage `json:"sections"`
	Errors   map[string]string          `json:"errors,omitempty"`
}

func (c *Client) TaxonURLs(key string, listLimit int) map[string]string {
	base := c.UsageURL(key)
	page := "?limit=" + strconv.Itoa(listLimit) + "&offset=0"
	return map[string]string{
		SectionBasic:      base,
		SectionParsedName: base + "/name",
		SectionParents:    base + "/parents",
		SectionChildren:   base + "/children" + page,
		SectionSynonyms:   base + "/synonyms" + page,
	}
}

// TaxonDetail fetches every section concurrently. It only fails when all sections do.
func (c *Client) TaxonDetail(ctx context.Context, key string, listLimit int) (*TaxonDetail, error) {
	if listLimit <= 0 {
		listLimit = 20
	}
	detail := &TaxonDetail{
		Key:      key,
		Sections: make(map[string]json.RawMessage),
		Errors:   make(map[string]string),
	}

	var (
		mu      sync.Mutex
		lastErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	for section, u := range c.TaxonURLs(key, listLimit) {
		g.Go(func() error {
			var raw json.RawMessage
			err := c.getJSON(gctx, u, &raw)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				detail.Errors[section] = err.Error()
				lastErr = err
				return nil
			}
			detail.Sections[section] = raw
			return nil
		})
	}
	_ = g.Wait()

	if len(detail.Sections) == 0 && lastErr != nil {
		return nil, lastErr
	}
	if len(detail.Errors) == 0 {
		detail.Errors = nil
	}
	return detail, nil
}
