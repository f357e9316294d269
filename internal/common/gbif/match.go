// internal/common/gbif/match.go
package gbif

import (
	"context"
	"net/url"
	"strings"

	"gbif-workers/internal/models"
)

type matchUsage struct {
	Key  Key    `json:"key"`
	Name string `json:"name"`
	Rank string `json:"rank"`
}

type matchDiagnostics struct {
	MatchType  string `json:"matchType"`
	Confidence int    `json:"confidence"`
}

type matchResponse struct {
	Usage       *matchUsage `json:"usage"`
	Diagnostics struct {
		matchDiagnostics
		Alternatives []struct {
			Usage       *matchUsage      `json:"usage"`
			Diagnostics matchDiagnostics `json:"diagnostics"`
		} `json:"alternatives"`
	} `json:"diagnostics"`
}

// MatchURL is the backbone name-match call for name at rank.
func (c *Client) MatchURL(name string, rank models.Rank) string {
	q := url.Values{}
	q.Set("scientificName", name)
	if rank.Valid() {
		q.Set("taxonRank", strings.ToUpper(rank.String()))
	}
	q.Set("verbose", "true")
	return c.config.V2BaseURL + "/species/match?" + q.Encode()
}

// Match looks name up in the backbone. The matched usage and every alternative are
// returned as candidates. When the service reports matchType NONE its alternatives
// come back marked Unmatched; an unmatched name with no alternatives yields none.
func (c *Client) Match(ctx context.Context, name string, rank models.Rank) ([]models.MatchCandidate, error) {
	var resp matchResponse
	if err := c.getJSON(ctx, c.MatchURL(name, rank), &resp); err != nil {
		return nil, err
	}

	matched := resp.Usage != nil && resp.Usage.Key != "" && !strings.EqualFold(resp.Diagnostics.MatchType, "NONE")

	var candidates []models.MatchCandidate
	if matched {
		candidates = append(candidates, candidate(resp.Usage, resp.Diagnostics.Confidence))
	}
	for _, alt := range resp.Diagnostics.Alternatives {
		if alt.Usage != nil && alt.Usage.Key != "" {
			c := candidate(alt.Usage, alt.Diagnostics.Confidence)
			c.Unmatched = !matched
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

func candidate(u *matchUsage, confidence int) models.MatchCandidate {
	rank, _ := models.ParseRank(u.Rank)
	return models.MatchCandidate{
		Key:        string(u.Key),
		Name:       u.Name,
		Rank:       rank,
		Confidence: confidence,
	}
}
