// internal/common/bionomia/client.go
package bionomia

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"gbif-workers/internal/common/metrics"
	"gbif-workers/internal/models"
)

const (
	DefaultBaseURL   = "https://api.bionomia.net"
	SearchPath       = "/user.json"
	DefaultThreshold = 0.7
)

var ErrQueryTooShort = errors.New("name too short to look up")

// Getter fetches a URL and decodes its JSON body. *http.Client from
// internal/common/http satisfies it.
type Getter interface {
	GetJSON(ctx context.Context, url string, dest any) error
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
	// Threshold is the lowest similarity, between 0 and 1, a candidate needs.
	Threshold float64
}

// Client normalises collector and determiner names against the Bionomia people
// directory.
type Client struct {
	getter Getter
	config Config
	logger Logger
}

func NewClient(getter Getter, config Config, log Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	return &Client{
		getter: getter,
		config: config,
		logger: log.With(map[string]interface{}{"component": "bionomia-client"}),
	}
}

type person struct {
	ID              int      `json:"id"`
	ORCID           string   `json:"orcid"`
	Wikidata        string   `json:"wikidata"`
	Fullname        string   `json:"fullname"`
	FullnameReverse string   `json:"fullname_reverse"`
	Label           string   `json:"label"`
	OtherNames      []string `json:"other_names"`
}

func (p person) forms() []string {
	forms := []string{p.Fullname, p.Label, p.FullnameReverse}
	return append(forms, p.OtherNames...)
}

// names lists the recorded forms of the person, full name first.
func (p person) names() []string {
	var out []string
	seen := map[string]bool{}
	for _, n := range append([]string{p.Fullname, p.FullnameReverse}, p.OtherNames...) {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(n))
	}
	return out
}

// SearchURL is the people search for name, restricted to people with occurrences.
func (c *Client) SearchURL(name string) string {
	q := url.Values{}
	q.Set("q", name)
	q.Set("has_occurrences", "true")
	return c.config.BaseURL + SearchPath + "?" + q.Encode()
}

// Normalize looks name up and returns the best candidate scoring at least the
// threshold. A miss is a PersonMatch with a not-found status, not an error.
func (c *Client) Normalize(ctx context.Context, name string) (models.PersonMatch, error) {
	match := models.PersonMatch{Original: name, Status: models.PersonNotFound}
	if len([]rune(strings.TrimSpace(name))) < 3 {
		return match, fmt.Errorf("%w: %q", ErrQueryTooShort, name)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var candidates []person
	if err := c.getter.GetJSON(ctx, c.SearchURL(name), &candidates); err != nil {
		metrics.PersonLookups.WithLabelValues("error").Inc()
		return match, fmt.Errorf("bionomia search for %q: %w", name, err)
	}

	type scored struct {
		person     person
		similarity float64
	}
	var accepted []scored
	for _, p := range candidates {
		if s := Similarity(name, p.forms()...); s >= c.config.Threshold {
			accepted = append(accepted, scored{person: p, similarity: s})
		}
	}

	switch {
	case len(candidates) == 0:
		match.Status = models.PersonNotFound
	case len(accepted) == 0:
		match.Status = models.PersonNoGoodMatch
	default:
		sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].similarity > accepted[j].similarity })
		best := accepted[0]
		match.Status = models.PersonFound
		match.Name = best.person.Fullname
		match.Names = best.person.names()
		match.Similarity = best.similarity
		match.ORCID = best.person.ORCID
		match.Wikidata = best.person.Wikidata
	}
	metrics.PersonLookups.WithLabelValues(string(match.Status)).Inc()

	c.logger.Info("collector name normalised", map[string]interface{}{
		"name":       name,
		"status":     string(match.Status),
		"candidates": len(candidates),
		"similarity": match.Similarity,
	})
	return match, nil
}

// Similarity scores query against the best of forms, between 0 and 1. Name forms
// vary by initials and inversion, so character similarity is weighted together with
// token overlap and the share of query tokens found inside the form.
func Similarity(query string, forms ...string) float64 {
	q := clean(query)
	qTokens := strings.Fields(q)
	if len(qTokens) == 0 {
		return 0
	}

	best := 0.0
	for _, form := range forms {
		f := clean(form)
		if f == "" {
			continue
		}
		fTokens := strings.Fields(f)

		charSim := 1 - float64(fuzzy.LevenshteinDistance(q, f))/float64(maxLen(q, f))
		tokenSim := jaccard(qTokens, fTokens)
		present := 0
		for _, t := range qTokens {
			if strings.Contains(f, t) {
				present++
			}
		}
		substringSim := float64(present) / float64(len(qTokens))

		if combined := charSim*0.3 + tokenSim*0.4 + substringSim*0.3; combined > best {
			best = combined
		}
	}
	return best
}

func clean(name string) string {
	name = strings.NewReplacer(",", " ", ".", " ").Replace(strings.ToLower(name))
	return strings.Join(strings.Fields(name), " ")
}

func jaccard(a, b []string) float64 {
	set := map[string]int{}
	for _, t := range a {
		set[t] |= 1
	}
	for _, t := range b {
		set[t] |= 2
	}
	shared := 0
	for _, v := range set {
		if v == 3 {
			shared++
		}
	}
	return float64(shared) / float64(len(set))
}

func maxLen(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	if la > lb {
		return la
	}
	return lb
}
