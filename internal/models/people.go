// internal/models/people.go
package models

type PersonStatus string

const (
	PersonFound       PersonStatus = "found"
	PersonNotFound    PersonStatus = "not_found"
	PersonNoGoodMatch PersonStatus = "no_good_match"
)

// PersonMatch is a collector or determiner name looked up in a people directory.
// Names holds every form under which the matched person is recorded.
type PersonMatch struct {
	Field      string       `json:"field,omitempty"`
	Original   string       `json:"original"`
	Status     PersonStatus `json:"status"`
	Name       string       `json:"name,omitempty"`
	Names      []string     `json:"names,omitempty"`
	Similarity float64      `json:"similarity,omitempty"`
	ORCID      string       `json:"orcid,omitempty"`
	Wikidata   string       `json:"wikidata,omitempty"`
}

func (p PersonMatch) Found() bool {
	return p.Status == PersonFound
}
