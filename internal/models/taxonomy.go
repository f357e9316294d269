// internal/models/taxonomy.go
package models

import (
	"fmt"
	"strings"
)

// Rank is a taxonomic level. The values index a fixed-size table ordered from the
// least to the most specific rank.
type Rank int

const (
	RankUnknown Rank = iota - 1
	RankKingdom
	RankPhylum
	RankClass
	RankOrder
	RankFamily
	RankGenus
	RankSpecies
)

// RankCount is the number of ranks that map onto an identifier field.
const RankCount = int(RankSpecies) + 1

var rankNames = [RankCount]string{"kingdom", "phylum", "class", "order", "family", "genus", "species"}

var rankKeyFields = [RankCount]string{"kingdomKey", "phylumKey", "classKey", "orderKey", "familyKey", "genusKey", "speciesKey"}

// ParseRank accepts rank names in any case, e.g. "GENUS" as returned by GBIF.
func ParseRank(s string) (Rank, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range rankNames {
		if name == s {
			return Rank(i), true
		}
	}
	return RankUnknown, false
}

func (r Rank) Valid() bool {
	return r >= RankKingdom && r <= RankSpecies
}

func (r Rank) String() string {
	if !r.Valid() {
		return ""
	}
	return rankNames[r]
}

// KeyField is the query parameter carrying an identifier at this rank.
func (r Rank) KeyField() string {
	if !r.Valid() {
		return ""
	}
	return rankKeyFields[r]
}

// RankForKeyField maps "genusKey" back to RankGenus.
func RankForKeyField(field string) (Rank, bool) {
	for i, f := range rankKeyFields {
		if f == field {
			return Rank(i), true
		}
	}
	return RankUnknown, false
}

func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = RankUnknown
		return nil
	}
	parsed, ok := ParseRank(string(text))
	if !ok {
		// Ranks below species (subspecies, variety) are not part of the key table.
		*r = RankUnknown
		return nil
	}
	*r = parsed
	return nil
}

// NameMention is a taxon name found in the request text.
type NameMention struct {
	TermFound      string `json:"termFound"`
	ScientificName string `json:"scientificName,omitempty"`
	Rank           Rank   `json:"rank"`
}

// LookupName is the name sent to the name-match service.
func (m NameMention) LookupName() string {
	if s := strings.TrimSpace(m.ScientificName); s != "" {
		return s
	}
	return strings.TrimSpace(m.TermFound)
}

// LookupKey identifies a lookup; identical keys within a request share one call.
func (m NameMention) LookupKey() string {
	return fmt.Sprintf("%s|%s", strings.ToLower(m.LookupName()), m.Rank)
}

type ResolutionStatus string

const (
	StatusResolved  ResolutionStatus = "resolved"
	StatusAmbiguous ResolutionStatus = "ambiguous"
	StatusNotFound  ResolutionStatus = "not_found"
)

// ResolutionRecord is the provenance of one name mention.
type ResolutionRecord struct {
	Mention      NameMention      `json:"mention"`
	ResolvedKey  string           `json:"resolvedKey,omitempty"`
	ResolvedName string           `json:"resolvedName,omitempty"`
	ResolvedRank Rank             `json:"resolvedRank"`
	Status       ResolutionStatus `json:"status"`
	Detail       string           `json:"detail,omitempty"`
}

func (r ResolutionRecord) Resolved() bool {
	return r.Status == StatusResolved
}

// MatchCandidate is one answer from the name-match lookup.
type MatchCandidate struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Rank       Rank   `json:"rank"`
	Confidence int    `json:"confidence"`
	// Unmatched marks an alternative offered when the service declined to pick a
	// match; it never resolves on its own.
	Unmatched bool `json:"unmatched,omitempty"`
}
