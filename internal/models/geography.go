// internal/models/geography.go
package models

import "strings"

// BoundaryLevel orders administrative levels from coarse to fine.
type BoundaryLevel int

const (
	LevelContinent BoundaryLevel = iota
	LevelCountry
	LevelState
	LevelCounty
	LevelLocality
)

var levelNames = []string{"continent", "country", "state", "county", "locality"}

func (l BoundaryLevel) String() string {
	if l < LevelContinent || l > LevelLocality {
		return "unknown"
	}
	return levelNames[l]
}

// GADMLevel is the GADM hierarchy depth for the level (country = 0).
func (l BoundaryLevel) GADMLevel() int {
	return int(l) - 1
}

func (l BoundaryLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *BoundaryLevel) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range levelNames {
		if name == s {
			*l = BoundaryLevel(i)
			return nil
		}
	}
	*l = LevelLocality
	return nil
}

// Location is a hierarchical address extracted from the request.
type Location struct {
	Continent  string `json:"continent,omitempty"`
	Country    string `json:"country,omitempty"`
	CountryISO string `json:"countryIso,omitempty"`
	State      string `json:"state,omitempty"`
	County     string `json:"county,omitempty"`
	Locality   string `json:"locality,omitempty"`
}

// LocationPart is one populated address component.
type LocationPart struct {
	Level BoundaryLevel
	Term  string
}

// Parts lists populated components from coarse to fine.
func (l Location) Parts() []LocationPart {
	raw := []string{l.Continent, l.Country, l.State, l.County, l.Locality}
	parts := make([]LocationPart, 0, len(raw))
	for i, term := range raw {
		if term = strings.TrimSpace(term); term != "" {
			parts = append(parts, LocationPart{Level: BoundaryLevel(i), Term: term})
		}
	}
	return parts
}

func (l Location) Empty() bool {
	return len(l.Parts()) == 0
}

// Boundary is a resolved administrative area. Field is the query parameter that
// binds it, e.g. gadmGid or continent.
type Boundary struct {
	Level BoundaryLevel `json:"level"`
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Field string        `json:"field"`
}

// GeographicConstraint is a resolved location: the boundary chain finest first, and
// the address terms that could not be bound and were moved to free text.
type GeographicConstraint struct {
	Location      Location   `json:"location"`
	Chain         []Boundary `json:"chain,omitempty"`
	FallbackTerms []string   `json:"fallbackTerms,omitempty"`
}

// Active returns the binding boundary, which is always the most specific one.
func (g GeographicConstraint) Active() (Boundary, bool) {
	if len(g.Chain) == 0 {
		return Boundary{}, false
	}
	return g.Chain[0], true
}
