// internal/common/gadm/continents.go
package gadm

import (
	"strings"

	"gbif-workers/internal/engine/grounding"
)

// continentAliases are checked in order; longer phrases come first so that
// "south america" is not read as a bare "america".
var continentAliases = []struct {
	phrase string
	value  string
	name   string
}{
	{"north america", "NORTH_AMERICA", "North America"},
	{"central america", "NORTH_AMERICA", "North America"},
	{"south america", "SOUTH_AMERICA", "South America"},
	{"antarctica", "ANTARCTICA", "Antarctica"},
	{"antarctic", "ANTARCTICA", "Antarctica"},
	{"australasia", "OCEANIA", "Oceania"},
	{"oceania", "OCEANIA", "Oceania"},
	{"africa", "AFRICA", "Africa"},
	{"europe", "EUROPE", "Europe"},
	{"asia", "ASIA", "Asia"},
}

// Continent maps free text onto GBIF's seven-continent enumeration. Qualified
// regions resolve to their continent: "Temperate Asia" is ASIA.
func Continent(term string) (value, name string, ok bool) {
	padded := " " + grounding.Normalize(term) + " "
	if strings.TrimSpace(padded) == "" {
		return "", "", false
	}
	for _, alias := range continentAliases {
		if strings.Contains(padded, " "+alias.phrase+" ") {
			return alias.value, alias.name, true
		}
	}
	return "", "", false
}
