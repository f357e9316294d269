// internal/engine/names/fold.go
package names

import (
	"fmt"
	"strings"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/engine/schema"
	"gbif-workers/internal/models"
)

// nameField carries free scientific names that a resolved key replaces.
const nameField = "scientificName"

// FoldResult is the outcome of mapping resolution records onto identifier fields.
type FoldResult struct {
	// Fields holds the identifier field and the keys to set on it.
	Fields models.ParameterSet
	// Active are the records whose keys were emitted, all of one rank.
	Active []*models.ResolutionRecord
	// Superseded are resolved records at coarser ranks than Active.
	Superseded []*models.ResolutionRecord
	// Degraded lists resolved records that were not used.
	Degraded []models.DegradedField
	// Unresolved lists the key fields whose mention was ambiguous or not found.
	Unresolved []string
	// Errors holds one field-scoped error per unresolved record.
	Errors []error
}

// Blocking reports whether any mention could not be resolved.
func (f FoldResult) Blocking() bool {
	return len(f.Unresolved) > 0
}

// Fold overlays resolved records onto a rank-indexed table. Every distinct key
// resolved at a rank joins that rank's slot; the most specific populated slot
// becomes the taxon filter, one list value per key. The filter is written to the
// operation's taxon key field when it has one, otherwise to the rank's own key field.
func Fold(d *schema.Descriptor, records []models.ResolutionRecord) FoldResult {
	result := FoldResult{Fields: models.ParameterSet{}}

	var table [models.RankCount][]*models.ResolutionRecord
	unresolved := map[string]bool{}
	markUnresolved := func(field string) {
		if !unresolved[field] {
			unresolved[field] = true
			result.Unresolved = append(result.Unresolved, field)
		}
	}

	for i := range records {
		rec := &records[i]
		if !rec.Mention.Rank.Valid() {
			continue
		}
		field := rec.Mention.Rank.KeyField()
		if target := d.TaxonKeyField(); target != "" {
			field = target
		}

		switch rec.Status {
		case models.StatusResolved:
			slot := rec.Mention.Rank
			if !hasKey(table[slot], rec.ResolvedKey) {
				table[slot] = append(table[slot], rec)
			}
		case models.StatusAmbiguous:
			result.Errors = append(result.Errors, apperrors.NewAmbiguousResolutionError(field, rec.Mention.TermFound, rec.Detail))
			markUnresolved(field)
		default:
			result.Errors = append(result.Errors, apperrors.NewUnresolvedMentionError(field, rec.Mention.TermFound, rec.Detail))
			markUnresolved(field)
		}
	}

	active := -1
	for r := models.RankCount - 1; r >= 0; r-- {
		if len(table[r]) > 0 {
			active = r
			break
		}
	}
	if active < 0 {
		return result
	}
	winners := table[active]

	for r := 0; r < active; r++ {
		for _, rec := range table[r] {
			result.Superseded = append(result.Superseded, rec)
			result.Degraded = append(result.Degraded, models.DegradedField{
				Field: models.Rank(r).KeyField(),
				Note:  fmt.Sprintf("%s %s superseded by %s %s", rec.ResolvedRank, rec.ResolvedName, models.Rank(active), joinNames(winners)),
			})
		}
	}

	target := d.TaxonKeyField()
	if target == "" {
		target = models.Rank(active).KeyField()
	}
	if !d.Allows(target) {
		result.Superseded = nil
		result.Degraded = append(result.Degraded, models.DegradedField{
			Field: target,
			Note:  fmt.Sprintf("%s cannot filter by taxon, %s not applied", d.Operation(), joinNames(winners)),
		})
		return result
	}

	keys := make([]string, 0, len(winners))
	for _, rec := range winners {
		keys = append(keys, rec.ResolvedKey)
	}
	result.Fields.Set(target, keys...)
	result.Active = winners
	return result
}

func hasKey(recs []*models.ResolutionRecord, key string) bool {
	for _, rec := range recs {
		if rec.ResolvedKey == key {
			return true
		}
	}
	return false
}

func joinNames(recs []*models.ResolutionRecord) string {
	out := make([]string, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fmt.Sprintf("%s (%s)", rec.ResolvedName, rec.ResolvedKey))
	}
	return strings.Join(out, ", ")
}

// Apply writes the folded identifiers into params and drops the free scientific
// names they now cover. A name whose record was neither applied nor superseded stays
// as a filter. params is modified in place.
func (f FoldResult) Apply(params models.ParameterSet) {
	for field, values := range f.Fields {
		params.Set(field, values...)
	}

	names := params.Get(nameField)
	if len(names) == 0 || len(f.Active) == 0 {
		return
	}
	covered := map[string]bool{}
	for _, group := range [][]*models.ResolutionRecord{f.Active, f.Superseded} {
		for _, rec := range group {
			covered[strings.ToLower(rec.Mention.LookupName())] = true
			covered[strings.ToLower(rec.Mention.TermFound)] = true
			covered[strings.ToLower(rec.ResolvedName)] = true
		}
	}
	kept := names[:0:0]
	for _, n := range names {
		if !covered[strings.ToLower(strings.TrimSpace(n))] {
			kept = append(kept, n)
		}
	}
	if len(kept) == 0 {
		params.Del(nameField)
		return
	}
	params.Set(nameField, kept...)
}
