// internal/engine/names/classify.go
package names

import (
	"fmt"
	"sort"
	"strings"

	"gbif-workers/internal/models"
)

// Classify turns the candidates of one lookup into a resolution record. Only a single
// strongest candidate at the expected rank resolves; a tie, a rank disagreement or a
// set of alternatives the service declined to choose from is ambiguous and nothing is
// guessed.
func Classify(mention models.NameMention, candidates []models.MatchCandidate) models.ResolutionRecord {
	record := models.ResolutionRecord{
		Mention:      mention,
		ResolvedRank: models.RankUnknown,
	}

	if len(candidates) == 0 {
		record.Status = models.StatusNotFound
		record.Detail = fmt.Sprintf("no %s named %q", mention.Rank, mention.LookupName())
		return record
	}

	ranked := append([]models.MatchCandidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	if declined(ranked) {
		offered := make([]string, 0, len(ranked))
		for _, c := range ranked {
			offered = append(offered, describe(c))
		}
		record.Status = models.StatusAmbiguous
		record.Detail = fmt.Sprintf("no unique match for %q, candidates: %s",
			mention.TermFound, strings.Join(offered, ", "))
		return record
	}

	top := ranked[0]
	tied := []string{describe(top)}
	for _, c := range ranked[1:] {
		if c.Confidence != top.Confidence {
			break
		}
		tied = append(tied, describe(c))
	}

	if len(tied) > 1 {
		record.Status = models.StatusAmbiguous
		record.Detail = fmt.Sprintf("%q matches %d names with equal confidence %d: %s",
			mention.TermFound, len(tied), top.Confidence, strings.Join(tied, ", "))
		return record
	}

	if top.Rank != mention.Rank {
		record.Status = models.StatusAmbiguous
		record.ResolvedName = top.Name
		record.ResolvedRank = top.Rank
		record.Detail = fmt.Sprintf("%q matched %s at rank %s, expected %s",
			mention.TermFound, top.Name, rankLabel(top.Rank), mention.Rank)
		return record
	}

	record.Status = models.StatusResolved
	record.ResolvedKey = top.Key
	record.ResolvedName = top.Name
	record.ResolvedRank = top.Rank
	return record
}

func declined(candidates []models.MatchCandidate) bool {
	for _, c := range candidates {
		if c.Unmatched {
			return true
		}
	}
	return false
}

func describe(c models.MatchCandidate) string {
	return fmt.Sprintf("%s (%s %s)", c.Name, rankLabel(c.Rank), c.Key)
}

func rankLabel(r models.Rank) string {
	if s := r.String(); s != "" {
		return s
	}
	return "unranked"
}
