package core

import "strings"

// GenderBucket is the canonical gender class after normalization.
type GenderBucket string

const (
	GenderMujer GenderBucket = "mujer"
	GenderVaron GenderBucket = "varon"
	GenderOtros GenderBucket = "otros"
)

type genderRule struct {
	bucket   GenderBucket
	patterns []string
}

// Evaluated in order; the first rule with a matching substring wins.
var genderRules = []genderRule{
	{bucket: GenderMujer, patterns: []string{"mujer", "femenin", "fem", "chica", "f"}},
	{bucket: GenderVaron, patterns: []string{"varon", "hombre", "masculin", "masc", "m"}},
}

// GenderBuckets returns the buckets in report order.
func GenderBuckets() []GenderBucket {
	return []GenderBucket{GenderMujer, GenderVaron, GenderOtros}
}

// NormalizeGender buckets free-text gender values. Total: anything that
// matches no rule, including the empty string, is GenderOtros.
func NormalizeGender(raw string) GenderBucket {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return GenderOtros
	}
	for _, rule := range genderRules {
		for _, p := range rule.patterns {
			if strings.Contains(v, p) {
				return rule.bucket
			}
		}
	}
	return GenderOtros
}

// GroupByGender folds gender aggregates into exactly three rows in
// GenderBuckets order.
func GroupByGender(rows []AggregateRow) []AggregateRow {
	totals := make(map[GenderBucket]int, 3)
	for _, r := range rows {
		totals[NormalizeGender(r.Value)] += r.Count
	}
	out := make([]AggregateRow, 0, 3)
	for _, b := range GenderBuckets() {
		out = append(out, AggregateRow{Value: string(b), Count: totals[b]})
	}
	return out
}
