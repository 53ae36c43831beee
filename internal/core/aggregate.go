package core

import (
	"sort"
	"strings"
)

// Aggregate counts distinct participants per non-blank value of dim,
// ordered by count descending then value ascending. Blank values are NULL.
func Aggregate(records []ParticipantRecord, dim Dimension) []AggregateRow {
	seen := make(map[string]map[int64]struct{})
	var order []string
	for _, rec := range records {
		v := dim.Value(rec)
		if isBlank(v) {
			continue
		}
		ids, ok := seen[v]
		if !ok {
			ids = make(map[int64]struct{})
			seen[v] = ids
			order = append(order, v)
		}
		ids[rec.ID] = struct{}{}
	}

	rows := make([]AggregateRow, 0, len(order))
	for _, v := range order {
		rows = append(rows, AggregateRow{Value: v, Count: len(seen[v])})
	}
	SortByCount(rows)
	return rows
}

// AggregateTop returns at most n rows of Aggregate. n <= 0 means no limit.
func AggregateTop(records []ParticipantRecord, dim Dimension, n int) []AggregateRow {
	return Top(Aggregate(records, dim), n)
}

// Top truncates an already sorted aggregate.
func Top(rows []AggregateRow, n int) []AggregateRow {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// SortByCount orders rows by count descending, breaking ties by value so
// every truncation is a prefix of the full ordering.
func SortByCount(rows []AggregateRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Value < rows[j].Value
	})
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

// Total counts distinct participant identifiers.
func Total(records []ParticipantRecord) int {
	ids := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		ids[rec.ID] = struct{}{}
	}
	return len(ids)
}

// Detail projects every record onto its (activity, institution) pair.
func Detail(records []ParticipantRecord) []ActivityLink {
	out := make([]ActivityLink, len(records))
	for i, rec := range records {
		out[i] = ActivityLink{Actividad: rec.Actividad, Institucion: rec.Institucion}
	}
	return out
}

// Institutions returns the sorted distinct institutions present in links,
// ignoring links with an empty activity or institution.
func Institutions(links []ActivityLink) []string {
	set := make(map[string]struct{})
	for _, l := range links {
		if isBlank(l.Actividad) || isBlank(l.Institucion) {
			continue
		}
		set[l.Institucion] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for inst := range set {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}

// CountActivities groups the links of one institution by activity.
// Links with an empty activity or institution are dropped.
func CountActivities(links []ActivityLink, institucion string) []AggregateRow {
	counts := make(map[string]int)
	var order []string
	for _, l := range links {
		if isBlank(l.Actividad) || isBlank(l.Institucion) {
			continue
		}
		if !strings.EqualFold(l.Institucion, institucion) {
			continue
		}
		if _, ok := counts[l.Actividad]; !ok {
			order = append(order, l.Actividad)
		}
		counts[l.Actividad]++
	}
	rows := make([]AggregateRow, 0, len(order))
	for _, a := range order {
		rows = append(rows, AggregateRow{Value: a, Count: counts[a]})
	}
	SortByCount(rows)
	return rows
}
