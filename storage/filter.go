package storage

import (
	"math"
	"slices"
	"strings"

	"github.com/poiesic/newsdesk/core"
)

// Filterable record fields.
const (
	FieldLink = "link"
	FieldKind = "kind"
	FieldTag  = "tag"
)

// Condition requires a record field to equal Value.
// For FieldTag the record matches when any of its tags equals Value.
type Condition struct {
	Field string
	Value string
}

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter []Condition

// Eq builds a single-condition filter.
func Eq(field, value string) Filter {
	return Filter{{Field: field, Value: value}}
}

// And returns a filter that also requires field == value.
func (f Filter) And(field, value string) Filter {
	return append(slices.Clone(f), Condition{Field: field, Value: value})
}

// Matches reports whether record satisfies every condition in filter.
// Unknown fields never match.
func Matches(record *core.Record, filter Filter) bool {
	for _, c := range filter {
		switch c.Field {
		case FieldLink:
			if record.Link != c.Value {
				return false
			}
		case FieldKind:
			if !strings.EqualFold(record.Kind.String(), c.Value) {
				return false
			}
		case FieldTag:
			if !slices.Contains(record.Tags, c.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// CosineScore returns the cosine similarity of a and b clamped to [0, 1].
// Vectors of different length or zero magnitude score 0.
func CosineScore(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return ClampScore(float32(dot / (math.Sqrt(na) * math.Sqrt(nb))))
}

// ClampScore limits a backend similarity score to [0, 1].
func ClampScore(score float32) float32 {
	switch {
	case score < 0 || score != score:
		return 0
	case score > 1:
		return 1
	}
	return score
}

// RankResults sorts results by descending score, keeping insertion order
// among ties, drops those below minScore, then truncates to limit.
func RankResults(results []*core.SearchResult, minScore float32, limit int) []*core.SearchResult {
	kept := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	slices.SortStableFunc(kept, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// StripVectors clears record vectors unless include is set.
func StripVectors(results []*core.SearchResult, include bool) {
	if include {
		return
	}
	for _, r := range results {
		r.Record.Vector = nil
	}
}
