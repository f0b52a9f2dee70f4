package catalog

import (
	"sort"
)

// Candidate pairs an id with its entry for in-process searching.
type Candidate struct {
	ID    ID
	Entry *Entry
}

// Less orders a before b by field in ascending order, breaking ties by id.
func Less(field SortField, a, b Candidate) bool {
	switch field {
	case SortByTitle:
		if a.Entry.Movie.Title != b.Entry.Movie.Title {
			return a.Entry.Movie.Title < b.Entry.Movie.Title
		}
	default:
		if !a.Entry.CreatedAt.Equal(b.Entry.CreatedAt) {
			return a.Entry.CreatedAt.Before(b.Entry.CreatedAt)
		}
	}
	return a.ID < b.ID
}

// Matches reports whether e passes the query's title and tag filters.
// q must already be normalized and e's tags must be normalized.
func Matches(q SearchQuery, e *Entry) bool {
	if q.TitlePattern != nil && !MatchGlob(*q.TitlePattern, e.Movie.Title) {
		return false
	}
	return HasAllTags(e.Movie.Tags, q.Tags)
}

// HasAllTags reports whether have contains every tag in want. Both slices
// must be sorted.
func HasAllTags(have, want []string) bool {
	i := 0
	for _, w := range want {
		for i < len(have) && have[i] < w {
			i++
		}
		if i == len(have) || have[i] != w {
			return false
		}
		i++
	}
	return true
}

// Select orders, filters and paginates candidates according to q and
// returns the resulting ids. q must already be normalized. Candidates is
// reordered in place.
func Select(candidates []Candidate, q SearchQuery) []ID {
	sort.Slice(candidates, func(i, j int) bool {
		if q.SortOrder == Ascending {
			return Less(q.SortField, candidates[i], candidates[j])
		}
		return Less(q.SortField, candidates[j], candidates[i])
	})

	skip := q.OffsetValue()
	ids := make([]ID, 0)
	for _, c := range candidates {
		if !Matches(q, c.Entry) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		if q.Limit != nil && len(ids) >= *q.Limit {
			break
		}
		ids = append(ids, c.ID)
	}
	return ids
}

// SortTagCounts orders counts by count descending then tag ascending.
func SortTagCounts(counts []TagCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Tag < counts[j].Tag
	})
}
