package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// SortField selects the primary ordering key of a search.
type SortField int

const (
	// SortByCreatedAt orders by creation time. It is the default.
	SortByCreatedAt SortField = iota
	// SortByTitle orders by title using code point comparison.
	SortByTitle
)

func (f SortField) String() string {
	switch f {
	case SortByCreatedAt:
		return "created_at"
	case SortByTitle:
		return "title"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// ParseSortField parses "title" or "created_at". The empty string selects
// the default.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "created_at", "createdat", "date":
		return SortByCreatedAt, nil
	case "title":
		return SortByTitle, nil
	default:
		return 0, InvalidArgument("unknown sort field %q", s)
	}
}

// SortOrder selects ascending or descending order.
type SortOrder int

const (
	// Descending is the default order.
	Descending SortOrder = iota
	Ascending
)

func (o SortOrder) String() string {
	switch o {
	case Descending:
		return "desc"
	case Ascending:
		return "asc"
	default:
		return fmt.Sprintf("unknown(%d)", int(o))
	}
}

// ParseSortOrder parses "asc"/"ascending" and "desc"/"descending".
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return 0, InvalidArgument("unknown sort order %q", s)
	}
}

// SearchQuery describes a filtered, sorted and paginated search. The zero
// value returns every entry, newest first.
type SearchQuery struct {
	SortField SortField
	SortOrder SortOrder

	// TitlePattern keeps only titles matching the glob pattern. '*' matches
	// any run of characters and '?' exactly one; everything else is literal.
	TitlePattern *string

	// Tags keeps only entries carrying every listed tag.
	Tags []string

	Offset *int
	Limit  *int
}

// Normalize validates q and returns a copy with normalized tags. Backends
// call it before doing any work so every backend sees the same query.
func (q SearchQuery) Normalize() (SearchQuery, error) {
	switch q.SortField {
	case SortByCreatedAt, SortByTitle:
	default:
		return q, InvalidArgument("unknown sort field %d", int(q.SortField))
	}
	switch q.SortOrder {
	case Ascending, Descending:
	default:
		return q, InvalidArgument("unknown sort order %d", int(q.SortOrder))
	}
	if q.Offset != nil && *q.Offset < 0 {
		return q, InvalidArgument("offset must not be negative, got %d", *q.Offset)
	}
	if q.Limit != nil && *q.Limit <= 0 {
		return q, InvalidArgument("limit must be positive, got %d", *q.Limit)
	}
	q.Tags = NormalizeTags(q.Tags)
	return q, nil
}

// OffsetValue returns the offset or 0 when unset.
func (q SearchQuery) OffsetValue() int {
	if q.Offset == nil {
		return 0
	}
	return *q.Offset
}

// NormalizeTags trims and lowercases tags, drops empty ones, and returns
// them sorted without duplicates. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// NormalizeMovie validates a movie for storage and returns it with
// normalized tags.
func NormalizeMovie(m Movie) (Movie, error) {
	if err := ValidateTitle(m.Title); err != nil {
		return m, err
	}
	m.Tags = NormalizeTags(m.Tags)
	return m, nil
}

// ValidateTitle rejects empty titles.
func ValidateTitle(title string) error {
	if title == "" {
		return InvalidArgument("title must not be empty")
	}
	return nil
}

// IntPtr returns a pointer to v. Handy for building queries.
func IntPtr(v int) *int {
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
