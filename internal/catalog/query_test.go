package catalog

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"lowercases and sorts", []string{"War", "Germany"}, []string{"germany", "war"}},
		{"deduplicates after lowercasing", []string{"Sci-Fi", "sci-fi", "SCI-FI"}, []string{"sci-fi"}},
		{"drops blanks", []string{"", "  ", "drama"}, []string{"drama"}},
		{"trims", []string{"  drama "}, []string{"drama"}},
		{"deduplicates after trimming", []string{" Drama", "drama\t"}, []string{"drama"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTags(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeMovieRejectsEmptyTitle(t *testing.T) {
	_, err := NormalizeMovie(Movie{Title: ""})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestSearchQueryNormalize(t *testing.T) {
	q, err := SearchQuery{Tags: []string{"B", "a", "b"}}.Normalize()
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !reflect.DeepEqual(q.Tags, []string{"a", "b"}) {
		t.Errorf("Expected normalized tags [a b], got %v", q.Tags)
	}

	invalid := []SearchQuery{
		{Offset: IntPtr(-1)},
		{Limit: IntPtr(0)},
		{Limit: IntPtr(-3)},
		{SortField: SortField(9)},
		{SortOrder: SortOrder(9)},
	}
	for i, q := range invalid {
		if _, err := q.Normalize(); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestParseSortFieldAndOrder(t *testing.T) {
	if f, err := ParseSortField(""); err != nil || f != SortByCreatedAt {
		t.Errorf("Expected default created_at, got %v (%v)", f, err)
	}
	if f, err := ParseSortField("Title"); err != nil || f != SortByTitle {
		t.Errorf("Expected title, got %v (%v)", f, err)
	}
	if _, err := ParseSortField("rating"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
	if o, err := ParseSortOrder(""); err != nil || o != Descending {
		t.Errorf("Expected default desc, got %v (%v)", o, err)
	}
	if o, err := ParseSortOrder("ASC"); err != nil || o != Ascending {
		t.Errorf("Expected asc, got %v (%v)", o, err)
	}
	if _, err := ParseSortOrder("sideways"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

// =============================================================================
// Select
// =============================================================================

func candidatesFixture() []Candidate {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id, title string, offset int, tags ...string) Candidate {
		return Candidate{
			ID: ID(id),
			Entry: &Entry{
				Movie:     Movie{Title: title, Tags: NormalizeTags(tags)},
				CreatedAt: base.Add(time.Duration(offset) * time.Second),
			},
		}
	}
	return []Candidate{
		mk("c", "Doctor Who", 2, "sci-fi"),
		mk("a", "Das Boot", 1, "war", "germany"),
		mk("d", "Alien", 3, "sci-fi", "horror"),
		mk("b", "Alien", 3, "horror"),
	}
}

func TestSelectOrdering(t *testing.T) {
	q, _ := SearchQuery{SortField: SortByTitle, SortOrder: Ascending}.Normalize()
	got := Select(candidatesFixture(), q)
	want := []ID{"b", "d", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	q.SortOrder = Descending
	got = Select(candidatesFixture(), q)
	want = []ID{"c", "a", "d", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected exact reverse %v, got %v", want, got)
	}

	q, _ = SearchQuery{}.Normalize()
	got = Select(candidatesFixture(), q)
	want = []ID{"d", "b", "c", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected newest first %v, got %v", want, got)
	}
}

func TestSelectFilterAndPaginate(t *testing.T) {
	q, _ := SearchQuery{
		SortField: SortByTitle,
		SortOrder: Ascending,
		Tags:      []string{"HORROR"},
	}.Normalize()
	got := Select(candidatesFixture(), q)
	if !reflect.DeepEqual(got, []ID{"b", "d"}) {
		t.Errorf("Expected [b d], got %v", got)
	}

	q.Offset = IntPtr(1)
	q.Limit = IntPtr(5)
	got = Select(candidatesFixture(), q)
	if !reflect.DeepEqual(got, []ID{"d"}) {
		t.Errorf("Expected [d], got %v", got)
	}

	q.Offset = IntPtr(10)
	got = Select(candidatesFixture(), q)
	if len(got) != 0 {
		t.Errorf("Expected empty result past the end, got %v", got)
	}
}

func TestHasAllTags(t *testing.T) {
	have := []string{"a", "c", "e"}
	if !HasAllTags(have, nil) {
		t.Error("Expected empty query to match")
	}
	if !HasAllTags(have, []string{"a", "e"}) {
		t.Error("Expected subset to match")
	}
	if HasAllTags(have, []string{"a", "b"}) {
		t.Error("Expected missing tag to fail")
	}
	if HasAllTags(nil, []string{"a"}) {
		t.Error("Expected empty tag set to fail a non-empty query")
	}
}

func TestSortTagCounts(t *testing.T) {
	counts := []TagCount{{"b", 1}, {"a", 1}, {"z", 3}}
	SortTagCounts(counts)
	want := []TagCount{{"z", 3}, {"a", 1}, {"b", 1}}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("Expected %v, got %v", want, counts)
	}
}
