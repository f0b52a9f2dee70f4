// Package catalogtest holds the conformance suite every catalog.Index
// backend runs. A backend passes when it returns the same results as the
// in-memory reference for every case here.
package catalogtest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"movies-db/internal/catalog"
)

// Factory returns a fresh, empty index. The suite closes it.
type Factory func(t *testing.T) catalog.Index

// Run executes the full conformance suite against indexes built by newIndex.
func Run(t *testing.T, newIndex Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, ix catalog.Index)
	}{
		{"AddAndGet", testAddAndGet},
		{"AddRejectsEmptyTitle", testAddRejectsEmptyTitle},
		{"GetUnknown", testGetUnknown},
		{"RemoveTwice", testRemoveTwice},
		{"ChangeFields", testChangeFields},
		{"ChangeUnknown", testChangeUnknown},
		{"UpdateFileInfo", testUpdateFileInfo},
		{"SearchReturnsEveryEntry", testSearchReturnsEveryEntry},
		{"SearchByTitle", testSearchByTitle},
		{"SearchByCreatedAt", testSearchByCreatedAt},
		{"SearchTieBreak", testSearchTieBreak},
		{"SearchTagsConjunctive", testSearchTagsConjunctive},
		{"SearchTitlePattern", testSearchTitlePattern},
		{"SearchPatternLiterals", testSearchPatternLiterals},
		{"SearchPagination", testSearchPagination},
		{"SearchRejectsInvalidQuery", testSearchRejectsInvalidQuery},
		{"TagCounts", testTagCounts},
		{"TagNormalization", testTagNormalization},
		{"Counts", testCounts},
		{"EndToEnd", testEndToEnd},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ix := newIndex(t)
			t.Cleanup(func() {
				if err := ix.Close(); err != nil {
					t.Errorf("Close failed: %v", err)
				}
			})
			tc.fn(t, ix)
		})
	}
}

// =============================================================================
// Helpers
// =============================================================================

func mustAdd(t *testing.T, ix catalog.Index, title string, tags ...string) catalog.ID {
	t.Helper()
	id, err := ix.AddMovie(context.Background(), catalog.Movie{Title: title, Tags: tags})
	if err != nil {
		t.Fatalf("AddMovie(%q) failed: %v", title, err)
	}
	return id
}

func mustGet(t *testing.T, ix catalog.Index, id catalog.ID) catalog.Entry {
	t.Helper()
	e, err := ix.GetMovie(context.Background(), id)
	if err != nil {
		t.Fatalf("GetMovie(%s) failed: %v", id, err)
	}
	return e
}

func mustSearch(t *testing.T, ix catalog.Index, q catalog.SearchQuery) []catalog.ID {
	t.Helper()
	ids, err := ix.SearchMovies(context.Background(), q)
	if err != nil {
		t.Fatalf("SearchMovies(%+v) failed: %v", q, err)
	}
	return ids
}

func expectIDs(t *testing.T, got, want []catalog.ID) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected ids %v, got %v", want, got)
	}
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("Expected error %v, got %v", target, err)
	}
}

// sortedIDs returns ids ordered the way the backend must order them for
// key ties: ascending by id.
func sortedIDs(ids ...catalog.ID) []catalog.ID {
	out := append([]catalog.ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func reversed(ids []catalog.ID) []catalog.ID {
	out := make([]catalog.ID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

// =============================================================================
// CRUD
// =============================================================================

func testAddAndGet(t *testing.T, ix catalog.Index) {
	before := time.Now().Add(-time.Second)
	id, err := ix.AddMovie(context.Background(), catalog.Movie{
		Title:       "Das Boot",
		Description: "U-96 on patrol",
		Tags:        []string{"War", "Germany"},
	})
	if err != nil {
		t.Fatalf("AddMovie failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected a non-empty id")
	}

	e := mustGet(t, ix, id)
	if e.Movie.Title != "Das Boot" {
		t.Errorf("Expected title 'Das Boot', got %q", e.Movie.Title)
	}
	if e.Movie.Description != "U-96 on patrol" {
		t.Errorf("Expected description to round-trip, got %q", e.Movie.Description)
	}
	if !reflect.DeepEqual(e.Movie.Tags, []string{"germany", "war"}) {
		t.Errorf("Expected normalized tags [germany war], got %v", e.Movie.Tags)
	}
	if e.MediaInfo != nil || e.PreviewInfo != nil {
		t.Errorf("Expected no file info on a new entry, got %+v / %+v", e.MediaInfo, e.PreviewInfo)
	}
	if e.CreatedAt.Before(before) || e.CreatedAt.After(time.Now().Add(time.Second)) {
		t.Errorf("Expected created_at near now, got %v", e.CreatedAt)
	}

	other := mustAdd(t, ix, "Doctor Who")
	if other == id {
		t.Error("Expected distinct ids for distinct entries")
	}
}

func testAddRejectsEmptyTitle(t *testing.T, ix catalog.Index) {
	_, err := ix.AddMovie(context.Background(), catalog.Movie{Title: "", Tags: []string{"x"}})
	expectErr(t, err, catalog.ErrInvalidArgument)

	ids := mustSearch(t, ix, catalog.SearchQuery{})
	if len(ids) != 0 {
		t.Errorf("Expected rejected movie not to be stored, got %v", ids)
	}
}

func testGetUnknown(t *testing.T, ix catalog.Index) {
	_, err := ix.GetMovie(context.Background(), catalog.NewID())
	expectErr(t, err, catalog.ErrNotFound)
}

func testRemoveTwice(t *testing.T, ix catalog.Index) {
	ctx := context.Background()
	id := mustAdd(t, ix, "Das Boot", "war")
	keep := mustAdd(t, ix, "Doctor Who", "war")

	if err := ix.RemoveMovie(ctx, id); err != nil {
		t.Fatalf("RemoveMovie failed: %v", err)
	}
	_, err := ix.GetMovie(ctx, id)
	expectErr(t, err, catalog.ErrNotFound)
	expectErr(t, ix.RemoveMovie(ctx, id), catalog.ErrNotFound)

	expectIDs(t, mustSearch(t, ix, catalog.SearchQuery{}), []catalog.ID{keep})
	expectIDs(t, mustSearch(t, ix, catalog.SearchQuery{Tags: []string{"war"}}), []catalog.ID{keep})
}

func testChangeFields(t *testing.T, ix catalog.Index) {
	ctx := context.Background()
	id := mustAdd(t, ix, "Das Boot", "war")
	created := mustGet(t, ix, id).CreatedAt

	if err := ix.ChangeTitle(ctx, id, "Das Boot (Director's Cut)"); err != nil {
		t.Fatalf("ChangeTitle failed: %v", err)
	}
	if err := ix.ChangeDescription(ctx, id, "longer"); err != nil {
		t.Fatalf("ChangeDescription failed: %v", err)
	}
	if err := ix.ChangeTags(ctx, id, []string{"Classic", "WAR", "classic"}); err != nil {
		t.Fatalf("ChangeTags failed: %v", err)
	}
	expectErr(t, ix.ChangeTitle(ctx, id, ""), catalog.ErrInvalidArgument)

	e := mustGet(t, ix, id)
	if e.Movie.Title != "Das Boot (Director's Cut)" {
		t.Errorf("Expected changed title, got %q", e.Movie.Title)
	}
	if e.Movie.Description != "longer" {
		t.Errorf("Expected changed description, got %q", e.Movie.Description)
	}
	if !reflect.DeepEqual(e.Movie.Tags, []string{"classic", "war"}) {
		t.Errorf("Expected tags [classic war], got %v", e.Movie.Tags)
	}
	if !e.CreatedAt.Equal(created) {
		t.Errorf("Expected created_at to stay %v, got %v", created, e.CreatedAt)
	}

	if err := ix.ChangeTags(ctx, id, nil); err != nil {
		t.Fatalf("ChangeTags(nil) failed: %v", err)
	}
	if e := mustGet(t, ix, id); len(e.Movie.Tags) != 0 {
		t.Errorf("Expected no tags, got %v", e.Movie.Tags)
	}
}

func testChangeUnknown(t *testing.T, ix catalog.Index) {
	ctx := context.Background()
	id := catalog.NewID()
	info := catalog.FileInfo{Extension: "mp4", MimeType: "video/mp4"}

	expectErr(t, ix.ChangeTitle(ctx, id, "x"), catalog.ErrNotFound)
	expectErr(t, ix.ChangeDescription(ctx, id, "x"), catalog.ErrNotFound)
	expectErr(t, ix.ChangeTags(ctx, id, []string{"x"}), catalog.ErrNotFound)
	expectErr(t, ix.UpdateMediaFileInfo(ctx, id, info), catalog.ErrNotFound)
	expectErr(t, ix.UpdatePreviewFileInfo(ctx, id, info), catalog.ErrNotFound)
	expectErr(t, ix.RemoveMovie(ctx, id), catalog.ErrNotFound)
}

func testUpdateFileInfo(t *testing.T, ix catalog.Index) {
	ctx := context.Background()
	id := mustAdd(t, ix, "Das Boot")

	media := catalog.FileInfo{Extension: "mp4", MimeType: "video/mp4"}
	if err := ix.UpdateMediaFileInfo(ctx, id, media); err != nil {
		t.Fatalf("UpdateMediaFileInfo failed: %v", err)
	}
	e := mustGet(t, ix, id)
	if e.MediaInfo == nil || *e.MediaInfo != media {
		t.Errorf("Expected media info %+v, got %+v", media, e.MediaInfo)
	}
	if !e.NeedsPreview() {
		t.Error("Expected entry with media and no preview to need a preview")
	}

	media = catalog.FileInfo{Extension: "mkv", MimeType: "video/x-matroska"}
	if err := ix.UpdateMediaFileInfo(ctx, id, media); err != nil {
		t.Fatalf("UpdateMediaFileInfo overwrite failed: %v", err)
	}
	preview := catalog.FileInfo{Extension: "png", MimeType: "image/png"}
	if err := ix.UpdatePreviewFileInfo(ctx, id, preview); err != nil {
		t.Fatalf("UpdatePreviewFileInfo failed: %v", err)
	}

	e = mustGet(t, ix, id)
	if e.MediaInfo == nil || *e.MediaInfo != media {
		t.Errorf("Expected overwritten media info %+v, got %+v", media, e.MediaInfo)
	}
	if e.PreviewInfo == nil || *e.PreviewInfo != preview {
		t.Errorf("Expected preview info %+v, got %+v", preview, e.PreviewInfo)
	}
}

// =============================================================================
// Search
// =============================================================================

func testSearchReturnsEveryEntry(t *testing.T, ix catalog.Index) {
	want := make(map[catalog.ID]bool)
	for i := 0; i < 25; i++ {
		want[mustAdd(t, ix, fmt.Sprintf("Movie %02d", i%7), fmt.Sprintf("t%d", i%3))] = true
	}

	ids := mustSearch(t, ix, catalog.SearchQuery{})
	if len(ids) != len(want) {
		t.Fatalf("Expected %d ids, got %d", len(want), len(ids))
	}
	seen := make(map[catalog.ID]bool)
	for _, id := range ids {
		if !want[id] {
			t.Errorf("Unexpected id %s", id)
		}
		if seen[id] {
			t.Errorf("Duplicate id %s", id)
		}
		seen[id] = true
	}
}

func testSearchByTitle(t *testing.T, ix catalog.Index) {
	titles := []string{"b", "B", "a", "Über", "Zulu", "alpha", "Alpha", "ä", "10", "9"}
	for _, title := range titles {
		mustAdd(t, ix, title)
	}

	asc := mustSearch(t, ix, catalog.SearchQuery{SortField: catalog.SortByTitle, SortOrder: catalog.Ascending})
	if len(asc) != len(titles) {
		t.Fatalf("Expected %d ids, got %d", len(titles), len(asc))
	}
	prev := ""
	for i, id := range asc {
		title := mustGet(t, ix, id).Movie.Title
		if i > 0 && title < prev {
			t.Errorf("Titles out of order at %d: %q after %q", i, title, prev)
		}
		prev = title
	}

	got := make([]string, len(asc))
	for i, id := range asc {
		got[i] = mustGet(t, ix, id).Movie.Title
	}
	want := append([]string(nil), titles...)
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected code point order %q, got %q", want, got)
	}

	desc := mustSearch(t, ix, catalog.SearchQuery{SortField: catalog.SortByTitle, SortOrder: catalog.Descending})
	expectIDs(t, desc, reversed(asc))
}

func testSearchByCreatedAt(t *testing.T, ix catalog.Index) {
	var added []catalog.ID
	for i := 0; i < 5; i++ {
		added = append(added, mustAdd(t, ix, fmt.Sprintf("Movie %d", i)))
		time.Sleep(2 * time.Millisecond)
	}

	asc := mustSearch(t, ix, catalog.SearchQuery{SortOrder: catalog.Ascending})
	expectIDs(t, asc, added)

	desc := mustSearch(t, ix, catalog.SearchQuery{})
	expectIDs(t, desc, reversed(added))

	var prev time.Time
	for i, id := range asc {
		created := mustGet(t, ix, id).CreatedAt
		if i > 0 && created.Before(prev) {
			t.Errorf("created_at out of order at %d", i)
		}
		prev = created
	}
}

func testSearchTieBreak(t *testing.T, ix catalog.Index) {
	a := mustAdd(t, ix, "Same")
	b := mustAdd(t, ix, "Same")
	c := mustAdd(t, ix, "Same")

	asc := mustSearch(t, ix, catalog.SearchQuery{SortField: catalog.SortByTitle, SortOrder: catalog.Ascending})
	expectIDs(t, asc, sortedIDs(a, b, c))

	desc := mustSearch(t, ix, catalog.SearchQuery{SortField: catalog.SortByTitle, SortOrder: catalog.Descending})
	expectIDs(t, desc, reversed(sortedIDs(a, b, c)))

	again := mustSearch(t, ix, catalog.SearchQuery{SortField: catalog.SortByTitle, SortOrder: catalog.Ascending})
	expectIDs(t, again, asc)
}

func testSearchTagsConjunctive(t *testing.T, ix catalog.Index) {
	both := mustAdd(t, ix, "Both", "War", "Drama")
	war := mustAdd(t, ix, "War only", "war")
	drama := mustAdd(t, ix, "Drama only", "drama")
	mustAdd(t, ix, "Untagged")

	q := catalog.SearchQuery{SortField: catalog.SortByTitle, SortOrder: catalog.Ascending}

	q.Tags = []string{"WAR", "drama"}
	expectIDs(t, mustSearch(t, ix, q), []catalog.ID{both})

	q.Tags = []string{"war"}
	expectIDs(t, mustSearch(t, ix, q), []catalog.ID{both, war})

	q.Tags = []string{"Drama", "drama"}
	expectIDs(t, mustSearch(t, ix, q), []catalog.ID{both, drama})

	q.Tags = []string{"war", "comedy"}
	expectIDs(t, mustSearch(t, ix, q), nil)

	q.Tags = []string{"wa"}
	expectIDs(t, mustSearch(t, ix, q), nil)
}

func testSearchTitlePattern(t *testing.T, ix catalog.Index) {
	boot := mustAdd(t, ix, "Das Boot")
	mustAdd(t, ix, "Das Boot 2")
	who := mustAdd(t, ix, "Doctor Who")
	mustAdd(t, ix, "das boot")

	q := catalog.SearchQuery{SortField: catalog.SortByTitle, SortOrder: catalog.Ascending}

	q.TitlePattern = catalog.StringPtr("*Boot")
	expectIDs(t, mustSearch(t, ix, q), []catalog.ID{boot})

	q.TitlePattern = catalog.StringPtr("Das Boot")
	expectIDs(t, mustSearch(t, ix, q), []catalog.ID{boot})

	q.TitlePattern = catalog.StringPtr("D?ctor *")
	expectIDs(t, mustSearch(t, ix, q), []catalog.ID{who})

	q.TitlePattern = catalog.StringPtr("Das")
	expectIDs(t, mustSearch(t, ix, q), nil)

	q.TitlePattern = catalog.StringPtr("*")
	if got := mustSearch(t, ix, q); len(got) != 4 {
		t.Errorf("Expected '*' to match all 4 titles, got %d", len(got))
	}
}

func testSearchPatternLiterals(t *testing.T, ix catalog.Index) {
	bracket := mustAdd(t, ix, "[REC]")
	percent := mustAdd(t, ix, "100% Wolf")
	under := mustAdd(t, ix, "a_b")
	mustAdd(t, ix, "axb")
	mustAdd(t, ix, "R")

	q := catalog.SearchQuery{SortField: catalog.SortByTitle, SortOrder: catalog.Ascending}

	q.TitlePattern = catalog.StringPtr("[REC]")
	expectIDs(t, mustSearch(t, ix, q), []catalog.ID{bracket})

	q.TitlePattern = catalog.StringPtr("100% *")
	expectIDs(t, mustSearch(t, ix, q), []catalog.ID{percent})

	q.TitlePattern = catalog.StringPtr("a_b")
	expectIDs(t, mustSearch(t, ix, q), []catalog.ID{under})

	q.TitlePattern = catalog.StringPtr("a?b")
	if got := mustSearch(t, ix, q); len(got) != 2 {
		t.Errorf("Expected 'a?b' to match two titles, got %v", got)
	}
}

func testSearchPagination(t *testing.T, ix catalog.Index) {
	for i := 0; i < 10; i++ {
		tag := "odd"
		if i%2 == 0 {
			tag = "even"
		}
		mustAdd(t, ix, fmt.Sprintf("Movie %d", i), tag)
	}

	base := catalog.SearchQuery{
		SortField: catalog.SortByTitle,
		SortOrder: catalog.Ascending,
		Tags:      []string{"even"},
	}
	all := mustSearch(t, ix, base)
	if len(all) != 5 {
		t.Fatalf("Expected 5 even entries, got %d", len(all))
	}

	for k := 0; k <= 6; k++ {
		for n := 1; n <= 6; n++ {
			q := base
			q.Offset = catalog.IntPtr(k)
			q.Limit = catalog.IntPtr(n)

			lo := k
			if lo > len(all) {
				lo = len(all)
			}
			hi := k + n
			if hi > len(all) {
				hi = len(all)
			}
			expectIDs(t, mustSearch(t, ix, q), all[lo:hi])
		}
	}

	q := base
	q.Offset = catalog.IntPtr(2)
	expectIDs(t, mustSearch(t, ix, q), all[2:])

	q = base
	q.Limit = catalog.IntPtr(2)
	expectIDs(t, mustSearch(t, ix, q), all[:2])

	q = base
	q.Offset = catalog.IntPtr(100)
	if got := mustSearch(t, ix, q); len(got) != 0 {
		t.Errorf("Expected empty page past the end, got %v", got)
	}
}

func testSearchRejectsInvalidQuery(t *testing.T, ix catalog.Index) {
	mustAdd(t, ix, "Das Boot")
	ctx := context.Background()

	_, err := ix.SearchMovies(ctx, catalog.SearchQuery{Offset: catalog.IntPtr(-1)})
	expectErr(t, err, catalog.ErrInvalidArgument)

	_, err = ix.SearchMovies(ctx, catalog.SearchQuery{Limit: catalog.IntPtr(0)})
	expectErr(t, err, catalog.ErrInvalidArgument)
}

// =============================================================================
// Tags
// =============================================================================

func testTagCounts(t *testing.T, ix catalog.Index) {
	ctx := context.Background()

	counts, err := ix.GetTagCounts(ctx)
	if err != nil {
		t.Fatalf("GetTagCounts failed: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("Expected no tags on an empty index, got %v", counts)
	}

	mustAdd(t, ix, "A", "war", "drama")
	mustAdd(t, ix, "B", "war", "comedy")
	gone := mustAdd(t, ix, "C", "war", "horror", "drama")
	mustAdd(t, ix, "D", "animation")

	counts, err = ix.GetTagCounts(ctx)
	if err != nil {
		t.Fatalf("GetTagCounts failed: %v", err)
	}
	want := []catalog.TagCount{
		{Tag: "war", Count: 3},
		{Tag: "drama", Count: 2},
		{Tag: "animation", Count: 1},
		{Tag: "comedy", Count: 1},
		{Tag: "horror", Count: 1},
	}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("Expected %v, got %v", want, counts)
	}

	if err := ix.RemoveMovie(ctx, gone); err != nil {
		t.Fatalf("RemoveMovie failed: %v", err)
	}
	counts, err = ix.GetTagCounts(ctx)
	if err != nil {
		t.Fatalf("GetTagCounts failed: %v", err)
	}
	want = []catalog.TagCount{
		{Tag: "war", Count: 2},
		{Tag: "animation", Count: 1},
		{Tag: "comedy", Count: 1},
		{Tag: "drama", Count: 1},
	}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("Expected %v after removal, got %v", want, counts)
	}
}

func testTagNormalization(t *testing.T, ix catalog.Index) {
	ctx := context.Background()
	id := mustAdd(t, ix, "Doctor Who", "Sci-Fi", "sci-fi", " SCI-FI ")

	e := mustGet(t, ix, id)
	if !reflect.DeepEqual(e.Movie.Tags, []string{"sci-fi"}) {
		t.Errorf("Expected deduplicated tags [sci-fi], got %v", e.Movie.Tags)
	}

	counts, err := ix.GetTagCounts(ctx)
	if err != nil {
		t.Fatalf("GetTagCounts failed: %v", err)
	}
	want := []catalog.TagCount{{Tag: "sci-fi", Count: 1}}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("Expected %v, got %v", want, counts)
	}

	if err := ix.ChangeTags(ctx, id, []string{"Drama"}); err != nil {
		t.Fatalf("ChangeTags failed: %v", err)
	}
	expectIDs(t, mustSearch(t, ix, catalog.SearchQuery{Tags: []string{"sci-fi"}}), nil)
	expectIDs(t, mustSearch(t, ix, catalog.SearchQuery{Tags: []string{"DRAMA"}}), []catalog.ID{id})
}

// =============================================================================
// End to end
// =============================================================================

func testEndToEnd(t *testing.T, ix catalog.Index) {
	ctx := context.Background()
	x := mustAdd(t, ix, "Das Boot", "War", "Germany")
	y := mustAdd(t, ix, "Doctor Who", "Sci-Fi")

	expectIDs(t,
		mustSearch(t, ix, catalog.SearchQuery{SortField: catalog.SortByTitle, SortOrder: catalog.Ascending}),
		[]catalog.ID{x, y})
	expectIDs(t, mustSearch(t, ix, catalog.SearchQuery{Tags: []string{"sci-fi"}}), []catalog.ID{y})
	expectIDs(t, mustSearch(t, ix, catalog.SearchQuery{TitlePattern: catalog.StringPtr("*Boot")}), []catalog.ID{x})

	if err := ix.RemoveMovie(ctx, x); err != nil {
		t.Fatalf("RemoveMovie failed: %v", err)
	}
	expectIDs(t, mustSearch(t, ix, catalog.SearchQuery{}), []catalog.ID{y})
}

// plainIndex hides any catalog.Counter implementation of the wrapped index
// so CountEntries takes the generic path.
type plainIndex struct {
	catalog.Index
}

func testCounts(t *testing.T, ix catalog.Index) {
	ctx := context.Background()

	a := mustAdd(t, ix, "A", "x", "y")
	b := mustAdd(t, ix, "B", "y")
	mustAdd(t, ix, "C")

	video := catalog.FileInfo{Extension: "mp4", MimeType: "video/mp4"}
	if err := ix.UpdateMediaFileInfo(ctx, a, video); err != nil {
		t.Fatalf("UpdateMediaFileInfo failed: %v", err)
	}
	if err := ix.UpdateMediaFileInfo(ctx, b, video); err != nil {
		t.Fatalf("UpdateMediaFileInfo failed: %v", err)
	}
	if err := ix.UpdatePreviewFileInfo(ctx, b, catalog.FileInfo{Extension: "png", MimeType: "image/png"}); err != nil {
		t.Fatalf("UpdatePreviewFileInfo failed: %v", err)
	}

	want := catalog.Counts{Entries: 3, WithMedia: 2, PendingPreview: 1, Tags: 2}
	for name, target := range map[string]catalog.Index{"backend": ix, "generic": plainIndex{ix}} {
		got, err := catalog.CountEntries(ctx, target)
		if err != nil {
			t.Fatalf("%s: CountEntries failed: %v", name, err)
		}
		if got != want {
			t.Errorf("%s: expected %+v, got %+v", name, want, got)
		}
	}
}
