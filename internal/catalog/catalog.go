package catalog

import (
	"context"
	"time"
)

// ID identifies a catalog entry. IDs are random UUIDs rendered as text
// and never change once assigned.
type ID string

// String returns the textual form of the id.
func (id ID) String() string {
	return string(id)
}

// Movie holds the user-editable part of a catalog entry.
type Movie struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// FileInfo describes a stored blob (media file or preview image).
type FileInfo struct {
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
}

// Entry is one stored movie record plus its derived file metadata.
type Entry struct {
	Movie       Movie     `json:"movie"`
	MediaInfo   *FileInfo `json:"media_info,omitempty"`
	PreviewInfo *FileInfo `json:"preview_info,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasMedia reports whether a media file has been recorded for the entry.
func (e Entry) HasMedia() bool {
	return e.MediaInfo != nil
}

// NeedsPreview reports whether the entry has media but no preview yet.
func (e Entry) NeedsPreview() bool {
	return e.MediaInfo != nil && e.PreviewInfo == nil
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	out := e
	out.Movie.Tags = append([]string(nil), e.Movie.Tags...)
	if out.Movie.Tags == nil {
		out.Movie.Tags = []string{}
	}
	if e.MediaInfo != nil {
		info := *e.MediaInfo
		out.MediaInfo = &info
	}
	if e.PreviewInfo != nil {
		info := *e.PreviewInfo
		out.PreviewInfo = &info
	}
	return out
}

// TagCount is the number of entries carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Index is the contract every catalog backend implements. All backends
// must produce identical results for the same sequence of calls; the
// shared conformance suite in catalogtest enforces this.
type Index interface {
	// AddMovie stores a new entry and returns its id. It fails with
	// ErrInvalidArgument when the title is empty.
	AddMovie(ctx context.Context, movie Movie) (ID, error)

	// GetMovie returns the entry for id or ErrNotFound.
	GetMovie(ctx context.Context, id ID) (Entry, error)

	// RemoveMovie deletes the entry. Removing an absent id fails with
	// ErrNotFound, so a second removal of the same id is an error.
	RemoveMovie(ctx context.Context, id ID) error

	ChangeTitle(ctx context.Context, id ID, title string) error
	ChangeDescription(ctx context.Context, id ID, description string) error
	ChangeTags(ctx context.Context, id ID, tags []string) error

	UpdateMediaFileInfo(ctx context.Context, id ID, info FileInfo) error
	UpdatePreviewFileInfo(ctx context.Context, id ID, info FileInfo) error

	// SearchMovies returns the ids matching query in query order.
	SearchMovies(ctx context.Context, query SearchQuery) ([]ID, error)

	// GetTagCounts returns every tag with the number of entries carrying
	// it, ordered by count descending then tag ascending.
	GetTagCounts(ctx context.Context) ([]TagCount, error)

	Close() error
}
