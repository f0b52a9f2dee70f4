// Package catalog defines the movie catalog data model and the Index
// contract shared by every storage backend.
//
// # Search semantics
//
// SearchMovies behaves identically on every backend:
//
//  1. Query tags are normalized the same way stored tags are
//     (trimmed, lowercased, deduplicated, sorted).
//  2. Entries are ordered by the sort field. Titles compare by code point,
//     creation times chronologically, and ties fall back to the id.
//     Descending order is the exact reverse of ascending order.
//  3. The ordered entries are filtered by the title glob pattern and by
//     the tag set, which must contain every query tag.
//  4. Offset and limit apply to the filtered sequence.
//  5. Only ids are returned; callers fetch entries with GetMovie.
//
// # Errors
//
// Backends report failures with ErrInvalidArgument, ErrNotFound or
// ErrInternal, wrapped with context. Callers use errors.Is to branch.
//
// # Backends
//
// The memory, sqlite and postgres subpackages implement Index. The
// catalogtest package holds the conformance suite each of them runs.
// CachedIndex adds an LRU cache for GetMovie in front of any backend.
package catalog
