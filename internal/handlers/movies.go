package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"movies-db/internal/catalog"
	"movies-db/internal/logging"
)

// maxMovieBodyBytes bounds JSON request bodies of the movie endpoints.
const maxMovieBodyBytes = 1 << 20

// MovieListEntry is one search result.
type MovieListEntry struct {
	ID    catalog.ID `json:"id"`
	Title string     `json:"title"`
}

// MovieUpdate is the PATCH body. Absent fields are left unchanged.
type MovieUpdate struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxMovieBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return catalog.InvalidArgument("invalid request body: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return catalog.InvalidArgument("invalid request body: trailing data")
	}
	return nil
}

// AddMovie creates an entry and its blob slot, answering with the new id
// as plain text.
func (h *Handlers) AddMovie(w http.ResponseWriter, r *http.Request) {
	var movie catalog.Movie
	if err := decodeBody(w, r, &movie); err != nil {
		writeError(w, "add movie", err)
		return
	}

	id, err := h.index.AddMovie(r.Context(), movie)
	if err != nil {
		writeError(w, "add movie", err)
		return
	}

	if err := h.store.AllocateSlot(id); err != nil {
		writeError(w, "allocate slot for "+id.String(), err)
		return
	}

	logging.Info("Added movie %s (%q)", id, movie.Title)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, id.String()); err != nil {
		logging.Error("failed to write response: %v", err)
	}
}

// GetMovie returns the full entry.
func (h *Handlers) GetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeError(w, "get movie", err)
		return
	}

	entry, err := h.index.GetMovie(r.Context(), id)
	if err != nil {
		writeError(w, "get movie "+id.String(), err)
		return
	}
	writeJSONResponse(w, http.StatusOK, entry)
}

// UpdateMovie applies the fields present in the body and returns the
// updated entry. Fields are applied one at a time; a failure leaves the
// earlier ones applied.
func (h *Handlers) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeError(w, "update movie", err)
		return
	}

	var update MovieUpdate
	if err := decodeBody(w, r, &update); err != nil {
		writeError(w, "update movie "+id.String(), err)
		return
	}
	if update.Title == nil && update.Description == nil && update.Tags == nil {
		writeError(w, "update movie "+id.String(), catalog.InvalidArgument("nothing to update"))
		return
	}

	ctx := r.Context()
	if update.Title != nil {
		if err := h.index.ChangeTitle(ctx, id, *update.Title); err != nil {
			writeError(w, "change title of "+id.String(), err)
			return
		}
	}
	if update.Description != nil {
		if err := h.index.ChangeDescription(ctx, id, *update.Description); err != nil {
			writeError(w, "change description of "+id.String(), err)
			return
		}
	}
	if update.Tags != nil {
		if err := h.index.ChangeTags(ctx, id, *update.Tags); err != nil {
			writeError(w, "change tags of "+id.String(), err)
			return
		}
	}

	entry, err := h.index.GetMovie(ctx, id)
	if err != nil {
		writeError(w, "get movie "+id.String(), err)
		return
	}
	writeJSONResponse(w, http.StatusOK, entry)
}

// DeleteMovie removes the entry, then its blobs. The two steps are not
// atomic: a failed blob removal leaves orphaned files behind.
func (h *Handlers) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, err := movieID(r)
	if err != nil {
		writeError(w, "delete movie", err)
		return
	}

	if err := h.index.RemoveMovie(r.Context(), id); err != nil {
		writeError(w, "delete movie "+id.String(), err)
		return
	}
	if err := h.store.RemoveAll(id); err != nil {
		writeError(w, "remove blobs of "+id.String(), err)
		return
	}

	logging.Info("Deleted movie %s", id)
	writeJSONStatus(w, "deleted")
}

// SearchMovies runs a search and returns ids with titles.
func (h *Handlers) SearchMovies(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		writeError(w, "search movies", err)
		return
	}

	ctx := r.Context()
	ids, err := h.index.SearchMovies(ctx, query)
	if err != nil {
		writeError(w, "search movies", err)
		return
	}

	results := make([]MovieListEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := h.index.GetMovie(ctx, id)
		if catalog.IsNotFound(err) {
			// removed since the search
			continue
		}
		if err != nil {
			writeError(w, "search movies", err)
			return
		}
		results = append(results, MovieListEntry{ID: id, Title: entry.Movie.Title})
	}

	writeJSONResponse(w, http.StatusOK, results)
}

// GetTagCounts lists every tag with its number of entries.
func (h *Handlers) GetTagCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.index.GetTagCounts(r.Context())
	if err != nil {
		writeError(w, "get tag counts", err)
		return
	}
	if counts == nil {
		counts = []catalog.TagCount{}
	}
	writeJSONResponse(w, http.StatusOK, counts)
}

// parseSearchQuery reads sort_field, sort_order, title, tag, offset and
// limit. tag may be repeated or hold a comma separated list.
func parseSearchQuery(values url.Values) (catalog.SearchQuery, error) {
	var q catalog.SearchQuery
	var err error

	if q.SortField, err = catalog.ParseSortField(values.Get("sort_field")); err != nil {
		return q, err
	}
	if q.SortOrder, err = catalog.ParseSortOrder(values.Get("sort_order")); err != nil {
		return q, err
	}

	if title := values.Get("title"); title != "" {
		q.TitlePattern = catalog.StringPtr(title)
	}

	for _, v := range values["tag"] {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				q.Tags = append(q.Tags, tag)
			}
		}
	}

	if q.Offset, err = intParam(values, "offset"); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(values, "limit"); err != nil {
		return q, err
	}

	return q.Normalize()
}

func intParam(values url.Values, name string) (*int, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, catalog.InvalidArgument("%s must be an integer, got %q", name, raw)
	}
	return &v, nil
}
