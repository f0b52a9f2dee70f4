package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"movies-db/internal/blobstore"
	"movies-db/internal/catalog"
	"movies-db/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONResponse sets the JSON content type and status, then writes v.
func writeJSONResponse(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// writeError maps err onto a status code. Invalid arguments and missing
// entries carry their message to the client; anything else is logged and
// answered with a generic message.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidArgument), errors.Is(err, blobstore.ErrInvalidKind):
		logging.Debug("%s: %v", op, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, blobstore.ErrNotFound):
		logging.Debug("%s: %v", op, err)
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		logging.Error("%s: %v", op, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// movieID returns the id query parameter.
func movieID(r *http.Request) (catalog.ID, error) {
	id := r.URL.Query().Get("id")
	if id == "" {
		return "", catalog.InvalidArgument("missing id parameter")
	}
	return catalog.ID(id), nil
}
