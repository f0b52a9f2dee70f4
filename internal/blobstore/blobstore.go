// Package blobstore keeps the binary payloads of catalog entries: the
// uploaded media file and its preview image.
//
// Every entry owns one slot. A slot holds at most one blob per kind, and
// writing a kind again replaces the previous blob atomically.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"movies-db/internal/catalog"
)

var (
	// ErrNotFound is returned when a slot or blob does not exist.
	ErrNotFound = errors.New("blob not found")
	// ErrUnsupported is returned by stores that cannot expose a file path.
	ErrUnsupported = errors.New("operation not supported by this store")
	// ErrInvalidKind is returned for extensions that are not plain tokens.
	ErrInvalidKind = errors.New("invalid blob kind")
)

// Kind names one blob of a slot.
type Kind struct {
	name string
	ext  string
}

// MediaData is the uploaded movie file with extension ext.
func MediaData(ext string) Kind {
	return Kind{name: "movie", ext: ext}
}

// PreviewData is the preview image with extension ext.
func PreviewData(ext string) Kind {
	return Kind{name: "preview", ext: ext}
}

// Ext returns the file extension without a leading dot.
func (k Kind) Ext() string {
	return k.ext
}

// Label is the metrics label for the kind: "media" or "preview".
func (k Kind) Label() string {
	if k.name == "movie" {
		return "media"
	}
	return k.name
}

// FileName is the name of the blob inside its slot, e.g. movie.mp4.
func (k Kind) FileName() string {
	return k.name + "." + k.ext
}

func (k Kind) String() string {
	return k.FileName()
}

func (k Kind) validate() error {
	if k.name == "" {
		return fmt.Errorf("%w: zero kind", ErrInvalidKind)
	}
	if k.ext == "" || len(k.ext) > 16 {
		return fmt.Errorf("%w: extension %q", ErrInvalidKind, k.ext)
	}
	for _, r := range k.ext {
		if !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return fmt.Errorf("%w: extension %q", ErrInvalidKind, k.ext)
		}
	}
	return nil
}

func validateID(id catalog.ID) error {
	s := string(id)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%w: slot %q", ErrInvalidKind, s)
	}
	return nil
}

// Reader is an open blob.
type Reader interface {
	io.ReadSeekCloser
	Size() int64
}

// Writer receives a blob. Close publishes it; Abort discards everything
// written so far and leaves any previous blob of the same kind in place.
type Writer interface {
	io.WriteCloser
	Abort()
}

// Store is implemented by every blob backend.
type Store interface {
	// AllocateSlot prepares storage for id. It is safe to call twice.
	AllocateSlot(id catalog.ID) error
	OpenWriter(id catalog.ID, kind Kind) (Writer, error)
	OpenReader(id catalog.ID, kind Kind) (Reader, error)
	// Path returns a filesystem path to the blob for external tools, or
	// ErrUnsupported.
	Path(id catalog.ID, kind Kind) (string, error)
	// RemoveAll deletes the slot and every blob in it. Removing a missing
	// slot is not an error.
	RemoveAll(id catalog.ID) error
}

// Observer receives blob store activity. metrics.BlobObserver implements
// it; a nil Observer disables reporting.
type Observer interface {
	ObserveOperation(operation string, durationSeconds float64, err error)
	ObserveBytesWritten(kind string, n int64)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, float64, error) {}
func (nopObserver) ObserveBytesWritten(string, int64)       {}
