package blobstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"movies-db/internal/catalog"
	"movies-db/internal/filesystem"
	"movies-db/internal/logging"
)

// FileStore keeps each slot in its own directory under root:
//
//	root/<id>/movie.<ext>
//	root/<id>/preview.<ext>
type FileStore struct {
	root     string
	observer Observer
	retry    filesystem.RetryConfig
	mu       sync.RWMutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates root if needed. obs may be nil.
func NewFileStore(root string, obs Observer) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", root, err)
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &FileStore{root: root, observer: obs, retry: filesystem.DefaultRetryConfig()}, nil
}

// Root returns the directory holding all slots.
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) slotDir(id catalog.ID) string {
	return filepath.Join(s.root, string(id))
}

func (s *FileStore) observe(op string, start time.Time, err error) {
	s.observer.ObserveOperation(op, time.Since(start).Seconds(), err)
}

func (s *FileStore) AllocateSlot(id catalog.ID) (err error) {
	start := time.Now()
	defer func() { s.observe("allocate", start, err) }()

	if err := validateID(id); err != nil {
		return err
	}
	if err := os.MkdirAll(s.slotDir(id), 0o750); err != nil {
		return fmt.Errorf("failed to create slot for %s: %w", id, err)
	}
	return nil
}

// OpenWriter creates the slot if needed and returns a writer that streams
// into a temp file next to the final blob. Close fsyncs and renames it
// into place.
func (s *FileStore) OpenWriter(id catalog.ID, kind Kind) (Writer, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := kind.validate(); err != nil {
		return nil, err
	}

	dir := s.slotDir(id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create slot for %s: %w", id, err)
	}

	f, err := os.CreateTemp(dir, "."+kind.FileName()+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	return &fileWriter{
		store:  s,
		f:      f,
		target: filepath.Join(dir, kind.FileName()),
		kind:   kind,
		start:  time.Now(),
	}, nil
}

func (s *FileStore) OpenReader(id catalog.ID, kind Kind) (Reader, error) {
	start := time.Now()

	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := kind.validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := filepath.Join(s.slotDir(id), kind.FileName())
	f, err := filesystem.OpenWithRetry(path, s.retry)
	if errors.Is(err, fs.ErrNotExist) {
		// a missing blob is a caller problem, not a store failure
		s.observe("read", start, nil)
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, id, kind)
	}
	if err != nil {
		err = fmt.Errorf("failed to open %s: %w", path, err)
		s.observe("read", start, err)
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		err = fmt.Errorf("failed to stat %s: %w", path, err)
		s.observe("read", start, err)
		return nil, err
	}

	s.observe("read", start, nil)
	return &fileReader{File: f, size: info.Size()}, nil
}

func (s *FileStore) Path(id catalog.ID, kind Kind) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	if err := kind.validate(); err != nil {
		return "", err
	}

	path := filepath.Join(s.slotDir(id), kind.FileName())
	if _, err := filesystem.StatWithRetry(path, s.retry); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s/%s", ErrNotFound, id, kind)
		}
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return path, nil
}

func (s *FileStore) RemoveAll(id catalog.ID) (err error) {
	start := time.Now()
	defer func() { s.observe("remove", start, err) }()

	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.slotDir(id)); err != nil {
		return fmt.Errorf("failed to remove slot %s: %w", id, err)
	}
	logging.Debug("Removed blob slot %s", id)
	return nil
}

// =============================================================================
// Writer / Reader
// =============================================================================

type fileWriter struct {
	store  *FileStore
	f      *os.File
	target string
	kind   Kind
	n      int64
	start  time.Time
	done   bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.n += int64(n)
	return n, err
}

func (w *fileWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	err := w.commit()
	w.store.observe("write", w.start, err)
	if err == nil {
		w.store.observer.ObserveBytesWritten(w.kind.Label(), w.n)
	}
	return err
}

func (w *fileWriter) commit() error {
	tmp := w.f.Name()

	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("fsync failed: %w", err)
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	// The slot may have been removed while the upload was running.
	if _, err := os.Stat(filepath.Dir(w.target)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: slot for %s is gone", ErrNotFound, w.target)
	}
	if err := os.Rename(tmp, w.target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename failed: %w", err)
	}
	return nil
}

func (w *fileWriter) Abort() {
	if w.done {
		return
	}
	w.done = true
	_ = w.f.Close()
	if err := os.Remove(w.f.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("Failed to remove temp file %s: %v", w.f.Name(), err)
	}
}

type fileReader struct {
	*os.File
	size int64
}

func (r *fileReader) Size() int64 {
	return r.size
}
