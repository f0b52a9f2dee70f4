package blobstore

import (
	"bytes"
	"fmt"
	"sync"

	"movies-db/internal/catalog"
)

// MemoryStore keeps blobs in memory. It has no file paths, so the preview
// pipeline cannot run against it.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[catalog.ID]map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[catalog.ID]map[string][]byte)}
}

func (s *MemoryStore) AllocateSlot(id catalog.ID) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[id]; !ok {
		s.slots[id] = make(map[string][]byte)
	}
	return nil
}

func (s *MemoryStore) OpenWriter(id catalog.ID, kind Kind) (Writer, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := kind.validate(); err != nil {
		return nil, err
	}
	return &memWriter{store: s, id: id, name: kind.FileName()}, nil
}

func (s *MemoryStore) OpenReader(id catalog.ID, kind Kind) (Reader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.slots[id][kind.FileName()]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, id, kind)
	}
	return memReader{bytes.NewReader(data)}, nil
}

func (s *MemoryStore) Path(catalog.ID, Kind) (string, error) {
	return "", ErrUnsupported
}

func (s *MemoryStore) RemoveAll(id catalog.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, id)
	return nil
}

// Has reports whether the blob exists.
func (s *MemoryStore) Has(id catalog.ID, kind Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.slots[id][kind.FileName()]
	return ok
}

type memWriter struct {
	store *MemoryStore
	id    catalog.ID
	name  string
	buf   bytes.Buffer
	done  bool
}

func (w *memWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true

	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	slot, ok := w.store.slots[w.id]
	if !ok {
		slot = make(map[string][]byte)
		w.store.slots[w.id] = slot
	}
	slot[w.name] = bytes.Clone(w.buf.Bytes())
	return nil
}

func (w *memWriter) Abort() {
	w.done = true
}

// memReader gets Size from bytes.Reader.
type memReader struct {
	*bytes.Reader
}

func (memReader) Close() error {
	return nil
}
