// Package media keeps imported and generated media in memory and serves it
// over HTTP under /media/{id}. Blobs live only as long as the process.
package media

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const URLPrefix = "/media/"

var (
	ErrNotFound  = errors.New("media not found")
	ErrStoreFull = errors.New("media store is full")
	ErrEmpty     = errors.New("empty media")
)

type Blob struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`

	data []byte
}

func (b *Blob) Bytes() []byte {
	return b.data
}

// Store is a byte-capped in-memory blob store.
type Store struct {
	mu    sync.RWMutex
	blobs map[string]*Blob
	total int64
	limit int64
	now   func() time.Time
}

// NewStore creates a store holding at most limit bytes. A limit <= 0 means
// no cap.
func NewStore(limit int64) *Store {
	return &Store{
		blobs: make(map[string]*Blob),
		limit: limit,
		now:   time.Now,
	}
}

// Put stores data and returns its metadata. The caller owns the lifetime and
// should Delete blobs it replaces.
func (s *Store) Put(name, mimeType string, data []byte) (*Blob, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	size := int64(len(data))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit > 0 && s.total+size > s.limit {
		return nil, fmt.Errorf("%w: %d bytes held, %d requested, limit %d", ErrStoreFull, s.total, size, s.limit)
	}

	b := &Blob{
		ID:        uuid.NewString(),
		Name:      name,
		MimeType:  mimeType,
		Size:      size,
		CreatedAt: s.now(),
		data:      data,
	}
	s.blobs[b.ID] = b
	s.total += size
	return b, nil
}

func (s *Store) Get(id string) (*Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// Delete drops a blob. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[id]
	if !ok {
		return false
	}
	delete(s.blobs, id)
	s.total -= b.Size
	return true
}

// DeleteURL drops the blob behind a /media/ URL. Other URLs are ignored.
func (s *Store) DeleteURL(url string) bool {
	id, ok := IDFromURL(url)
	if !ok {
		return false
	}
	return s.Delete(id)
}

// GetURL resolves a /media/ URL to its blob.
func (s *Store) GetURL(url string) (*Blob, error) {
	id, ok := IDFromURL(url)
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(id)
}

// Usage returns the bytes held and the blob count.
func (s *Store) Usage() (int64, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total, len(s.blobs)
}

func URL(id string) string {
	return URLPrefix + id
}

func IDFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, URLPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(url, URLPrefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
