package service

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/crazegpt/internal/config"
	"github.com/set-night/crazegpt/internal/domain"
)

const blobScheme = "blob:"

type blob struct {
	data     []byte
	filename string
	mimeType string
	storedAt time.Time
}

// BlobStore holds generated file bytes until they are downloaded once.
// Blobs nobody fetches expire after ttl, and at most limit are kept; the oldest
// is dropped to make room.
type BlobStore struct {
	mu    sync.Mutex
	blobs map[string]blob
	ttl   time.Duration
	limit int
	now   func() time.Time
}

func NewBlobStore() *BlobStore {
	return NewBlobStoreWithLimits(config.BlobTTL, config.MaxBlobs)
}

func NewBlobStoreWithLimits(ttl time.Duration, limit int) *BlobStore {
	return &BlobStore{
		blobs: make(map[string]blob),
		ttl:   ttl,
		limit: limit,
		now:   time.Now,
	}
}

// Put stores data and returns a blob: URL referencing it.
func (s *BlobStore) Put(data []byte, filename, mimeType string) string {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)
	for s.limit > 0 && len(s.blobs) >= s.limit {
		s.evictOldestLocked()
	}
	s.blobs[id] = blob{data: data, filename: filename, mimeType: mimeType, storedAt: now}

	return blobScheme + id
}

func (s *BlobStore) Get(url string) (blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := BlobID(url)
	b, ok := s.blobs[id]
	if !ok {
		return blob{}, domain.ErrBlobNotFound
	}
	if s.expired(b, s.now()) {
		delete(s.blobs, id)
		return blob{}, domain.ErrBlobNotFound
	}
	return b, nil
}

func (s *BlobStore) Revoke(url string) {
	s.mu.Lock()
	delete(s.blobs, BlobID(url))
	s.mu.Unlock()
}

func (s *BlobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

func (s *BlobStore) expired(b blob, now time.Time) bool {
	return s.ttl > 0 && now.Sub(b.storedAt) > s.ttl
}

func (s *BlobStore) expireLocked(now time.Time) {
	for id, b := range s.blobs {
		if s.expired(b, now) {
			delete(s.blobs, id)
		}
	}
}

func (s *BlobStore) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, b := range s.blobs {
		if oldestID == "" || b.storedAt.Before(oldest) {
			oldestID, oldest = id, b.storedAt
		}
	}
	if oldestID != "" {
		slog.Warn("blob store full, evicting oldest", "blob", oldestID)
		delete(s.blobs, oldestID)
	}
}

// BlobID strips the blob: scheme, accepting either a URL or a bare ID.
func BlobID(url string) string {
	return strings.TrimPrefix(url, blobScheme)
}
