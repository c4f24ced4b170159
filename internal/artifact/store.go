// Package artifact keeps finalized recordings in memory and serves them by
// URL until they are revoked.
package artifact

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("recording not found")

// Artifact is one published recording.
type Artifact struct {
	ID        string
	MimeType  string
	Data      []byte
	CreatedAt time.Time
}

// Store is an in-memory ports.ArtifactStore. When Limit is positive the
// oldest artifacts are evicted once more than Limit are held.
type Store struct {
	baseURL string
	limit   int
	now     func() time.Time

	mu    sync.RWMutex
	items map[string]Artifact
	order []string
}

func NewStore(baseURL string, limit int) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		now:     time.Now,
		items:   make(map[string]Artifact),
	}
}

// Publish stores data and returns its id and URL. The data slice is owned by
// the store afterwards.
func (s *Store) Publish(data []byte, mimeType string) (string, string, error) {
	if len(data) == 0 {
		return "", "", errors.New("artifact is empty")
	}
	id := uuid.NewString()

	s.mu.Lock()
	s.items[id] = Artifact{ID: id, MimeType: mimeType, Data: data, CreatedAt: s.now()}
	s.order = append(s.order, id)
	for s.limit > 0 && len(s.order) > s.limit {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	s.mu.Unlock()

	return id, s.URL(id), nil
}

// URL returns the address an artifact id is served at.
func (s *Store) URL(id string) string {
	return s.baseURL + "/recordings/" + id
}

func (s *Store) Get(id string) (Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return Artifact{}, ErrNotFound
	}
	return item, nil
}

// Revoke drops an artifact. Unknown ids are ignored.
func (s *Store) Revoke(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
