// Package memory provides an in-memory template store adapter.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Store implements ports.TemplateStore in memory.
// Every Put appends a new version; reads always return the newest.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	versions map[string][]string
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		versions: make(map[string][]string),
	}
}

// Put appends a new version of the template's definition.
func (s *Store) Put(ctx context.Context, templateID, definition string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[templateID] = append(s.versions[templateID], definition)
	return nil
}

// GetLatestDefinition returns the newest version of the template.
func (s *Store) GetLatestDefinition(ctx context.Context, templateID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, ok := s.versions[templateID]
	if !ok || len(versions) == 0 {
		return "", domain.ErrTemplateNotFound
	}
	return versions[len(versions)-1], nil
}

// List returns the known template ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.versions))
	for id := range s.versions {
		ids = append(ids, id)
	}
	return ids, nil
}
