// Package redis provides a template store adapter backed by Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.TemplateStore using Redis.
// Versions are kept in a list per template; reads return the newest entry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for template keys.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for templates.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "espalier:template:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(templateID string) string {
	return s.prefix + templateID
}

// Put appends a new version of the template's definition.
func (s *Store) Put(ctx context.Context, templateID, definition string) error {
	key := s.key(templateID)
	if err := s.client.RPush(ctx, key, definition).Err(); err != nil {
		return fmt.Errorf("failed to push template version: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set template ttl: %w", err)
		}
	}
	return nil
}

// GetLatestDefinition returns the newest version of the template.
func (s *Store) GetLatestDefinition(ctx context.Context, templateID string) (string, error) {
	def, err := s.client.LIndex(ctx, s.key(templateID), -1).Result()
	if err == backend.Nil {
		return "", domain.ErrTemplateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return def, nil
}
