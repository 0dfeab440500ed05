package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// TemplateWriter is the write side a store adapter must expose for the
// contract suite to seed data. It is not part of the core port.
type TemplateWriter interface {
	Put(ctx context.Context, templateID, definition string) error
}

// TemplateStoreContractTest is a reusable suite that verifies an adapter
// complies with ports.TemplateStore semantics.
func TemplateStoreContractTest(t *testing.T, store ports.TemplateStore, writer TemplateWriter) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetLatest_NotFound", func(t *testing.T) {
		_, err := store.GetLatestDefinition(ctx, "missing-template")
		if !errors.Is(err, domain.ErrTemplateNotFound) {
			t.Fatalf("expected ErrTemplateNotFound, got %v", err)
		}
	})

	t.Run("GetLatest_Success", func(t *testing.T) {
		if err := writer.Put(ctx, "greeting", "steps: []\n"); err != nil {
			t.Fatalf("unexpected error seeding template: %v", err)
		}
		def, err := store.GetLatestDefinition(ctx, "greeting")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if def != "steps: []\n" {
			t.Errorf("definition mismatch. got %q", def)
		}
	})

	t.Run("GetLatest_ReturnsNewestVersion", func(t *testing.T) {
		if err := writer.Put(ctx, "versioned", "steps: [] # v1\n"); err != nil {
			t.Fatalf("unexpected error seeding v1: %v", err)
		}
		if err := writer.Put(ctx, "versioned", "steps: [] # v2\n"); err != nil {
			t.Fatalf("unexpected error seeding v2: %v", err)
		}
		def, err := store.GetLatestDefinition(ctx, "versioned")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if def != "steps: [] # v2\n" {
			t.Errorf("expected newest version, got %q", def)
		}
	})
}
