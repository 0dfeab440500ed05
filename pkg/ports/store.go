package ports

import "context"

// TemplateStore defines the interface for retrieving plan template definitions.
// The core only ever reads the latest version of a template; writing and
// version management belong to the adapter behind this port.
type TemplateStore interface {
	// GetLatestDefinition returns the newest definition text for a template.
	// Returns domain.ErrTemplateNotFound if the template does not exist.
	GetLatestDefinition(ctx context.Context, templateID string) (string, error)
}
