package settings

import (
	"context"
	"errors"
)

// ErrNotFound indicates no settings document has been saved yet.
var ErrNotFound = errors.New("settings not found")

// Repository is the port for loading and persisting the settings document.
type Repository interface {
	// Load returns the stored document. Returns ErrNotFound if none exists.
	Load(ctx context.Context) (Settings, error)

	// Save replaces the stored document.
	Save(ctx context.Context, s Settings) error
}
