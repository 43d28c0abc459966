package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/scopecore/internal/domain/settings"
)

var _ settings.Repository = (*SettingsRepository)(nil)

// SettingsRepository stores the settings document as a YAML file. Loading
// resolves !include tags relative to the file's directory; saving writes
// the fully expanded document.
type SettingsRepository struct {
	path     string
	resolver *IncludeResolver
	mu       sync.Mutex
}

// NewSettingsRepository creates a repository for the file at path. The file
// need not exist yet.
func NewSettingsRepository(path string) (*SettingsRepository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings path: %w", err)
	}
	return &SettingsRepository{
		path:     abs,
		resolver: NewIncludeResolver(filepath.Dir(abs)),
	}, nil
}

// Path is the absolute location of the settings file.
func (r *SettingsRepository) Path() string {
	return r.path
}

// Load reads the file and overlays it onto the defaults. A missing file
// yields settings.ErrNotFound.
func (r *SettingsRepository) Load(_ context.Context) (settings.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings.Settings{}, settings.ErrNotFound
	}
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return settings.Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := r.resolver.ResolveIncludes(&root, filepath.Dir(r.path)); err != nil {
		return settings.Settings{}, fmt.Errorf("failed to resolve includes: %w", err)
	}

	var doc yamlSettings
	if root.Kind != 0 {
		if err := root.Decode(&doc); err != nil {
			return settings.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
		}
	}
	s, err := doc.apply(settings.Default())
	if err != nil {
		return settings.Settings{}, fmt.Errorf("invalid settings in %s: %w", r.path, err)
	}
	if err := s.Validate(); err != nil {
		return settings.Settings{}, fmt.Errorf("invalid settings in %s: %w", r.path, err)
	}
	return s, nil
}

// Save validates s and replaces the file atomically.
func (r *SettingsRepository) Save(_ context.Context, s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(toYAML(s))
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	return atomicWriteFile(r.path, data)
}

// atomicWriteFile writes content to a temp file then renames it over target.
func atomicWriteFile(target string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".scopecore-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	name := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(name, target); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
