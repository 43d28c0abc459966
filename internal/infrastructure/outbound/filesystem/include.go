package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	includeTag      = "!include"
	maxIncludeDepth = 10
)

// IncludeResolver expands !include tags so a settings file can pull channel
// presets (YAML) and readout templates (raw text) from sibling files.
//
// References are relative to the including file, or start with @root/ (the
// settings directory) or @here/ (the including file's directory). Absolute
// paths and references escaping the root are rejected.
type IncludeResolver struct {
	rootDir string
}

// NewIncludeResolver creates a resolver confined to rootDir.
func NewIncludeResolver(rootDir string) *IncludeResolver {
	return &IncludeResolver{rootDir: rootDir}
}

// ResolveIncludes replaces every !include node under node in place.
func (r *IncludeResolver) ResolveIncludes(node *yaml.Node, currentDir string) error {
	return r.expand(node, currentDir, 0)
}

func (r *IncludeResolver) expand(node *yaml.Node, dir string, depth int) error {
	if node == nil {
		return nil
	}
	if depth > maxIncludeDepth {
		return fmt.Errorf("%s nested deeper than %d", includeTag, maxIncludeDepth)
	}
	if node.Tag == includeTag {
		return r.splice(node, dir, depth)
	}
	for _, child := range node.Content {
		if err := r.expand(child, dir, depth); err != nil {
			return err
		}
	}
	return nil
}

func (r *IncludeResolver) splice(node *yaml.Node, dir string, depth int) error {
	ref := node.Value
	if ref == "" {
		return fmt.Errorf("%s with empty reference", includeTag)
	}
	target, err := r.locate(ref, dir)
	if err != nil {
		return fmt.Errorf("%s %q: %w", includeTag, ref, err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return fmt.Errorf("%s %q: %w", includeTag, ref, err)
	}

	if !isYAMLFile(target) {
		node.Tag = "!!str"
		node.Kind = yaml.ScalarNode
		node.Style = yaml.LiteralStyle
		node.Value = string(data)
		return nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s %q: %w", includeTag, ref, err)
	}
	if err := r.expand(&doc, filepath.Dir(target), depth+1); err != nil {
		return err
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		*node = *doc.Content[0]
	}
	return nil
}

func (r *IncludeResolver) locate(ref, dir string) (string, error) {
	var p string
	switch {
	case strings.HasPrefix(ref, "@root/"):
		p = filepath.Join(r.rootDir, strings.TrimPrefix(ref, "@root/"))
	case strings.HasPrefix(ref, "@here/"):
		p = filepath.Join(dir, strings.TrimPrefix(ref, "@here/"))
	case filepath.IsAbs(ref):
		return "", fmt.Errorf("absolute paths are not allowed")
	default:
		p = filepath.Join(dir, ref)
	}

	real, err := filepath.EvalSymlinks(p)
	if err != nil {
		real = p
	}
	root, err := filepath.EvalSymlinks(r.rootDir)
	if err != nil {
		root = r.rootDir
	}
	rel, err := filepath.Rel(root, real)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes %s", r.rootDir)
	}
	return p, nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
