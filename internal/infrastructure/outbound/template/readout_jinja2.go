package template

import (
	"fmt"

	"github.com/flosch/pongo2/v6"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

// Jinja2Compiler compiles readout templates with pongo2. The template is
// rendered once with every channel in scope as "channels".
type Jinja2Compiler struct{}

// Compile parses source as a pongo2 template.
func (c *Jinja2Compiler) Compile(name, source string) (ports.ReadoutRenderer, error) {
	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jinja2 readout %q: %w", name, err)
	}
	return &jinja2Renderer{tpl: tpl}, nil
}

type jinja2Renderer struct {
	tpl *pongo2.Template
}

func (r *jinja2Renderer) Render(channels []ports.ReadoutChannel) (string, error) {
	active := 0
	for _, ch := range channels {
		if ch.Active {
			active++
		}
	}
	out, err := r.tpl.Execute(pongo2.Context{
		"channels": channels,
		"active":   active,
		"fixed":    fixed,
	})
	if err != nil {
		return "", fmt.Errorf("jinja2 readout render failed: %w", err)
	}
	return out, nil
}
