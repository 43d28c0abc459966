package template

import (
	"fmt"
	"strings"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

var _ ports.ReadoutCompiler = (*Registry)(nil)

// Registry maps engine names to readout compilers.
type Registry struct {
	engines map[string]ports.ReadoutCompiler
}

// NewRegistry creates a registry with the built-in engines (expr, jinja2).
func NewRegistry() *Registry {
	return &Registry{
		engines: map[string]ports.ReadoutCompiler{
			"expr":   &ExprCompiler{},
			"jinja2": &Jinja2Compiler{},
		},
	}
}

// CompileWith resolves the engine by name and compiles the source.
func (r *Registry) CompileWith(engine, name, source string) (ports.ReadoutRenderer, error) {
	ec, ok := r.engines[engine]
	if !ok {
		return nil, fmt.Errorf("unknown template engine: %q (supported: expr, jinja2)", engine)
	}
	return ec.Compile(name, source)
}

// Compile picks the engine from the source: ${ } interpolation selects
// expr, anything else is treated as a jinja2 template.
func (r *Registry) Compile(name, source string) (ports.ReadoutRenderer, error) {
	return r.CompileWith(Detect(source), name, source)
}

// Detect names the engine Compile would use for source.
func Detect(source string) string {
	if strings.Contains(source, "${") && !strings.Contains(source, "{{") && !strings.Contains(source, "{%") {
		return "expr"
	}
	return "jinja2"
}
