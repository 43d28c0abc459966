package template

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

// ExprCompiler compiles a one-line readout template with ${ } interpolation.
// The line is rendered once per active channel.
type ExprCompiler struct{}

// Compile parses source for ${ } delimiters and compiles each expression.
func (c *ExprCompiler) Compile(name, source string) (ports.ReadoutRenderer, error) {
	segments, err := parseExprSegments(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expr readout %q: %w", name, err)
	}
	return &exprRenderer{segments: segments}, nil
}

type exprSegment struct {
	static  string
	program *vm.Program
}

func parseExprSegments(source string) ([]exprSegment, error) {
	var segments []exprSegment
	rest := source

	for {
		open := strings.Index(rest, "${")
		if open < 0 {
			if rest != "" {
				segments = append(segments, exprSegment{static: rest})
			}
			return segments, nil
		}
		if open > 0 {
			segments = append(segments, exprSegment{static: rest[:open]})
		}

		body := rest[open+2:]
		end := findClosingBrace(body)
		if end < 0 {
			return nil, fmt.Errorf("unclosed ${ at offset %d", len(source)-len(rest)+open)
		}
		program, err := expr.Compile(body[:end], expr.Env(readoutEnv{}))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression %q: %w", body[:end], err)
		}
		segments = append(segments, exprSegment{program: program})
		rest = body[end+1:]
	}
}

// findClosingBrace returns the index of the } closing an interpolation,
// skipping nested braces and quoted strings.
func findClosingBrace(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if quote != 0 {
			switch ch {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// readoutEnv is what a ${ } expression sees for one channel.
type readoutEnv struct {
	Index     int                       `expr:"index"`
	Name      string                    `expr:"name"`
	Value     float64                   `expr:"value"`
	HasValue  bool                      `expr:"has_value"`
	Triggered bool                      `expr:"triggered"`
	Locked    bool                      `expr:"locked"`
	Fixed     func(float64, int) string `expr:"fixed"`
}

func fixed(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.*f", max(decimals, 0), v)
}

type exprRenderer struct {
	segments []exprSegment
}

func (r *exprRenderer) Render(channels []ports.ReadoutChannel) (string, error) {
	var buf strings.Builder
	for _, ch := range channels {
		if !ch.Active {
			continue
		}
		env := readoutEnv{
			Index:     ch.Index,
			Name:      ch.Name,
			Value:     ch.Value,
			HasValue:  ch.HasValue,
			Triggered: ch.Triggered,
			Locked:    ch.Locked,
			Fixed:     fixed,
		}
		for _, seg := range r.segments {
			if seg.program == nil {
				buf.WriteString(seg.static)
				continue
			}
			out, err := expr.Run(seg.program, env)
			if err != nil {
				return "", fmt.Errorf("readout expression failed for %s: %w", ch.Name, err)
			}
			fmt.Fprintf(&buf, "%v", out)
		}
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}
