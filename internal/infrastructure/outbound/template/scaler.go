package template

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sophialabs/scopecore/internal/infrastructure/ports"
)

// ADC and screen constants of the linear conversion.
const (
	FullScale   = 4095.0
	Span        = 500.0
	LinearShift = -300.0
)

var (
	_ ports.ScalerFactory = (*ScalerFactory)(nil)
	_ ports.Scaler        = LinearScaler{}
	_ ports.Scaler        = (*ExprScaler)(nil)
)

// LinearScaler maps a 12-bit count onto the display span, amplified by Gain.
type LinearScaler struct {
	Gain float64
}

func (s LinearScaler) Scale(raw uint16) (float64, error) {
	return float64(raw)/FullScale*Span*s.Gain + LinearShift, nil
}

// scaleEnv is the environment of a channel scaling expression.
type scaleEnv struct {
	Raw       float64 `expr:"raw"`
	Gain      float64 `expr:"gain"`
	Offset    float64 `expr:"offset"`
	FullScale float64 `expr:"full_scale"`
	Span      float64 `expr:"span"`
}

// ExprScaler evaluates a compiled expression per sample.
type ExprScaler struct {
	source  string
	program *vm.Program
	gain    float64
}

func (s *ExprScaler) Scale(raw uint16) (float64, error) {
	out, err := expr.Run(s.program, scaleEnv{
		Raw:       float64(raw),
		Gain:      s.gain,
		Offset:    LinearShift,
		FullScale: FullScale,
		Span:      Span,
	})
	if err != nil {
		return 0, fmt.Errorf("scale %q: %w", s.source, err)
	}
	var v float64
	switch n := out.(type) {
	case float64:
		v = n
	case int:
		v = float64(n)
	default:
		return 0, fmt.Errorf("scale %q: result %T is not a number", s.source, out)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("scale %q: result %v is not finite", s.source, v)
	}
	return v, nil
}

// ScalerFactory builds channel scalers.
type ScalerFactory struct{}

// NewScaler compiles expression, or returns a LinearScaler when it is empty.
func (ScalerFactory) NewScaler(expression string, gain float64) (ports.Scaler, error) {
	if expression == "" {
		return LinearScaler{Gain: gain}, nil
	}
	program, err := expr.Compile(expression, expr.Env(scaleEnv{}), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("failed to compile scale expression %q: %w", expression, err)
	}
	return &ExprScaler{source: expression, program: program, gain: gain}, nil
}
