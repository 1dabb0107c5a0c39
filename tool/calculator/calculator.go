// Package calculator provides a tool that evaluates mathematical expressions
// such as "2 + 2", "3.14 * 5" or "sqrt(16) * pi" and returns the result as text.
//
// Besides arithmetic and the ^ power operator, expressions may use the
// constants pi and e and the functions sqrt, exp, ln, log10, sin, cos, tan,
// asin, acos, atan, sinh, cosh, tanh, signum, abs, floor, ceil, round, min
// and max.
package calculator

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/hupe1980/agentchain/tool"
)

// Name is the tool name exposed to models.
const Name = "calculate_tool"

// Args is the decoded argument payload.
type Args struct {
	Expression string `json:"expression" description:"A mathematical expression to evaluate (e.g., '2 + 2', '3.14 * 5', 'sqrt(16)')"`
}

// New returns the calculator tool.
func New() tool.Tool {
	return tool.New(Name, "Evaluates a mathematical expression and returns the result", Evaluate)
}

// Evaluate computes args.Expression. Only numeric results are accepted;
// integers are rendered without a fractional part.
func Evaluate(_ context.Context, args Args) (string, error) {
	src := strings.TrimSpace(args.Expression)
	if src == "" {
		return "", fmt.Errorf("expression is empty")
	}

	program, err := expr.Compile(src, options...)
	if err != nil {
		return "", fmt.Errorf("evaluate %q: %w", src, err)
	}
	v, err := expr.Run(program, constants)
	if err != nil {
		return "", fmt.Errorf("evaluate %q: %w", src, err)
	}

	return format(v)
}

var constants = map[string]any{
	"pi": math.Pi,
	"e":  math.E,
}

// abs, floor, ceil, round, min and max are expr builtins.
var options = []expr.Option{
	expr.Env(constants),
	unary("sqrt", math.Sqrt),
	unary("exp", math.Exp),
	unary("ln", math.Log),
	unary("log10", math.Log10),
	unary("sin", math.Sin),
	unary("cos", math.Cos),
	unary("tan", math.Tan),
	unary("asin", math.Asin),
	unary("acos", math.Acos),
	unary("atan", math.Atan),
	unary("sinh", math.Sinh),
	unary("cosh", math.Cosh),
	unary("tanh", math.Tanh),
	unary("signum", signum),
}

func unary(name string, fn func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(params))
		}
		x, err := toFloat(params[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return fn(x), nil
	})
}

func signum(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return x
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("argument is %T, want a number", v)
	}
}

func format(v any) (string, error) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), nil
	case int64:
		return strconv.FormatInt(n, 10), nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return "", fmt.Errorf("result is not a finite number: %v", n)
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expression evaluated to %T, want a number", v)
	}
}
