// Package eval is the tree-walk evaluator for the built-in arithmetic
// operators registered by internal/evalctx. It switches on the resolved
// Operator's Name rather than an array index (Go has no pointer-arithmetic
// shortcut into a case table), but the case-by-case semantics are ported
// directly from original_source/src/arithmetics/arith_context.c's
// arith_eval.
package eval

import (
	"fmt"
	"math"
	"math/rand"

	"calc/internal/calcerr"
	"calc/internal/node"
)

// Eval recursively evaluates n to a float64. Variable nodes are an error
// (spec scope: evaluation only applies to fully-constant trees produced
// after rewriting substitutes every pattern variable).
func Eval(n *node.Node) (float64, error) {
	switch n.Kind {
	case node.KindConstant:
		return n.ConstValue(), nil
	case node.KindVariable:
		return 0, calcerr.Newf(calcerr.ArgsMalformed, "cannot evaluate free variable %q", n.VarName())
	case node.KindOperator:
		return evalOperator(n)
	default:
		return 0, calcerr.New(calcerr.ArgsMalformed)
	}
}

func evalOperator(n *node.Node) (float64, error) {
	op := n.Operator()
	args := make([]float64, n.NumChildren())
	for i := range args {
		v, err := Eval(n.Child(i))
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	switch op.Name {
	// Constants, registered as zero-arity functions.
	case "pi":
		return math.Pi, nil
	case "e":
		return math.E, nil
	case "phi":
		return (1 + math.Sqrt(5)) / 2, nil
	case "clight":
		return 299792458, nil
	case "csound":
		return 343.2, nil

	// Basic arithmetic.
	case "+":
		if len(args) == 1 {
			return args[0], nil
		}
		return args[0] + args[1], nil
	case "-":
		if len(args) == 1 {
			return -args[0], nil
		}
		return args[0] - args[1], nil
	case "*":
		return args[0] * args[1], nil
	case "/":
		if args[1] == 0 {
			return 0, calcerr.New(calcerr.ArgsMalformed)
		}
		return args[0] / args[1], nil
	case "^":
		return math.Pow(args[0], args[1]), nil
	case "C":
		return binomial(args[0], args[1]), nil
	case "mod":
		return math.Mod(args[0], args[1]), nil

	// Postfix.
	case "!":
		return factorial(args[0]), nil
	case "%":
		return args[0] / 100, nil

	// Unary transcendentals / roots.
	case "exp":
		return math.Exp(args[0]), nil
	case "root":
		return math.Pow(args[1], 1/args[0]), nil
	case "sqrt":
		return math.Sqrt(args[0]), nil
	case "log":
		return math.Log10(args[0]), nil
	case "ln":
		return math.Log(args[0]), nil
	case "ld":
		return math.Log2(args[0]), nil
	case "lg":
		return math.Log10(args[0]), nil

	// Trigonometric.
	case "sin":
		return math.Sin(args[0]), nil
	case "cos":
		return math.Cos(args[0]), nil
	case "tan":
		return math.Tan(args[0]), nil
	case "asin":
		return math.Asin(args[0]), nil
	case "acos":
		return math.Acos(args[0]), nil
	case "atan":
		return math.Atan(args[0]), nil
	case "sinh":
		return math.Sinh(args[0]), nil
	case "cosh":
		return math.Cosh(args[0]), nil
	case "tanh":
		return math.Tanh(args[0]), nil
	case "asinh":
		return math.Asinh(args[0]), nil
	case "acosh":
		return math.Acosh(args[0]), nil
	case "atanh":
		return math.Atanh(args[0]), nil

	// Variadic.
	case "max":
		return reduceVariadic(args, math.Max, math.Inf(-1)), nil
	case "min":
		return reduceVariadic(args, math.Min, math.Inf(1)), nil
	case "sum":
		return reduceVariadic(args, func(a, b float64) float64 { return a + b }, 0), nil
	case "prod":
		return reduceVariadic(args, func(a, b float64) float64 { return a * b }, 1), nil
	case "avg":
		if len(args) == 0 {
			return 0, calcerr.New(calcerr.ArgsMalformed)
		}
		return reduceVariadic(args, func(a, b float64) float64 { return a + b }, 0) / float64(len(args)), nil

	// Rounding / misc unary.
	case "abs":
		return math.Abs(args[0]), nil
	case "ceil":
		return math.Ceil(args[0]), nil
	case "floor":
		return math.Floor(args[0]), nil
	case "round":
		return math.Round(args[0]), nil
	case "trunc":
		return math.Trunc(args[0]), nil
	case "frac":
		_, frac := math.Modf(args[0])
		return frac, nil

	case "rand":
		return randomBetween(args[0], args[1]), nil
	case "gamma":
		return math.Gamma(args[0]), nil
	case "fib":
		return fibonacci(args[0]), nil

	default:
		return 0, calcerr.Newf(calcerr.ArgsMalformed, "no evaluator case for operator %q", op.Name)
	}
}

// reduceVariadic folds args with f, seeded at identity, erroring the
// caller's responsibility to check len(args) == 0 where that is invalid
// (only avg does; max/min/sum/prod tolerate zero args via identity).
func reduceVariadic(args []float64, f func(a, b float64) float64, identity float64) float64 {
	acc := identity
	for _, a := range args {
		acc = f(acc, a)
	}
	return acc
}

func factorial(x float64) float64 {
	if x < 0 || x != math.Trunc(x) {
		return math.Gamma(x + 1)
	}
	result := 1.0
	for i := 2.0; i <= x; i++ {
		result *= i
	}
	return result
}

func binomial(n, k float64) float64 {
	if k < 0 || k > n {
		return 0
	}
	return factorial(n) / (factorial(k) * factorial(n-k))
}

func fibonacci(n float64) float64 {
	a, b := 0.0, 1.0
	for i := 0.0; i < n; i++ {
		a, b = b, a+b
	}
	return a
}

func randomBetween(lo, hi float64) float64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + rand.Float64()*(hi-lo)
}

// EvalString renders n with its String form, for diagnostics.
func EvalString(n *node.Node) string {
	return fmt.Sprintf("%v", n)
}
