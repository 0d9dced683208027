package microvm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/value"
)

// Mock evaluates a tiny subset of PL arithmetic (`(+ 1 2)`, `(* 2 (+ 1 1))`,
// bare integers) and echoes capability calls back as their inputs. It never
// touches the network or filesystem and is intended for tests and for
// agent-config profiles that haven't provisioned a real sandbox yet (spec
// §4.D "Mock").
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) ExecuteProgram(ctx context.Context, ec ExecutionContext) (Result, error) {
	if err := ec.CheckPermission(); err != nil {
		return Result{}, err
	}
	if ec.Program == nil {
		return Result{}, ccoserr.New(ccoserr.KindInternalError, "mock provider: execute_program called with no program")
	}
	switch ec.Program.Kind {
	case ProgramPlSource:
		v, err := evalArithmetic(ec.Program.PlSource)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: v, Metadata: ResultMetadata{DurationMS: 0}}, nil
	case ProgramExternal:
		return Result{Value: value.String(fmt.Sprintf("mock: would run %s %s", ec.Program.Path, strings.Join(ec.Program.Args, " ")))}, nil
	default:
		return Result{Value: value.Nil}, nil
	}
}

func (m *Mock) ExecuteCapability(ctx context.Context, ec ExecutionContext) (Result, error) {
	if err := ec.CheckPermission(); err != nil {
		return Result{}, err
	}
	return Result{Value: ec.Args}, nil
}

// evalArithmetic handles the narrow grammar `(op a b ...)` for op in
// {+,-,*,/} over integers/floats, plus bare numeric literals, sufficient to
// exercise planner/synthesis tests without a full interpreter.
func evalArithmetic(src string) (value.Value, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return value.Nil, nil
	}
	if !strings.HasPrefix(src, "(") {
		return parseScalar(src)
	}
	if !strings.HasSuffix(src, ")") {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "mock provider: unterminated expression %q", src)
	}
	inner := strings.TrimSpace(src[1 : len(src)-1])
	tokens := tokenizeArith(inner)
	if len(tokens) < 2 {
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "mock provider: empty expression %q", src)
	}
	op := tokens[0]
	operands := make([]value.Value, 0, len(tokens)-1)
	for _, tok := range tokens[1:] {
		v, err := evalArithmetic(tok)
		if err != nil {
			return value.Nil, err
		}
		operands = append(operands, v)
	}
	return applyArith(op, operands)
}

// tokenizeArith splits top-level whitespace-separated tokens while treating
// a parenthesised subexpression as one token.
func tokenizeArith(s string) []string {
	var toks []string
	depth := 0
	start := -1
	for i, r := range s {
		switch {
		case r == '(':
			if depth == 0 {
				start = i
			}
			depth++
		case r == ')':
			depth--
			if depth == 0 && start >= 0 {
				toks = append(toks, s[start:i+1])
				start = -1
			}
		case r == ' ' || r == '\t' || r == '\n':
			if depth == 0 && start >= 0 && s[start] != '(' {
				toks = append(toks, s[start:i])
				start = -1
			}
		default:
			if depth == 0 && start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		toks = append(toks, s[start:])
	}
	return toks
}

func applyArith(op string, operands []value.Value) (value.Value, error) {
	nums := make([]float64, len(operands))
	allInt := true
	for i, v := range operands {
		f, ok := v.AsNumber()
		if !ok {
			return value.Nil, ccoserr.New(ccoserr.KindParseError, "mock provider: non-numeric operand to %q", op)
		}
		nums[i] = f
		if _, isInt := v.Int(); !isInt {
			allInt = false
		}
	}
	var result float64
	switch op {
	case "+":
		for _, n := range nums {
			result += n
		}
	case "-":
		if len(nums) == 1 {
			result = -nums[0]
		} else {
			result = nums[0]
			for _, n := range nums[1:] {
				result -= n
			}
		}
	case "*":
		result = 1
		for _, n := range nums {
			result *= n
		}
	case "/":
		result = nums[0]
		for _, n := range nums[1:] {
			if n == 0 {
				return value.Nil, ccoserr.New(ccoserr.KindInternalError, "mock provider: division by zero")
			}
			result /= n
		}
	default:
		return value.Nil, ccoserr.New(ccoserr.KindParseError, "mock provider: unsupported operator %q", op)
	}
	if allInt {
		return value.Int(int64(result)), nil
	}
	return value.Float(result), nil
}

func parseScalar(tok string) (value.Value, error) {
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return value.Int(i), nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return value.Float(f), nil
	}
	return value.Nil, ccoserr.New(ccoserr.KindParseError, "mock provider: not a number %q", tok)
}
