// Package opeval implements the Op Evaluator: the binary and unary
// operation semantics over mixed numeric/vector operands (§4.2). It
// applies the integer-to-float promotion rule right before dispatch.
package opeval

import (
	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/expr"
	"github.com/xiarush120220/penrose/internal/value"
)

// Binary evaluates op over v1, v2 per the §4.2 table. tape is used to
// lift any IntV operand promoted to FloatV.
func Binary(tape *ad.Tape, op expr.BinaryOp, v1, v2 value.Value) (value.Value, error) {
	switch a := v1.(type) {
	case value.FloatV:
		switch b := v2.(type) {
		case value.FloatV:
			return floatFloat(op, a.X, b.X)
		case value.IntV:
			return floatFloat(op, a.X, tape.ConstOf(float64(b.X)))
		case value.VectorV:
			if op == expr.Multiply {
				return value.VectorV{X: scaleVector(a.X, b.X)}, nil
			}
			return nil, mismatch(op, v1, v2)
		default:
			return nil, mismatch(op, v1, v2)
		}

	case value.IntV:
		switch b := v2.(type) {
		case value.FloatV:
			return floatFloat(op, tape.ConstOf(float64(a.X)), b.X)
		case value.IntV:
			return intInt(tape, op, a.X, b.X)
		case value.VectorV:
			if op == expr.Multiply {
				return value.VectorV{X: scaleVector(tape.ConstOf(float64(a.X)), b.X)}, nil
			}
			return nil, mismatch(op, v1, v2)
		default:
			return nil, mismatch(op, v1, v2)
		}

	case value.VectorV:
		switch b := v2.(type) {
		case value.FloatV:
			if op == expr.Divide {
				return value.VectorV{X: divVectorByScalar(a.X, b.X)}, nil
			}
			return nil, mismatch(op, v1, v2)
		case value.IntV:
			if op == expr.Divide {
				return value.VectorV{X: divVectorByScalar(a.X, tape.ConstOf(float64(b.X)))}, nil
			}
			return nil, mismatch(op, v1, v2)
		case value.VectorV:
			if len(a.X) != len(b.X) && (op == expr.BPlus || op == expr.BMinus) {
				return nil, evalerr.New(evalerr.TypeMismatch, "", "vector length mismatch %d != %d", len(a.X), len(b.X))
			}
			switch op {
			case expr.BPlus:
				return value.VectorV{X: ad.VAdd(a.X, b.X)}, nil
			case expr.BMinus:
				return value.VectorV{X: ad.VSub(a.X, b.X)}, nil
			default:
				return nil, mismatch(op, v1, v2)
			}
		default:
			return nil, mismatch(op, v1, v2)
		}

	default:
		return nil, mismatch(op, v1, v2)
	}
}

// Unary evaluates op over v per §4.2. UPlus is always InvalidOperand.
func Unary(op expr.UnaryOp, v value.Value) (value.Value, error) {
	switch op {
	case expr.UPlus:
		return nil, evalerr.New(evalerr.InvalidOperand, "", "UPlus is never valid")
	case expr.UMinus:
		switch x := v.(type) {
		case value.FloatV:
			return value.FloatV{X: ad.Neg(x.X)}, nil
		case value.IntV:
			return value.IntV{X: -x.X}, nil
		case value.VectorV:
			return value.VectorV{X: ad.VNeg(x.X)}, nil
		default:
			return nil, evalerr.New(evalerr.TypeMismatch, "", "UMinus has no rule for %s", v.Kind())
		}
	default:
		return nil, evalerr.New(evalerr.TypeMismatch, "", "unrecognized unary operator")
	}
}

func floatFloat(op expr.BinaryOp, x, y ad.Scalar) (value.Value, error) {
	switch op {
	case expr.BPlus:
		return value.FloatV{X: ad.Add(x, y)}, nil
	case expr.BMinus:
		return value.FloatV{X: ad.Sub(x, y)}, nil
	case expr.Multiply:
		return value.FloatV{X: ad.Mul(x, y)}, nil
	case expr.Divide:
		return value.FloatV{X: ad.Div(x, y)}, nil
	case expr.Exp:
		return nil, evalerr.New(evalerr.Unimplemented, "", "Exp is not supported on floats")
	default:
		return nil, evalerr.New(evalerr.TypeMismatch, "", "unrecognized binary operator")
	}
}

func intInt(tape *ad.Tape, op expr.BinaryOp, a, b int) (value.Value, error) {
	switch op {
	case expr.BPlus:
		return value.IntV{X: a + b}, nil
	case expr.BMinus:
		return value.IntV{X: a - b}, nil
	case expr.Multiply:
		return value.IntV{X: a * b}, nil
	case expr.Divide:
		return value.FloatV{X: tape.ConstOf(float64(a) / float64(b))}, nil
	case expr.Exp:
		if b < 0 {
			return nil, evalerr.New(evalerr.Unimplemented, "", "negative integer exponent %d", b)
		}
		result := 1
		for i := 0; i < b; i++ {
			result *= a
		}
		return value.IntV{X: result}, nil
	default:
		return nil, evalerr.New(evalerr.TypeMismatch, "", "unrecognized binary operator")
	}
}

func scaleVector(s ad.Scalar, v ad.Vector) ad.Vector {
	out := make(ad.Vector, len(v))
	for i := range v {
		out[i] = ad.Mul(s, v[i])
	}
	return out
}

func divVectorByScalar(v ad.Vector, s ad.Scalar) ad.Vector {
	out := make(ad.Vector, len(v))
	for i := range v {
		out[i] = ad.Div(v[i], s)
	}
	return out
}

func mismatch(op expr.BinaryOp, v1, v2 value.Value) error {
	return evalerr.New(evalerr.TypeMismatch, "", "no rule for %s(%s, %s)", op, v1.Kind(), v2.Kind())
}
