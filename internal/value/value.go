// Package value defines the Value Algebra of the evaluator: the tagged
// union of runtime values (§3.1) and the ArgVal wrapper distinguishing a
// plain value from a shape (§3.1). Every variant is a concrete type
// implementing the unexported Value marker method, the idiomatic Go
// equivalent of a closed sum type — a type switch over Value is
// exhaustive-checkable by a linter and new variants are easy to spot at
// every call site that matches on them.
package value

import "github.com/xiarush120220/penrose/internal/ad"

// Value is the interface implemented by every value variant. Only types
// declared in this package can implement it.
type Value interface {
	isValue()
	// Kind names the variant, used in diagnostics and in TypeMismatch
	// error messages.
	Kind() string
}

// FloatV is a differentiable scalar node (§3.1 "FloatV[AD]").
type FloatV struct{ X ad.Scalar }

func (FloatV) isValue()     {}
func (FloatV) Kind() string { return "FloatV" }

// IntV is a machine integer, kept distinct from FloatV so that integer
// arithmetic is not promoted until the op evaluator forces it (§4.1).
type IntV struct{ X int }

func (IntV) isValue()     {}
func (IntV) Kind() string { return "IntV" }

// BoolV and StrV are plain literals.
type BoolV struct{ X bool }

func (BoolV) isValue()     {}
func (BoolV) Kind() string { return "BoolV" }

type StrV struct{ X string }

func (StrV) isValue()     {}
func (StrV) Kind() string { return "StrV" }

// VectorV is an ordered sequence of differentiable scalars.
type VectorV struct{ X ad.Vector }

func (VectorV) isValue()     {}
func (VectorV) Kind() string { return "VectorV" }

// MatrixV is an ordered sequence of equal-length VectorV rows. Equal
// length is a producer invariant, not enforced by the type (§3.1).
type MatrixV struct{ Rows []ad.Vector }

func (MatrixV) isValue()     {}
func (MatrixV) Kind() string { return "MatrixV" }

// TupV is a pair of differentiable scalars.
type TupV struct{ A, B ad.Scalar }

func (TupV) isValue()     {}
func (TupV) Kind() string { return "TupV" }

// ListV is a homogeneous list of scalars.
type ListV struct{ X ad.Vector }

func (ListV) isValue()     {}
func (ListV) Kind() string { return "ListV" }

// LListV is a list whose elements are themselves vectors, used when the
// list of vectors is not a matrix (§3.1).
type LListV struct{ X []ad.Vector }

func (LListV) isValue()     {}
func (LListV) Kind() string { return "LListV" }

// OpaqueV carries a style-domain literal — a color, an SVG-style path,
// or any other variant the upstream compiler may introduce — through
// evaluation unchanged (§3.1, §3.6). The evaluator never inspects
// Payload; it only stores and forwards it.
type OpaqueV struct {
	OpaqueKind string
	Payload    interface{}
}

func (OpaqueV) isValue()     {}
func (o OpaqueV) Kind() string { return "OpaqueV:" + o.OpaqueKind }

// GPI is a Graphical Primitive Instance: a shape type together with its
// evaluated or unevaluated property map (§3.1).
type GPI struct {
	ShapeType string
	Props     map[string]Value
}

// ArgVal is either a Val wrapping a Value or a GPI. Shape properties are
// always Values, never GPIs (§3.1).
type ArgVal interface {
	isArgVal()
}

// Val wraps a plain Value as an ArgVal.
type Val struct{ Contents Value }

func (Val) isArgVal() {}

// GPIVal wraps a GPI as an ArgVal.
type GPIVal struct{ Contents GPI }

func (GPIVal) isArgVal() {}

// AsVal returns the wrapped Value and true if a is a Val, the zero
// Value and false otherwise.
func AsVal(a ArgVal) (Value, bool) {
	v, ok := a.(Val)
	if !ok {
		return nil, false
	}
	return v.Contents, true
}

// AsGPI returns the wrapped GPI and true if a is a GPIVal.
func AsGPI(a ArgVal) (GPI, bool) {
	g, ok := a.(GPIVal)
	if !ok {
		return GPI{}, false
	}
	return g.Contents, true
}

// ToFloat coerces v to a differentiable scalar, promoting IntV the way
// §4.1 requires. It reports false for any other variant; callers turn
// that into a TypeMismatch with the context they have at hand.
func ToFloat(tape *ad.Tape, v Value) (ad.Scalar, bool) {
	switch x := v.(type) {
	case FloatV:
		return x.X, true
	case IntV:
		return tape.ConstOf(float64(x.X)), true
	default:
		return ad.Scalar{}, false
	}
}
