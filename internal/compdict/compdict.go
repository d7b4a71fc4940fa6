// Package compdict implements the computation dictionary: the sideways
// interface (§6) mapping a style-language function name to either an
// ordinary entry taking unwrapped values, or one of the two reserved
// derivative entries taking (debugInfo, path-as-string) instead
// (§4.4's CompApp rule, §4.8).
//
// Entries are registered by name, not by Go function identity, the way
// the style compiler looks functions up rather than the way Go code
// looks up a function pointer.
package compdict

import (
	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/value"
)

// DebugInfo carries the optimizer's most recently computed gradient and
// preconditioned-gradient components, keyed by the canonical string
// form of the AccessPath/EPath they belong to, encoded as a JSON string
// literal (quotes included) the way CompApp builds its lookup key
// (§4.4, §6). It is built
// fresh per pass from the params bundle; the evaluator itself never
// computes a gradient.
type DebugInfo struct {
	Grad        map[string]float64
	PrecondGrad map[string]float64
}

// Entry is an ordinary dictionary function: it receives the arguments
// CompApp has already evaluated, one ArgVal per argument expression
// (§4.4). Most entries only accept plain values and type-check with
// value.AsVal themselves; an entry that wants a GPI argument uses
// value.AsGPI instead.
type Entry func(tape *ad.Tape, args []value.ArgVal) (value.Value, error)

// DerivEntry backs the two reserved names. pathKey is the canonical
// AccessPath/EPath already serialized to JSON by the caller (§4.4).
type DerivEntry func(tape *ad.Tape, debug DebugInfo, pathKey string) (value.Value, error)

// Dictionary is a named registry of ordinary and reserved entries.
type Dictionary struct {
	entries map[string]Entry
	deriv   map[string]DerivEntry
}

// Derivative and DerivativePreconditioned are the two reserved CompApp
// names that bypass ordinary argument
// evaluation and consume debug info instead (§4.4).
const (
	Derivative               = "derivative"
	DerivativePreconditioned = "derivativePreconditioned"
)

// New returns an empty dictionary.
func New() *Dictionary {
	return &Dictionary{entries: map[string]Entry{}, deriv: map[string]DerivEntry{}}
}

// Register adds or replaces an ordinary entry.
func (d *Dictionary) Register(name string, e Entry) {
	d.entries[name] = e
}

// RegisterDeriv adds or replaces a reserved derivative entry.
func (d *Dictionary) RegisterDeriv(name string, e DerivEntry) {
	d.deriv[name] = e
}

// Lookup returns the ordinary entry for name, or Unimplemented if none
// is registered.
func (d *Dictionary) Lookup(name string) (Entry, error) {
	e, ok := d.entries[name]
	if !ok {
		return nil, evalerr.New(evalerr.Unimplemented, name, "no computation dictionary entry registered")
	}
	return e, nil
}

// LookupDeriv returns the reserved derivative entry for name.
func (d *Dictionary) LookupDeriv(name string) (DerivEntry, error) {
	e, ok := d.deriv[name]
	if !ok {
		return nil, evalerr.New(evalerr.Unimplemented, name, "no derivative entry registered")
	}
	return e, nil
}

// IsReserved reports whether name is one of the two reserved derivative
// names (§4.4).
func IsReserved(name string) bool {
	return name == Derivative || name == DerivativePreconditioned
}

// Standard returns the dictionary this module ships: the two reserved
// derivative lookups plus a handful of style-level numeric helpers
// built directly on internal/ad's scalar ops, grounded on the
// teacher's sqrt/squared/inverse/absVal elementals.
func Standard() *Dictionary {
	d := New()

	d.RegisterDeriv(Derivative, func(tape *ad.Tape, debug DebugInfo, pathKey string) (value.Value, error) {
		g, ok := debug.Grad[pathKey]
		if !ok {
			return nil, evalerr.New(evalerr.UnresolvedPath, pathKey, "no gradient recorded for path")
		}
		return value.FloatV{X: tape.ConstOf(g)}, nil
	})

	d.RegisterDeriv(DerivativePreconditioned, func(tape *ad.Tape, debug DebugInfo, pathKey string) (value.Value, error) {
		g, ok := debug.PrecondGrad[pathKey]
		if !ok {
			return nil, evalerr.New(evalerr.UnresolvedPath, pathKey, "no preconditioned gradient recorded for path")
		}
		return value.FloatV{X: tape.ConstOf(g)}, nil
	})

	d.Register("sqrt", unaryFloat(ad.Sqrt))
	d.Register("inverse", unaryFloat(ad.Inverse))
	d.Register("absVal", unaryFloat(ad.AbsVal))
	d.Register("squared", unaryFloat(ad.Squared))

	d.Register("max", func(tape *ad.Tape, args []value.ArgVal) (value.Value, error) {
		a, b, err := twoFloats(tape, "max", args)
		if err != nil {
			return nil, err
		}
		return value.FloatV{X: ad.IfCond(ad.Gt(a, b), a, b)}, nil
	})

	d.Register("min", func(tape *ad.Tape, args []value.ArgVal) (value.Value, error) {
		a, b, err := twoFloats(tape, "min", args)
		if err != nil {
			return nil, err
		}
		return value.FloatV{X: ad.IfCond(ad.Lt(a, b), a, b)}, nil
	})

	d.Register("norm", func(tape *ad.Tape, args []value.ArgVal) (value.Value, error) {
		if len(args) != 1 {
			return nil, evalerr.New(evalerr.TypeMismatch, "norm", "expected exactly one argument, got %d", len(args))
		}
		v, ok := value.AsVal(args[0])
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, "norm", "argument must not be a GPI")
		}
		vv, ok := v.(value.VectorV)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, "norm", "argument must be VectorV, got %s", v.Kind())
		}
		sum := tape.ConstOf(0)
		for _, s := range vv.X {
			sum = ad.Add(sum, ad.Squared(s))
		}
		return value.FloatV{X: ad.Sqrt(sum)}, nil
	})

	return d
}

func unaryFloat(op func(ad.Scalar) ad.Scalar) Entry {
	return func(tape *ad.Tape, args []value.ArgVal) (value.Value, error) {
		if len(args) != 1 {
			return nil, evalerr.New(evalerr.TypeMismatch, "", "expected exactly one argument, got %d", len(args))
		}
		v, ok := value.AsVal(args[0])
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, "", "argument must not be a GPI")
		}
		s, ok := value.ToFloat(tape, v)
		if !ok {
			return nil, evalerr.New(evalerr.TypeMismatch, "", "argument must be numeric, got %s", v.Kind())
		}
		return value.FloatV{X: op(s)}, nil
	}
}

func twoFloats(tape *ad.Tape, name string, args []value.ArgVal) (ad.Scalar, ad.Scalar, error) {
	if len(args) != 2 {
		return ad.Scalar{}, ad.Scalar{}, evalerr.New(evalerr.TypeMismatch, name, "expected exactly two arguments, got %d", len(args))
	}
	v1, ok := value.AsVal(args[0])
	if !ok {
		return ad.Scalar{}, ad.Scalar{}, evalerr.New(evalerr.TypeMismatch, name, "first argument must not be a GPI")
	}
	v2, ok := value.AsVal(args[1])
	if !ok {
		return ad.Scalar{}, ad.Scalar{}, evalerr.New(evalerr.TypeMismatch, name, "second argument must not be a GPI")
	}
	a, ok := value.ToFloat(tape, v1)
	if !ok {
		return ad.Scalar{}, ad.Scalar{}, evalerr.New(evalerr.TypeMismatch, name, "first argument must be numeric, got %s", v1.Kind())
	}
	b, ok := value.ToFloat(tape, v2)
	if !ok {
		return ad.Scalar{}, ad.Scalar{}, evalerr.New(evalerr.TypeMismatch, name, "second argument must be numeric, got %s", v2.Kind())
	}
	return a, b, nil
}
