// Package state implements the Varying Map & State Adapter (§4.7): the
// path-map construction and varying-insertion helpers, the two
// top-level evaluation entry points (EvalShapes, EvalFunctions), and
// the State type that crosses the optimizer boundary.
//
// A *state.Evaluator owns the per-pass resources — the autodiff tape
// and a trace id for log correlation — rather than reaching for a
// package-level global: a fresh Evaluator is built for every pass (§5).
package state

import (
	"hash/fnv"
	"math/rand"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/compdict"
	"github.com/xiarush120220/penrose/internal/eval"
	"github.com/xiarush120220/penrose/internal/evalerr"
	"github.com/xiarush120220/penrose/internal/expr"
	"github.com/xiarush120220/penrose/internal/path"
	"github.com/xiarush120220/penrose/internal/shape"
	"github.com/xiarush120220/penrose/internal/translation"
	"github.com/xiarush120220/penrose/internal/value"
)

// Params is the bundle of optimizer-owned scalars the state carries
// across the boundary: the most recent objective weight and the
// gradient/preconditioned-gradient maps the computation dictionary's
// reserved entries read from (§6 "params bundle").
type Params struct {
	Weight      float64
	Grad        map[string]float64
	PrecondGrad map[string]float64
}

// State is the in-memory shape of everything that crosses the
// optimizer boundary (§6): varyingValues, translation,
// originalTranslation, shapes, params, varyingMap, pendingMap, and rng.
type State struct {
	VaryingValues       []float64
	VaryingPaths        []path.Path
	Translation         *translation.Translation
	OriginalTranslation *translation.Translation
	Shapes              []shape.Shape
	Params              Params
	VaryingMap          eval.VaryingMap
	PendingMap          map[string]value.Value
	// Seed is the stored seed string RNG was derived from (§4.7); kept
	// alongside RNG so the wire boundary can round-trip it without
	// re-deriving a seed from a generator that has already advanced.
	Seed string
	RNG  *rand.Rand
}

// NewRNG seeds a deterministic generator from a stored seed string
// (§4.7 "Seeding ... uses the stored seed string and is
// deterministic"): the seed string is hashed to an int64 so two states
// decoded from the same wire document reproduce the same stream.
func NewRNG(seed string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// GenPathMap builds the canonical-path-keyed varying map from two
// aligned arrays (§4.7, §8 property 9). A length mismatch is fatal;
// two empty (or nil) arrays succeed with an empty map.
func GenPathMap(paths []path.Path, values []float64) (eval.VaryingMap, error) {
	if len(paths) != len(values) {
		return nil, evalerr.New(evalerr.TypeMismatch, "",
			"varying path/value length mismatch: %d paths, %d values", len(paths), len(values))
	}
	m := make(eval.VaryingMap, len(paths))
	for i, p := range paths {
		m[path.Key(p)] = values[i]
	}
	return m, nil
}

// InsertVaryings writes Done(FloatV(value)) into tr for each aligned
// (path, value) pair (§4.7 "Varying insertion").
func InsertVaryings(tape *ad.Tape, tr *translation.Translation, paths []path.Path, values []float64) error {
	if len(paths) != len(values) {
		return evalerr.New(evalerr.TypeMismatch, "",
			"varying path/value length mismatch: %d paths, %d values", len(paths), len(values))
	}
	for i, p := range paths {
		v := value.FloatV{X: tape.ConstOf(values[i])}
		if err := tr.InsertExpr(p, translation.Done{V: v}); err != nil {
			return err
		}
	}
	return nil
}

// Evaluator owns the collaborators a single evaluation pass needs: the
// tape backing every differentiable scalar the pass produces, the
// computation dictionary, and a logger/trace id pair for diagnostics.
// Logging never changes control flow (§8 property 1 holds regardless
// of whether a logger is configured).
type Evaluator struct {
	Tape    *ad.Tape
	Dict    *compdict.Dictionary
	Logger  logrus.FieldLogger
	TraceID uuid.UUID
	// Fold is threaded into every eval.Context this Evaluator builds
	// (config.Config.Fold); see eval.Context.Fold for what it does.
	Fold bool
}

// NewEvaluator constructs a fresh per-pass Evaluator. A nil logger
// falls back to logrus's standard logger.
func NewEvaluator(dict *compdict.Dictionary, logger logrus.FieldLogger) *Evaluator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Evaluator{
		Tape:    ad.NewTape(),
		Dict:    dict,
		Logger:  logger,
		TraceID: uuid.New(),
	}
}

// EvalShapes runs the evaluation pass described in §2's control flow:
// clone the translation, insert varyings, evaluate every shape path,
// reorder by shapeOrdering, and return a new state carrying the
// freshened shapes and varying map. s itself, and the translation it
// points at, are left untouched (§8 property 1).
func (e *Evaluator) EvalShapes(s *State, shapePaths []path.Path, shapeOrdering []string) (*State, error) {
	log := e.Logger.WithField("trace", e.TraceID).WithField("op", "EvalShapes")

	vmap, err := GenPathMap(s.VaryingPaths, s.VaryingValues)
	if err != nil {
		log.WithError(err).Error("varying path map construction failed")
		return nil, err
	}

	tr := s.Translation.Clone()
	if err := InsertVaryings(e.Tape, tr, s.VaryingPaths, s.VaryingValues); err != nil {
		log.WithError(err).Error("varying insertion failed")
		return nil, err
	}

	ctx := &eval.Context{
		Tape:    e.Tape,
		Dict:    e.Dict,
		Varying: vmap,
		Debug:   compdict.DebugInfo{Grad: s.Params.Grad, PrecondGrad: s.Params.PrecondGrad},
		Fold:    e.Fold,
	}

	shapes, err := shape.Eval(ctx, tr, shapePaths, shapeOrdering)
	if err != nil {
		log.WithError(err).Error("shape evaluation failed")
		return nil, err
	}
	log.WithField("shapes", len(shapes)).Debug("evaluation pass complete")

	return &State{
		VaryingValues:       s.VaryingValues,
		VaryingPaths:        s.VaryingPaths,
		Translation:         tr,
		OriginalTranslation: s.OriginalTranslation,
		Shapes:              shapes,
		Params:              s.Params,
		VaryingMap:          vmap,
		PendingMap:          s.PendingMap,
		Seed:                s.Seed,
		RNG:                 s.RNG,
	}, nil
}

// EvalFunctions evaluates the argument lists of objectives and
// constraints against the same translation and varying map, producing
// differentiable argument tuples. Unlike EvalShapes it does not insert
// varyings into the translation — the varying map alone is sufficient
// to override path resolution (§4.5 step 1) — and it uses an empty
// debug map, since objective/constraint arguments never reference the
// reserved derivative names (§2).
func (e *Evaluator) EvalFunctions(s *State, argLists [][]expr.Expr) ([][]value.ArgVal, error) {
	log := e.Logger.WithField("trace", e.TraceID).WithField("op", "EvalFunctions")

	vmap, err := GenPathMap(s.VaryingPaths, s.VaryingValues)
	if err != nil {
		log.WithError(err).Error("varying path map construction failed")
		return nil, err
	}

	tr := s.Translation.Clone()
	ctx := &eval.Context{Tape: e.Tape, Dict: e.Dict, Varying: vmap, Debug: compdict.DebugInfo{}, Fold: e.Fold}

	out := make([][]value.ArgVal, len(argLists))
	for i, args := range argLists {
		vals := make([]value.ArgVal, len(args))
		for j, a := range args {
			v, err := eval.EvalExpr(ctx, tr, a)
			if err != nil {
				log.WithError(err).WithField("arglist", i).WithField("arg", j).Error("argument evaluation failed")
				return nil, err
			}
			vals[j] = v
		}
		out[i] = vals
	}
	return out, nil
}
