package main

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xiarush120220/penrose/internal/ad"
	"github.com/xiarush120220/penrose/internal/compdict"
	"github.com/xiarush120220/penrose/internal/path"
	"github.com/xiarush120220/penrose/internal/state"
)

// newEvaluator wires up one pass's collaborators: a fresh tape, the
// standard computation dictionary, the CLI's logger, and the
// --fold setting.
func newEvaluator(tape *ad.Tape, logger logrus.FieldLogger, fold bool) *state.Evaluator {
	ev := state.NewEvaluator(compdict.Standard(), logger)
	ev.Tape = tape
	ev.Fold = fold
	return ev
}

// parseFieldFlag turns a "substance.field" CLI flag into a FieldPath.
func parseFieldFlag(s string) path.Path {
	name, field, _ := strings.Cut(s, ".")
	return path.FieldPath{Name: name, Field: field}
}
