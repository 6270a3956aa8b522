// Package fixer implements BuildFixer (§4.G of the core spec): given a
// Problem and the phase it was produced under, attempt to repair the
// project or environment, reporting whether the problem was claimed.
// Grounded on dep's solver-failure-to-remedy pattern in solve_failures.go,
// generalised from "explain why a version can't be picked" to "attempt a
// repair and report the outcome".
package fixer

import (
	"context"

	"github.com/jelmer/ognibuild/problem"
)

// Outcome reports what a Fixer did with a Problem it was asked about.
type Outcome int

const (
	// NotClaimed means the fixer recognised it could not help; the
	// adaptive loop should try the next fixer in order.
	NotClaimed Outcome = iota
	// Claimed means the fixer believes it repaired the underlying cause;
	// the adaptive loop should retry the action.
	Claimed
	// Failed means the fixer recognised the problem but its repair
	// attempt itself failed; the loop treats this the same as
	// NotClaimed for the purposes of trying the next fixer, but callers
	// may want to log the distinct reason.
	Failed
)

// Fixer attempts to repair a Problem surfaced from a failed build action.
type Fixer interface {
	// Name identifies the fixer for diagnostics.
	Name() string
	// CanFix reports whether this fixer recognises p at all, without
	// attempting any mutation. The adaptive loop uses this to decide
	// whether to bother calling Fix.
	CanFix(p problem.Problem) bool
	// Fix attempts to repair p, given the build phase (action name) it
	// arose under. phase lets a fixer that only makes sense during
	// "test", say, decline problems raised during "build".
	Fix(ctx context.Context, p problem.Problem, phase string) (Outcome, error)
}
