// Package ogniloop implements the adaptive build-fix loop (§4.I of the
// core spec), the heart of the system: invoke a build action across a
// sequence of detected BuildSystems, and on failure parse the captured log
// into a Problem, consult Fixers in order, and retry — bounded by
// recurrence detection and a fix-count limit.
package ogniloop

import (
	"context"
	"fmt"
	"io"

	"github.com/jelmer/ognibuild/analyzer"
	"github.com/jelmer/ognibuild/buildsystem"
	"github.com/jelmer/ognibuild/fixer"
	"github.com/jelmer/ognibuild/problem"
	"github.com/jelmer/ognibuild/session"
)

// Action is one of the five build actions, orthogonal per §3.
type Action string

const (
	ActionClean   Action = "clean"
	ActionBuild   Action = "build"
	ActionInstall Action = "install"
	ActionTest    Action = "test"
	ActionDist    Action = "dist"
)

// DefaultLimit is the default bound on fix-retry iterations per top-level
// call (§4.I step 7); the source gives no empirical justification for 200,
// so it is kept as a named constant rather than re-derived.
const DefaultLimit = 200

// NoBuildToolsFoundError is returned when the caller supplies no
// BuildSystems at all; the loop never invokes a session command in this
// case (§8's "NoBuildToolsFound terminates before any session command is
// run").
type NoBuildToolsFoundError struct{}

func (NoBuildToolsFoundError) Error() string { return "no build tools found" }

// RecurrenceError reports that the same (Problem, phase) visit occurred
// twice without intervening progress.
type RecurrenceError struct {
	Problem problem.Problem
	Phase   string
}

func (e *RecurrenceError) Error() string {
	return fmt.Sprintf("recurring problem during %s: %s", e.Phase, e.Problem)
}

// FixLimitExceededError reports that the loop exhausted its fix-retry
// budget without converging.
type FixLimitExceededError struct {
	Limit int
}

func (e *FixLimitExceededError) Error() string {
	return fmt.Sprintf("exceeded fix limit of %d", e.Limit)
}

// UnfixableError reports that no fixer in the supplied list claimed a
// recognised Problem.
type UnfixableError struct {
	Problem problem.Problem
}

func (e *UnfixableError) Error() string {
	return fmt.Sprintf("no fixer could resolve: %s", e.Problem)
}

// ActionFailedError reports that a build action exited non-zero and the
// analyser could not classify the failure (problem.Unknown), or scope is
// otherwise not retryable (e.g. DistNoTarball). It carries the original
// exit code and captured log so the CLI can render it verbatim.
type ActionFailedError struct {
	BuildSystem string
	Action      Action
	ExitCode    int
	Lines       []string
	Cause       error
}

func (e *ActionFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s failed: %v", e.BuildSystem, e.Action, e.Cause)
	}
	return fmt.Sprintf("%s %s failed with exit code %d", e.BuildSystem, e.Action, e.ExitCode)
}

func (e *ActionFailedError) Unwrap() error { return e.Cause }

// visitKey identifies a (Problem, phase) pair for the seen-set.
type visitKey struct {
	kind  problem.Kind
	key   string
	phase string
}

// Options configures a single top-level Run call. Limit is used exactly as
// given, including zero ("exactly one attempt; no fixers are invoked",
// §8); callers that want the conventional default pass DefaultLimit
// explicitly, typically as a CLI flag default rather than a Run default.
type Options struct {
	Session   session.Session
	Fixers    []fixer.Fixer
	Analyzer  analyzer.Analyzer
	Limit     int
	TargetDir string
	Tee       io.Writer
}

// Result reports, for a successful Dist action, the artifact paths
// produced by each BuildSystem invoked (in order); it is empty/unused for
// the other actions.
type Result struct {
	Artifacts []string
}

// Run invokes action across systems in order inside opts.Session,
// retrying through opts.Fixers on failure as described in §4.I.
func Run(ctx context.Context, action Action, systems []buildsystem.BuildSystem, opts Options) (Result, error) {
	if len(systems) == 0 {
		return Result{}, NoBuildToolsFoundError{}
	}
	if opts.Analyzer == nil {
		opts.Analyzer = analyzer.Fallback{}
	}
	limit := opts.Limit
	if limit < 0 {
		limit = 0
	}

	seen := map[visitKey]bool{}
	runs := 0
	var result Result

	for _, sys := range systems {
		for {
			res, artifact, distErr, err := invoke(ctx, opts.Session, action, sys, opts.TargetDir, opts.Tee)
			if err != nil {
				return result, err
			}
			if distErr != nil {
				return result, &ActionFailedError{BuildSystem: sys.Name(), Action: action, ExitCode: res.ExitCode, Lines: res.Lines, Cause: distErr}
			}
			if res.Succeeded() {
				if action == ActionDist {
					result.Artifacts = append(result.Artifacts, artifact)
				}
				break
			}

			p, aerr := opts.Analyzer.Analyze(res.Lines, string(action))
			if aerr != nil {
				return result, aerr
			}
			if _, ok := p.(problem.Unknown); ok {
				return result, &ActionFailedError{BuildSystem: sys.Name(), Action: action, ExitCode: res.ExitCode, Lines: res.Lines}
			}

			key := visitKey{kind: p.Kind(), key: p.Key(), phase: string(action)}
			if seen[key] {
				return result, &RecurrenceError{Problem: p, Phase: string(action)}
			}
			seen[key] = true

			if runs >= limit {
				return result, &FixLimitExceededError{Limit: limit}
			}

			claimed := false
			for _, fx := range opts.Fixers {
				if !fx.CanFix(p) {
					continue
				}
				outcome, _ := fx.Fix(ctx, p, string(action))
				if outcome == fixer.Claimed {
					claimed = true
					runs++
					break
				}
			}
			if !claimed {
				return result, &UnfixableError{Problem: p}
			}
			// Same buildsystem and action, per §4.I step 5: loop back
			// and retry the invocation above.
		}
	}
	return result, nil
}

// invoke dispatches a single action against a single BuildSystem, folding
// Dist's extra artifact-path/DistNoTarballError shape into the others'.
func invoke(ctx context.Context, sess session.Session, action Action, sys buildsystem.BuildSystem, targetDir string, tee io.Writer) (res buildsystem.ActionResult, artifact string, distErr error, err error) {
	switch action {
	case ActionClean:
		res, err = sys.Clean(ctx, sess, tee)
	case ActionBuild:
		res, err = sys.Build(ctx, sess, tee)
	case ActionInstall:
		res, err = sys.Install(ctx, sess, "", tee)
	case ActionTest:
		res, err = sys.Test(ctx, sess, tee)
	case ActionDist:
		var derr error
		artifact, res, derr = sys.Dist(ctx, sess, targetDir, tee)
		if derr != nil {
			if _, ok := derr.(*buildsystem.DistNoTarballError); ok {
				distErr = derr
			} else {
				err = derr
			}
		}
	default:
		err = fmt.Errorf("unknown build action %q", action)
	}
	return res, artifact, distErr, err
}
