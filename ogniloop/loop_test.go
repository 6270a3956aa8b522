package ogniloop

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/jelmer/ognibuild/buildsystem"
	"github.com/jelmer/ognibuild/fixer"
	"github.com/jelmer/ognibuild/problem"
	"github.com/jelmer/ognibuild/session"
)

// fakeBuildSystem fails its action the first failFor times, then
// succeeds, letting scenario tests drive the loop through specific fixer
// interactions without shelling out to real tools.
type fakeBuildSystem struct {
	name     string
	attempts int
	failFor  int
	lines    []string
	distPath string
	distErr  error
}

var _ buildsystem.BuildSystem = (*fakeBuildSystem)(nil)

func (f *fakeBuildSystem) Name() string    { return f.name }
func (f *fakeBuildSystem) Subpath() string { return "" }

func (f *fakeBuildSystem) result() buildsystem.ActionResult {
	f.attempts++
	if f.attempts <= f.failFor {
		return buildsystem.ActionResult{ExitCode: 1, Lines: f.lines}
	}
	return buildsystem.ActionResult{ExitCode: 0}
}

func (f *fakeBuildSystem) Clean(ctx context.Context, sess session.Session, tee io.Writer) (buildsystem.ActionResult, error) {
	return f.result(), nil
}
func (f *fakeBuildSystem) Build(ctx context.Context, sess session.Session, tee io.Writer) (buildsystem.ActionResult, error) {
	return f.result(), nil
}
func (f *fakeBuildSystem) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (buildsystem.ActionResult, error) {
	return f.result(), nil
}
func (f *fakeBuildSystem) Test(ctx context.Context, sess session.Session, tee io.Writer) (buildsystem.ActionResult, error) {
	return f.result(), nil
}
func (f *fakeBuildSystem) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, buildsystem.ActionResult, error) {
	res := f.result()
	if res.Succeeded() {
		if f.distErr != nil {
			return "", res, f.distErr
		}
		return f.distPath, res, nil
	}
	return "", res, nil
}
func (f *fakeBuildSystem) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]buildsystem.Dependency, error) {
	return nil, buildsystem.ErrNotImplemented
}
func (f *fakeBuildSystem) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]buildsystem.Output, error) {
	return nil, buildsystem.ErrNotImplemented
}

// fakeAnalyzer returns problems from a fixed queue, one per call, so tests
// can script a specific sequence of failures.
type fakeAnalyzer struct {
	problems []problem.Problem
	calls    int
}

func (a *fakeAnalyzer) Analyze(lines []string, phase string) (problem.Problem, error) {
	if a.calls >= len(a.problems) {
		return problem.Unknown{Description: "ran out of scripted problems"}, nil
	}
	p := a.problems[a.calls]
	a.calls++
	return p, nil
}

// claimingFixer claims every problem it's handed, unconditionally.
type claimingFixer struct{ claims int }

func (f *claimingFixer) Name() string                     { return "claiming" }
func (f *claimingFixer) CanFix(p problem.Problem) bool     { return true }
func (f *claimingFixer) Fix(ctx context.Context, p problem.Problem, phase string) (fixer.Outcome, error) {
	f.claims++
	return fixer.Claimed, nil
}

func newPlainSession(t *testing.T) session.Session {
	t.Helper()
	s := session.NewPlainSession(t.TempDir())
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Scenario 1: Python MissingPythonModule -> installer fixer claims -> retry succeeds.
func TestScenarioMissingPythonModuleResolvedByFixer(t *testing.T) {
	sys := &fakeBuildSystem{name: "setup.py", failFor: 1}
	an := &fakeAnalyzer{problems: []problem.Problem{
		problem.MissingPythonModule{Module: "numpy"},
	}}
	fx := &claimingFixer{}

	result, err := Run(context.Background(), ActionBuild, []buildsystem.BuildSystem{sys}, Options{
		Session:  newPlainSession(t),
		Fixers:   []fixer.Fixer{fx},
		Analyzer: an,
		Limit:    DefaultLimit,
	})
	if err != nil {
		t.Fatalf("expected success after one retry, got %v", err)
	}
	if fx.claims != 1 {
		t.Fatalf("expected exactly one claim, got %d", fx.claims)
	}
	if len(result.Artifacts) != 0 {
		t.Fatalf("build action should not report artifacts, got %+v", result.Artifacts)
	}
}

// Scenario 3: a fixer that claims but never changes the underlying state
// produces the same Problem again, tripping recurrence detection.
func TestScenarioRecurringProblemAborts(t *testing.T) {
	sys := &fakeBuildSystem{name: "make", failFor: 1000}
	an := &fakeAnalyzer{problems: []problem.Problem{
		problem.MissingCommand{Command: "gpg"},
		problem.MissingCommand{Command: "gpg"},
	}}
	fx := &claimingFixer{}

	_, err := Run(context.Background(), ActionBuild, []buildsystem.BuildSystem{sys}, Options{
		Session:  newPlainSession(t),
		Fixers:   []fixer.Fixer{fx},
		Analyzer: an,
		Limit:    DefaultLimit,
	})
	rec, ok := err.(*RecurrenceError)
	if !ok {
		t.Fatalf("expected *RecurrenceError, got %T: %v", err, err)
	}
	if rec.Problem.Key() != "gpg" {
		t.Fatalf("expected recurrence on gpg, got %v", rec.Problem)
	}
}

// Scenario 4: no build tools found terminates before any session command.
func TestScenarioNoBuildToolsFound(t *testing.T) {
	_, err := Run(context.Background(), ActionBuild, nil, Options{Session: newPlainSession(t)})
	if _, ok := err.(NoBuildToolsFoundError); !ok {
		t.Fatalf("expected NoBuildToolsFoundError, got %T: %v", err, err)
	}
}

// Scenario 5: a fixer list that always claims with a new Problem each time
// exhausts the fix limit.
func TestScenarioFixLimitExceeded(t *testing.T) {
	sys := &fakeBuildSystem{name: "make", failFor: 1000}
	var problems []problem.Problem
	for i := 0; i < 10; i++ {
		problems = append(problems, problem.MissingCommand{Command: fmt.Sprintf("cmd%d", i)})
	}
	an := &fakeAnalyzer{problems: problems}
	fx := &claimingFixer{}

	_, err := Run(context.Background(), ActionBuild, []buildsystem.BuildSystem{sys}, Options{
		Session:  newPlainSession(t),
		Fixers:   []fixer.Fixer{fx},
		Analyzer: an,
		Limit:    5,
	})
	limitErr, ok := err.(*FixLimitExceededError)
	if !ok {
		t.Fatalf("expected *FixLimitExceededError, got %T: %v", err, err)
	}
	if limitErr.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", limitErr.Limit)
	}
	if fx.claims != 5 {
		t.Fatalf("expected exactly 5 claims before the limit tripped, got %d", fx.claims)
	}
}

// Scenario 6: dist with no artifact produces a non-retryable failure.
func TestScenarioDistWithNoArtifact(t *testing.T) {
	sys := &fakeBuildSystem{name: "make", distErr: &buildsystem.DistNoTarballError{BuildSystem: "make"}}

	_, err := Run(context.Background(), ActionDist, []buildsystem.BuildSystem{sys}, Options{
		Session: newPlainSession(t),
		Limit:   DefaultLimit,
	})
	failed, ok := err.(*ActionFailedError)
	if !ok {
		t.Fatalf("expected *ActionFailedError, got %T: %v", err, err)
	}
	if _, ok := failed.Cause.(*buildsystem.DistNoTarballError); !ok {
		t.Fatalf("expected cause to be *buildsystem.DistNoTarballError, got %T", failed.Cause)
	}
}

// Empty fixer list + failing build is Unfixable on the first failure.
func TestUnfixableWithNoFixers(t *testing.T) {
	sys := &fakeBuildSystem{name: "make", failFor: 1000}
	an := &fakeAnalyzer{problems: []problem.Problem{problem.MissingCommand{Command: "gpg"}}}

	_, err := Run(context.Background(), ActionBuild, []buildsystem.BuildSystem{sys}, Options{
		Session:  newPlainSession(t),
		Analyzer: an,
		Limit:    DefaultLimit,
	})
	if _, ok := err.(*UnfixableError); !ok {
		t.Fatalf("expected *UnfixableError, got %T: %v", err, err)
	}
}

// Limit = 0 performs exactly one attempt; no fixers are invoked.
func TestLimitZeroMeansExactlyOneAttempt(t *testing.T) {
	sys := &fakeBuildSystem{name: "make", failFor: 1000}
	an := &fakeAnalyzer{problems: []problem.Problem{problem.MissingCommand{Command: "gpg"}}}
	fx := &claimingFixer{}

	_, err := Run(context.Background(), ActionBuild, []buildsystem.BuildSystem{sys}, Options{
		Session:  newPlainSession(t),
		Fixers:   []fixer.Fixer{fx},
		Analyzer: an,
		Limit:    0,
	})
	if _, ok := err.(*FixLimitExceededError); !ok {
		t.Fatalf("expected *FixLimitExceededError, got %T: %v", err, err)
	}
	if fx.claims != 0 {
		t.Fatalf("expected no fixer to be invoked, got %d claims", fx.claims)
	}
	if sys.attempts != 1 {
		t.Fatalf("expected exactly one attempt, got %d", sys.attempts)
	}
}

// A build that exits non-zero but the analyser cannot classify terminates
// immediately with the original failure, not Unfixable.
func TestUnknownProblemTerminatesWithOriginalFailure(t *testing.T) {
	sys := &fakeBuildSystem{name: "make", failFor: 1000, lines: []string{"something went wrong"}}
	fx := &claimingFixer{}

	_, err := Run(context.Background(), ActionBuild, []buildsystem.BuildSystem{sys}, Options{
		Session:  newPlainSession(t),
		Fixers:   []fixer.Fixer{fx},
		Analyzer: analyzerThatAlwaysReturnsUnknown{},
		Limit:    DefaultLimit,
	})
	failed, ok := err.(*ActionFailedError)
	if !ok {
		t.Fatalf("expected *ActionFailedError, got %T: %v", err, err)
	}
	if failed.ExitCode != 1 {
		t.Fatalf("expected the original exit code to be preserved, got %d", failed.ExitCode)
	}
	if fx.claims != 0 {
		t.Fatalf("expected no fixer to be consulted for an Unknown problem, got %d claims", fx.claims)
	}
}

type analyzerThatAlwaysReturnsUnknown struct{}

func (analyzerThatAlwaysReturnsUnknown) Analyze(lines []string, phase string) (problem.Problem, error) {
	return problem.Unknown{Description: "unclassifiable"}, nil
}
