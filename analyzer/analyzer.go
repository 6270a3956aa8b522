// Package analyzer defines the boundary to the external log-analysis
// collaborator (§1's "out of scope" external analyser, §4.I step 3): it
// turns the captured lines of a failed build action into a problem.Problem.
// Modeled on the pluggable-backend-with-fallback shape of remote.go's
// deduceRemoteRepo, which tries a series of increasingly generic matchers
// before giving up.
package analyzer

import (
	"github.com/jelmer/ognibuild/problem"
)

// Analyzer turns a failed action's captured log into a Problem. It must
// never return an error for "could not classify": that case is reported as
// problem.Unknown so the adaptive loop can terminate cleanly (§4.I step 3).
// An error return means the analyser itself could not be reached or its
// response could not be parsed.
type Analyzer interface {
	Analyze(lines []string, phase string) (problem.Problem, error)
}

// Fallback is the in-process stub used when no analyser endpoint is
// configured: every log is reported as problem.Unknown, which the
// adaptive loop treats as unfixable.
type Fallback struct{}

var _ Analyzer = Fallback{}

func (Fallback) Analyze(lines []string, phase string) (problem.Problem, error) {
	return problem.Unknown{Description: summarize(lines)}, nil
}

// summarize takes the last non-empty line of a log as a one-line
// description, the same heuristic dep's feedback hints use when rendering
// a terse failure summary.
func summarize(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i] != "" {
			return lines[i]
		}
	}
	return "build action failed with no output"
}
