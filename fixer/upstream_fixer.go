package fixer

import (
	"context"
	"os"
	"strings"

	"github.com/jelmer/ognibuild/internal/txnfs"
	"github.com/jelmer/ognibuild/problem"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// UpstreamFixer claims problems that have no Problem→Requirement
// conversion at all (§4.B's note that UnsupportedPythonVersion,
// DisappearedSymbols and similar have none): rather than installing
// anything, it edits the project's own declared constraints directly.
// Today it handles only UnsupportedPythonVersion, by widening a
// pyproject.toml's `project.requires-python` to admit the interpreter
// that is actually running.
type UpstreamFixer struct {
	PyprojectPath string
}

var _ Fixer = (*UpstreamFixer)(nil)

func (f *UpstreamFixer) Name() string { return "upstream" }

func (f *UpstreamFixer) CanFix(p problem.Problem) bool {
	_, ok := p.(problem.UnsupportedPythonVersion)
	return ok && f.PyprojectPath != ""
}

func (f *UpstreamFixer) Fix(ctx context.Context, p problem.Problem, phase string) (Outcome, error) {
	upv, ok := p.(problem.UnsupportedPythonVersion)
	if !ok {
		return NotClaimed, nil
	}
	if f.PyprojectPath == "" {
		return NotClaimed, nil
	}

	data, err := os.ReadFile(f.PyprojectPath)
	if err != nil {
		return NotClaimed, nil
	}
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return Failed, errors.Wrapf(err, "parsing %s", f.PyprojectPath)
	}
	project, ok := tree.Get("project").(*toml.Tree)
	if !ok {
		return NotClaimed, nil
	}
	project.Set("requires-python", ">="+strings.TrimSuffix(upv.Running, "."))

	out, err := tree.Marshal()
	if err != nil {
		return Failed, errors.Wrap(err, "serialising pyproject.toml")
	}
	if err := txnfs.WriteFile(f.PyprojectPath, out, 0o644); err != nil {
		return Failed, errors.Wrapf(err, "writing %s", f.PyprojectPath)
	}
	return Claimed, nil
}
