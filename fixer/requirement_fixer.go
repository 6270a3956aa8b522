package fixer

import (
	"context"

	"github.com/jelmer/ognibuild/installer"
	"github.com/jelmer/ognibuild/problem"
)

// RequirementFixer is the general-purpose fixer named in §4.G: it converts
// a Problem to a requirement.Requirement via the process-wide registry in
// package problem, then delegates satisfying it to an Installer. Most
// MissingCommand/MissingPythonModule/MissingPerlModule/MissingHeader/
// MissingPkgConfig/MissingAutoconfMacro problems are handled this way.
type RequirementFixer struct {
	Installer installer.Installer
	Scope     installer.Scope
}

var _ Fixer = (*RequirementFixer)(nil)

func (f *RequirementFixer) Name() string { return "requirement" }

func (f *RequirementFixer) CanFix(p problem.Problem) bool {
	_, ok := problem.ToRequirement(p)
	return ok
}

func (f *RequirementFixer) Fix(ctx context.Context, p problem.Problem, phase string) (Outcome, error) {
	req, ok := problem.ToRequirement(p)
	if !ok {
		return NotClaimed, nil
	}
	err := f.Installer.Install(ctx, req, f.Scope)
	if err == nil {
		return Claimed, nil
	}
	switch err.(type) {
	case *installer.ScopeUnsupportedError, *installer.NetworkRequiredError, *installer.PackageUnknownError:
		// The installer recognised the requirement but cannot act on
		// it under current constraints; let other fixers have a turn
		// rather than treating this as a hard failure.
		return NotClaimed, nil
	default:
		return Failed, err
	}
}
