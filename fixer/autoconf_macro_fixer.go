package fixer

import (
	"context"

	"github.com/jelmer/ognibuild/installer"
	"github.com/jelmer/ognibuild/problem"
	"github.com/jelmer/ognibuild/session"
)

// AutoconfMacroFixer claims MissingAutoconfMacro problems. Installing the
// package that provides the macro is not enough on its own: the project's
// configure script was generated before the macro existed on the system,
// so it must be regenerated. This fixer installs, then re-runs autoreconf,
// and only reports Claimed if both steps succeed.
type AutoconfMacroFixer struct {
	Installer installer.Installer
	Scope     installer.Scope
	Session   session.Session
	Subpath   string
}

var _ Fixer = (*AutoconfMacroFixer)(nil)

func (f *AutoconfMacroFixer) Name() string { return "autoconf-macro" }

func (f *AutoconfMacroFixer) CanFix(p problem.Problem) bool {
	_, ok := p.(problem.MissingAutoconfMacro)
	return ok
}

func (f *AutoconfMacroFixer) Fix(ctx context.Context, p problem.Problem, phase string) (Outcome, error) {
	macro, ok := p.(problem.MissingAutoconfMacro)
	if !ok {
		return NotClaimed, nil
	}
	req, ok := problem.ToRequirement(macro)
	if !ok {
		return NotClaimed, nil
	}
	if err := f.Installer.Install(ctx, req, f.Scope); err != nil {
		switch err.(type) {
		case *installer.ScopeUnsupportedError, *installer.NetworkRequiredError, *installer.PackageUnknownError:
			return NotClaimed, nil
		default:
			return Failed, err
		}
	}
	return runAutoreconf(ctx, f.Session, f.Subpath)
}
