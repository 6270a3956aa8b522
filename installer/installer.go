// Package installer materialises a resolved requirement.Requirement under
// a given Scope by mutating a session.Session, per §4.E of the core spec.
package installer

import (
	"context"
	"fmt"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/resolver"
	"github.com/jelmer/ognibuild/session"
)

// ScopeUnsupportedError reports that an Installer was asked for a Scope it
// cannot provide.
type ScopeUnsupportedError struct {
	Installer string
	Scope     Scope
}

func (e *ScopeUnsupportedError) Error() string {
	return fmt.Sprintf("%s installer does not support scope %q", e.Installer, e.Scope)
}

// NetworkRequiredError reports that installation requires network access
// that has been forbidden (OGNIBUILD_DISABLE_NET).
type NetworkRequiredError struct {
	Requirement requirement.Requirement
}

func (e *NetworkRequiredError) Error() string {
	return fmt.Sprintf("installing %s requires network access, which is disabled", e.Requirement)
}

// PackageUnknownError reports that the paired Resolver could not resolve
// the Requirement at all.
type PackageUnknownError struct {
	Requirement requirement.Requirement
}

func (e *PackageUnknownError) Error() string {
	return fmt.Sprintf("no known package satisfies %s", e.Requirement)
}

// ExecutionFailureError reports that the install command ran but failed.
type ExecutionFailureError struct {
	Argv     []string
	ExitCode int
	Lines    []string
}

func (e *ExecutionFailureError) Error() string {
	return fmt.Sprintf("install command %v failed with exit code %d", e.Argv, e.ExitCode)
}

// Installer satisfies a Requirement under a Scope.
type Installer interface {
	// Explain renders a human-readable description of what installing
	// reqs under scope would do.
	Explain(reqs []requirement.Requirement, scope Scope) string
	// Install mutates the session to satisfy req under scope. Returns
	// nil on success (including "already satisfied"), or one of
	// ScopeUnsupportedError, NetworkRequiredError, PackageUnknownError,
	// ExecutionFailureError.
	Install(ctx context.Context, req requirement.Requirement, scope Scope) error
}

// SessionInstaller pairs a Resolver with a Session: the typical Installer
// shape named in §4.E. AllowNetwork gates whether Install will actually
// invoke a resolved command, honoring OGNIBUILD_DISABLE_NET at the layer
// where the installer, not the resolver, performs the mutation.
type SessionInstaller struct {
	Resolver      resolver.Resolver
	Session       session.Session
	Scopes        map[Scope]bool // scopes this installer supports; nil means ScopeSystem only
	AllowNetwork  bool
	AlreadyPresent func(req requirement.Requirement) bool // optional idempotence check
}

var _ Installer = (*SessionInstaller)(nil)

func (si *SessionInstaller) supports(scope Scope) bool {
	if si.Scopes == nil {
		return scope == ScopeSystem
	}
	return si.Scopes[scope]
}

func (si *SessionInstaller) Explain(reqs []requirement.Requirement, scope Scope) string {
	return si.Resolver.Explain(reqs)
}

func (si *SessionInstaller) Install(ctx context.Context, req requirement.Requirement, scope Scope) error {
	if !si.supports(scope) {
		return &ScopeUnsupportedError{Installer: si.Resolver.Name(), Scope: scope}
	}
	if si.AlreadyPresent != nil && si.AlreadyPresent(req) {
		return nil
	}
	argv, ok := si.Resolver.InstallCmd(req)
	if !ok {
		return &PackageUnknownError{Requirement: req}
	}
	if !si.AllowNetwork {
		return &NetworkRequiredError{Requirement: req}
	}
	res, err := si.Session.RunWithTee(ctx, argv, session.RunOpts{}, nil)
	if err != nil {
		return &ExecutionFailureError{Argv: argv, Lines: res.Lines}
	}
	if res.ExitCode != 0 {
		return &ExecutionFailureError{Argv: argv, ExitCode: res.ExitCode, Lines: res.Lines}
	}
	return nil
}
