// Package buildsystem provides the per-ecosystem adapter contract (§4.F of
// the core spec): clean/build/install/test/dist plus declared-dependency
// and declared-output enumeration, bound to a subpath of a working tree.
package buildsystem

import (
	"context"
	"errors"
	"io"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/session"
)

// DependencyCategory classifies a declared dependency by how it is used.
type DependencyCategory string

const (
	CategoryBuild   DependencyCategory = "build"
	CategoryRuntime DependencyCategory = "runtime"
	CategoryTest    DependencyCategory = "test"
	CategoryDev     DependencyCategory = "dev"
)

// Dependency pairs a declared Requirement with the category it was
// declared under.
type Dependency struct {
	Category DependencyCategory
	Req      requirement.Requirement
}

// Output is a single declared build output (a binary, a library, a wheel).
type Output struct {
	Name string
	Path string
}

// DistNoTarballError reports that a Dist invocation produced no output
// artifact (§7's DistNoTarball).
type DistNoTarballError struct {
	BuildSystem string
}

func (e *DistNoTarballError) Error() string {
	return "dist produced no tarball for " + e.BuildSystem
}

// ErrNotImplemented is returned by GetDeclaredDependencies or
// GetDeclaredOutputs when a BuildSystem cannot enumerate them; callers must
// tolerate this rather than treating it as fatal (§4.F).
var ErrNotImplemented = errors.New("not implemented by this build system")

// ActionResult is what invoking a build action against a BuildSystem
// yields: the combined captured log (for the adaptive loop to hand to the
// analyser on failure) and the exit status.
type ActionResult struct {
	ExitCode int
	Lines    []string
}

// Succeeded reports whether the action completed with exit code 0.
func (r ActionResult) Succeeded() bool { return r.ExitCode == 0 }

// BuildSystem is a per-ecosystem adapter bound to a subpath of a working
// tree. Every operation that invokes an external tool does so via the
// session's RunWithTee, so log capture is invariant across ecosystems.
// Mutation of the adapter's own parsed manifest state happens only through
// these operations, never by code elsewhere reaching into the tree.
type BuildSystem interface {
	// Name identifies the ecosystem, e.g. "cargo", "cmake", "setup.py".
	Name() string
	// Subpath is the path, relative to the working tree root, this
	// instance is bound to.
	Subpath() string

	Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error)
	Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error)
	Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error)
	Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error)
	Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (artifactPath string, result ActionResult, err error)

	// GetDeclaredDependencies enumerates the dependencies the manifest
	// declares, or returns ErrNotImplemented.
	GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error)
	// GetDeclaredOutputs enumerates the outputs the manifest declares, or
	// returns ErrNotImplemented.
	GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error)
}
