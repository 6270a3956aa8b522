// Package resolver translates a requirement.Requirement into an
// installable package reference and the concrete command that would
// install it, per §4.D of the core spec.
package resolver

import (
	"fmt"

	"github.com/jelmer/ognibuild/requirement"
)

// Package is an installable package reference as identified by a Resolver.
// It is deliberately thin: a Resolver only identifies what to install, not
// how to mutate a session to do so (that's installer.Installer's job).
type Package struct {
	// Name is the package name in the resolver's own ecosystem (e.g. the
	// apt package name, the PyPI project name).
	Name    string
	Version string // empty if unconstrained
}

func (p Package) String() string {
	if p.Version == "" {
		return p.Name
	}
	return fmt.Sprintf("%s@%s", p.Name, p.Version)
}

// Resolver answers two questions about a Requirement: can it be provided,
// and what command would install it. Resolvers are stateless per call; any
// caching is encapsulated behind the implementation.
type Resolver interface {
	// Name identifies the resolver for diagnostics (e.g. "apt", "pypi").
	Name() string
	// Resolve returns the package that would satisfy req, or ok=false if
	// this resolver does not cover req's family.
	Resolve(req requirement.Requirement) (pkg Package, ok bool)
	// InstallCmd returns the argv that would install req, or ok=false.
	InstallCmd(req requirement.Requirement) (argv []string, ok bool)
	// Explain renders a human-readable description of how reqs would be
	// satisfied by this resolver.
	Explain(reqs []requirement.Requirement) string
}

// Composite is an ordered list of Resolvers; the first to resolve a
// Requirement wins. It implements Resolver itself, so composites nest.
type Composite []Resolver

var _ Resolver = Composite(nil)

func (c Composite) Name() string { return "composite" }

func (c Composite) Resolve(req requirement.Requirement) (Package, bool) {
	for _, r := range c {
		if pkg, ok := r.Resolve(req); ok {
			return pkg, true
		}
	}
	return Package{}, false
}

func (c Composite) InstallCmd(req requirement.Requirement) ([]string, bool) {
	for _, r := range c {
		if argv, ok := r.InstallCmd(req); ok {
			return argv, true
		}
	}
	return nil, false
}

func (c Composite) Explain(reqs []requirement.Requirement) string {
	out := "no resolver in the composite could resolve: "
	for _, req := range reqs {
		for _, r := range c {
			if _, ok := r.Resolve(req); ok {
				out = r.Name() + ": " + r.Explain([]requirement.Requirement{req})
				break
			}
		}
	}
	return out
}

// Native returns the resolver that forwards a Requirement to whichever
// ecosystem owns its family, by consulting resolvers in the supplied
// Composite. It exists as a named entry point so callers can request
// "native" resolution explicitly (the CLI's --resolver native flag) rather
// than always going through apt.
func Native(delegate Composite) Resolver {
	return nativeResolver{delegate: delegate}
}

type nativeResolver struct {
	delegate Composite
}

func (n nativeResolver) Name() string { return "native" }

func (n nativeResolver) Resolve(req requirement.Requirement) (Package, bool) {
	return n.delegate.Resolve(req)
}

func (n nativeResolver) InstallCmd(req requirement.Requirement) ([]string, bool) {
	return n.delegate.InstallCmd(req)
}

func (n nativeResolver) Explain(reqs []requirement.Requirement) string {
	return n.delegate.Explain(reqs)
}
