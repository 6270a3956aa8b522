// Package requirement describes typed, ecosystem-specific environmental
// constraints (a missing Perl module, a missing binary, a missing native
// library, ...) without carrying any knowledge of how to satisfy them.
//
// A Requirement is a tagged variant: a Family names the ecosystem and a
// concrete struct per family carries the family-specific fields. The set of
// families is closed by the unexported _sealed method, following the same
// sealed interface trick gps uses for its Constraint type: callers outside
// this package can construct the known variants via the New* constructors,
// but cannot add new ones.
package requirement

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// Family names the ecosystem a Requirement belongs to.
type Family string

const (
	FamilyPythonPackage   Family = "python-package"
	FamilyPerlModule      Family = "perl-module"
	FamilyBinary          Family = "binary"
	FamilyHeader          Family = "header"
	FamilyPkgConfig       Family = "pkg-config"
	FamilyAptPackage      Family = "apt-package"
	FamilyNodePackage     Family = "node-package"
	FamilyRubyGem         Family = "ruby-gem"
	FamilyHaskellPackage  Family = "haskell-package"
	FamilyRPackage        Family = "r-package"
	FamilyGoPackage       Family = "go-package"
	FamilyRustCrate       Family = "rust-crate"
	FamilyLibrary         Family = "library"
	FamilyPHPExtension    Family = "php-extension"
	FamilyAutoconfMacro   Family = "autoconf-macro"
	FamilyVague           Family = "vague"
)

// Requirement is a tagged variant describing a single environmental
// constraint. It never embeds installation knowledge: only enough to
// identify what is missing.
type Requirement interface {
	fmt.Stringer
	// Family returns the ecosystem tag of the requirement.
	Family() Family
	// Key returns a canonical ecosystem key suitable for equality and
	// recurrence-detection purposes (e.g. a python package name lowercased
	// with underscores normalised to hyphens).
	Key() string
	_sealed()
}

// Equal reports whether two requirements are structurally identical.
func Equal(a, b Requirement) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Family() == b.Family() && a.Key() == b.Key() && a.String() == b.String()
}

// canonicalize derives the ecosystem key from a raw package name, per
// §4.A: lowercase, with underscores normalised to hyphens.
func canonicalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}

// PythonPackage is the FamilyPythonPackage variant.
type PythonPackage struct {
	Package    string
	MinVersion string // empty if unconstrained
}

func (PythonPackage) _sealed()          {}
func (r PythonPackage) Family() Family  { return FamilyPythonPackage }
func (r PythonPackage) Key() string     { return canonicalize(r.Package) }
func (r PythonPackage) String() string {
	if r.MinVersion == "" {
		return fmt.Sprintf("python package %s", r.Package)
	}
	return fmt.Sprintf("python package %s (>= %s)", r.Package, r.MinVersion)
}

// NewPythonPackage constructs a PythonPackage requirement, validating the
// version constraint if one is given.
func NewPythonPackage(pkg, minVersion string) (Requirement, error) {
	if pkg == "" {
		return nil, errors.New("python package requirement needs a name")
	}
	if minVersion != "" {
		if _, err := semver.NewVersion(minVersion); err != nil {
			return nil, errors.Wrapf(err, "malformed minimum version %q", minVersion)
		}
	}
	return PythonPackage{Package: pkg, MinVersion: minVersion}, nil
}

// PerlModule is the FamilyPerlModule variant.
type PerlModule struct {
	Module  string
	Version string // preserved verbatim; CPAN version grammar isn't semver
}

func (PerlModule) _sealed()         {}
func (r PerlModule) Family() Family { return FamilyPerlModule }
func (r PerlModule) Key() string    { return canonicalize(r.Module) }
func (r PerlModule) String() string {
	if r.Version == "" {
		return fmt.Sprintf("perl module %s", r.Module)
	}
	return fmt.Sprintf("perl module %s (%s)", r.Module, r.Version)
}

func NewPerlModule(module, version string) (Requirement, error) {
	if module == "" {
		return nil, errors.New("perl module requirement needs a name")
	}
	return PerlModule{Module: module, Version: version}, nil
}

// Binary is the FamilyBinary variant: a named executable expected on PATH.
type Binary struct {
	Name string
}

func (Binary) _sealed()         {}
func (r Binary) Family() Family { return FamilyBinary }
func (r Binary) Key() string    { return r.Name }
func (r Binary) String() string { return fmt.Sprintf("binary %s", r.Name) }

func NewBinary(name string) (Requirement, error) {
	if name == "" {
		return nil, errors.New("binary requirement needs a name")
	}
	return Binary{Name: name}, nil
}

// Header is the FamilyHeader variant: a C/C++ header file.
type Header struct {
	Name string // e.g. "zlib.h"
}

func (Header) _sealed()         {}
func (r Header) Family() Family { return FamilyHeader }
func (r Header) Key() string    { return r.Name }
func (r Header) String() string { return fmt.Sprintf("header %s", r.Name) }

func NewHeader(name string) (Requirement, error) {
	if name == "" {
		return nil, errors.New("header requirement needs a name")
	}
	return Header{Name: name}, nil
}

// PkgConfig is the FamilyPkgConfig variant: a pkg-config module.
type PkgConfig struct {
	Module     string
	MinVersion string
}

func (PkgConfig) _sealed()         {}
func (r PkgConfig) Family() Family { return FamilyPkgConfig }
func (r PkgConfig) Key() string    { return r.Module }
func (r PkgConfig) String() string {
	if r.MinVersion == "" {
		return fmt.Sprintf("pkg-config module %s", r.Module)
	}
	return fmt.Sprintf("pkg-config module %s (>= %s)", r.Module, r.MinVersion)
}

func NewPkgConfig(module, minVersion string) (Requirement, error) {
	if module == "" {
		return nil, errors.New("pkg-config requirement needs a module name")
	}
	return PkgConfig{Module: module, MinVersion: minVersion}, nil
}

// AptPackage is the FamilyAptPackage variant: a concrete Debian package name.
type AptPackage struct {
	Package string
}

func (AptPackage) _sealed()         {}
func (r AptPackage) Family() Family { return FamilyAptPackage }
func (r AptPackage) Key() string    { return r.Package }
func (r AptPackage) String() string { return fmt.Sprintf("apt package %s", r.Package) }

func NewAptPackage(pkg string) (Requirement, error) {
	if pkg == "" {
		return nil, errors.New("apt package requirement needs a name")
	}
	return AptPackage{Package: pkg}, nil
}

// NodePackage is the FamilyNodePackage variant.
type NodePackage struct {
	Package    string
	MinVersion string
}

func (NodePackage) _sealed()         {}
func (r NodePackage) Family() Family { return FamilyNodePackage }
func (r NodePackage) Key() string    { return canonicalize(r.Package) }
func (r NodePackage) String() string {
	if r.MinVersion == "" {
		return fmt.Sprintf("node package %s", r.Package)
	}
	return fmt.Sprintf("node package %s (>= %s)", r.Package, r.MinVersion)
}

func NewNodePackage(pkg, minVersion string) (Requirement, error) {
	if pkg == "" {
		return nil, errors.New("node package requirement needs a name")
	}
	return NodePackage{Package: pkg, MinVersion: minVersion}, nil
}

// RubyGem is the FamilyRubyGem variant.
type RubyGem struct {
	Gem     string
	Version string
}

func (RubyGem) _sealed()         {}
func (r RubyGem) Family() Family { return FamilyRubyGem }
func (r RubyGem) Key() string    { return canonicalize(r.Gem) }
func (r RubyGem) String() string {
	if r.Version == "" {
		return fmt.Sprintf("ruby gem %s", r.Gem)
	}
	return fmt.Sprintf("ruby gem %s (%s)", r.Gem, r.Version)
}

func NewRubyGem(gem, version string) (Requirement, error) {
	if gem == "" {
		return nil, errors.New("ruby gem requirement needs a name")
	}
	return RubyGem{Gem: gem, Version: version}, nil
}

// HaskellPackage is the FamilyHaskellPackage variant.
type HaskellPackage struct {
	Package    string
	MinVersion string
}

func (HaskellPackage) _sealed()         {}
func (r HaskellPackage) Family() Family { return FamilyHaskellPackage }
func (r HaskellPackage) Key() string    { return canonicalize(r.Package) }
func (r HaskellPackage) String() string {
	return fmt.Sprintf("haskell package %s", r.Package)
}

func NewHaskellPackage(pkg, minVersion string) (Requirement, error) {
	if pkg == "" {
		return nil, errors.New("haskell package requirement needs a name")
	}
	return HaskellPackage{Package: pkg, MinVersion: minVersion}, nil
}

// RPackage is the FamilyRPackage variant.
type RPackage struct {
	Package    string
	MinVersion string
}

func (RPackage) _sealed()         {}
func (r RPackage) Family() Family { return FamilyRPackage }
func (r RPackage) Key() string    { return r.Package }
func (r RPackage) String() string { return fmt.Sprintf("R package %s", r.Package) }

func NewRPackage(pkg, minVersion string) (Requirement, error) {
	if pkg == "" {
		return nil, errors.New("R package requirement needs a name")
	}
	return RPackage{Package: pkg, MinVersion: minVersion}, nil
}

// GoPackage is the FamilyGoPackage variant: a Go module import path.
type GoPackage struct {
	ImportPath string
	MinVersion string
}

func (GoPackage) _sealed()         {}
func (r GoPackage) Family() Family { return FamilyGoPackage }
func (r GoPackage) Key() string    { return r.ImportPath }
func (r GoPackage) String() string { return fmt.Sprintf("go package %s", r.ImportPath) }

func NewGoPackage(importPath, minVersion string) (Requirement, error) {
	if importPath == "" {
		return nil, errors.New("go package requirement needs an import path")
	}
	return GoPackage{ImportPath: importPath, MinVersion: minVersion}, nil
}

// RustCrate is the FamilyRustCrate variant.
type RustCrate struct {
	Crate      string
	MinVersion string
	Features   []string
}

func (RustCrate) _sealed()         {}
func (r RustCrate) Family() Family { return FamilyRustCrate }
func (r RustCrate) Key() string    { return r.Crate }
func (r RustCrate) String() string {
	if len(r.Features) == 0 {
		return fmt.Sprintf("rust crate %s", r.Crate)
	}
	return fmt.Sprintf("rust crate %s [%s]", r.Crate, strings.Join(r.Features, ","))
}

func NewRustCrate(crate, minVersion string, features []string) (Requirement, error) {
	if crate == "" {
		return nil, errors.New("rust crate requirement needs a name")
	}
	return RustCrate{Crate: crate, MinVersion: minVersion, Features: features}, nil
}

// Library is the FamilyLibrary variant: a native shared library, identified
// by its linker name (the "z" in "-lz").
type Library struct {
	Name string
}

func (Library) _sealed()         {}
func (r Library) Family() Family { return FamilyLibrary }
func (r Library) Key() string    { return r.Name }
func (r Library) String() string { return fmt.Sprintf("library %s", r.Name) }

func NewLibrary(name string) (Requirement, error) {
	if name == "" {
		return nil, errors.New("library requirement needs a name")
	}
	return Library{Name: name}, nil
}

// PHPExtension is the FamilyPHPExtension variant.
type PHPExtension struct {
	Extension string
}

func (PHPExtension) _sealed()         {}
func (r PHPExtension) Family() Family { return FamilyPHPExtension }
func (r PHPExtension) Key() string    { return r.Extension }
func (r PHPExtension) String() string { return fmt.Sprintf("php extension %s", r.Extension) }

func NewPHPExtension(ext string) (Requirement, error) {
	if ext == "" {
		return nil, errors.New("php extension requirement needs a name")
	}
	return PHPExtension{Extension: ext}, nil
}

// AutoconfMacro is the FamilyAutoconfMacro variant: an `AC_*`-style macro
// expected to be available to `autoreconf`/`aclocal`.
type AutoconfMacro struct {
	Macro string
}

func (AutoconfMacro) _sealed()         {}
func (r AutoconfMacro) Family() Family { return FamilyAutoconfMacro }
func (r AutoconfMacro) Key() string    { return r.Macro }
func (r AutoconfMacro) String() string { return fmt.Sprintf("autoconf macro %s", r.Macro) }

func NewAutoconfMacro(macro string) (Requirement, error) {
	if macro == "" {
		return nil, errors.New("autoconf macro requirement needs a name")
	}
	return AutoconfMacro{Macro: macro}, nil
}

// Vague is the catch-all FamilyVague variant for a requirement description
// the log analyser could extract text for, but not classify further.
type Vague struct {
	Description string
}

func (Vague) _sealed()         {}
func (r Vague) Family() Family { return FamilyVague }
func (r Vague) Key() string    { return r.Description }
func (r Vague) String() string { return r.Description }

func NewVague(description string) (Requirement, error) {
	if description == "" {
		return nil, errors.New("vague requirement needs a description")
	}
	return Vague{Description: description}, nil
}
