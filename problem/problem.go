// Package problem describes typed errors mined from a failed build action's
// captured log. A Problem is opaque to the core except for its identity (so
// the adaptive loop can detect recurrence) and its registered conversion to
// a requirement.Requirement.
package problem

import (
	"fmt"
	"sync"

	"github.com/jelmer/ognibuild/requirement"
)

// Kind names a Problem variant.
type Kind string

const (
	KindMissingCommand            Kind = "missing-command"
	KindMissingPythonModule        Kind = "missing-python-module"
	KindMissingPerlModule          Kind = "missing-perl-module"
	KindMissingHeader              Kind = "missing-header"
	KindMissingPkgConfig           Kind = "missing-pkg-config"
	KindMissingAutoconfMacro       Kind = "missing-autoconf-macro"
	KindUnsupportedPythonVersion   Kind = "unsupported-python-version"
	KindDisappearedSymbols         Kind = "disappeared-symbols"
	KindTimedOut                   Kind = "timed-out"
	KindUnknown                    Kind = "unknown"
)

// Problem is a structured description of a build failure. Equality is
// structural (Kind + Key), so the adaptive loop can compare successive
// visits without knowing anything about the concrete variant.
type Problem interface {
	fmt.Stringer
	// Kind identifies the Problem variant.
	Kind() Kind
	// Key is the canonical identity used for recurrence detection: two
	// Problems with the same Kind and Key are considered "the same problem"
	// for the purposes of the FixerVisit seen-set.
	Key() string
}

// Equal reports whether two Problems are structurally identical.
func Equal(a, b Problem) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind() && a.Key() == b.Key()
}

// MissingCommand is raised when a required executable is absent from PATH.
type MissingCommand struct {
	Command string
}

func (p MissingCommand) Kind() Kind    { return KindMissingCommand }
func (p MissingCommand) Key() string   { return p.Command }
func (p MissingCommand) String() string { return fmt.Sprintf("command not found: %s", p.Command) }

// MissingPythonModule is raised when a Python import fails.
type MissingPythonModule struct {
	Module     string
	MinVersion string
	PythonVer  string // "2", "3", or "" if unspecified by the log
}

func (p MissingPythonModule) Kind() Kind  { return KindMissingPythonModule }
func (p MissingPythonModule) Key() string { return p.PythonVer + ":" + p.Module }
func (p MissingPythonModule) String() string {
	return fmt.Sprintf("missing python module: %s", p.Module)
}

// MissingPerlModule is raised when a Perl `use`/`require` fails.
type MissingPerlModule struct {
	Module  string
	Version string
}

func (p MissingPerlModule) Kind() Kind    { return KindMissingPerlModule }
func (p MissingPerlModule) Key() string   { return p.Module }
func (p MissingPerlModule) String() string { return fmt.Sprintf("missing perl module: %s", p.Module) }

// MissingHeader is raised when a C/C++ compile fails on a missing #include.
type MissingHeader struct {
	Header string
}

func (p MissingHeader) Kind() Kind    { return KindMissingHeader }
func (p MissingHeader) Key() string   { return p.Header }
func (p MissingHeader) String() string { return fmt.Sprintf("missing header: %s", p.Header) }

// MissingPkgConfig is raised when `pkg-config` cannot find a `.pc` file.
type MissingPkgConfig struct {
	Module     string
	MinVersion string
}

func (p MissingPkgConfig) Kind() Kind  { return KindMissingPkgConfig }
func (p MissingPkgConfig) Key() string { return p.Module }
func (p MissingPkgConfig) String() string {
	return fmt.Sprintf("missing pkg-config module: %s", p.Module)
}

// MissingAutoconfMacro is raised when autoreconf reports an unknown macro.
type MissingAutoconfMacro struct {
	Macro string
}

func (p MissingAutoconfMacro) Kind() Kind  { return KindMissingAutoconfMacro }
func (p MissingAutoconfMacro) Key() string { return p.Macro }
func (p MissingAutoconfMacro) String() string {
	return fmt.Sprintf("missing autoconf macro: %s", p.Macro)
}

// UnsupportedPythonVersion is raised when a package declares support for a
// Python version the running interpreter does not satisfy.
type UnsupportedPythonVersion struct {
	Required string
	Running  string
}

func (p UnsupportedPythonVersion) Kind() Kind  { return KindUnsupportedPythonVersion }
func (p UnsupportedPythonVersion) Key() string { return p.Required }
func (p UnsupportedPythonVersion) String() string {
	return fmt.Sprintf("unsupported python version: requires %s, running %s", p.Required, p.Running)
}

// DisappearedSymbols is raised when a link step fails due to symbols that
// used to exist in a shared library no longer being present.
type DisappearedSymbols struct {
	Symbols []string
}

func (p DisappearedSymbols) Kind() Kind  { return KindDisappearedSymbols }
func (p DisappearedSymbols) Key() string { return fmt.Sprint(p.Symbols) }
func (p DisappearedSymbols) String() string {
	return fmt.Sprintf("disappeared symbols: %v", p.Symbols)
}

// TimedOut describes a command killed after its per-command timeout
// expired. Sessions report a timeout as TeeResult.TimedOut and the
// buildsystem recipes turn it into exit code -1 for the analyser; nothing
// in this module constructs a TimedOut Problem.
type TimedOut struct {
	Command string
}

func (p TimedOut) Kind() Kind    { return KindTimedOut }
func (p TimedOut) Key() string   { return p.Command }
func (p TimedOut) String() string { return fmt.Sprintf("timed out running: %s", p.Command) }

// Unknown is the catch-all Problem the analyser returns when it cannot
// classify a failure. Unknown problems are, by definition, unfixable and
// terminate the adaptive loop with the original failure (§4.I step 3).
type Unknown struct {
	Description string
}

func (p Unknown) Kind() Kind    { return KindUnknown }
func (p Unknown) Key() string   { return p.Description }
func (p Unknown) String() string { return p.Description }

// ConversionFunc converts a Problem to the Requirement it implies, when such
// a conversion exists for that Problem's concrete contents.
type ConversionFunc func(Problem) (requirement.Requirement, bool)

var (
	registryMu sync.RWMutex
	registry   = map[Kind]ConversionFunc{}
)

// RegisterConversion installs the Problem→Requirement conversion function
// for a Kind. Registration happens at package init time, before the
// adaptive loop runs, and the registry is read-only thereafter (§9 "Global
// conversions"). Calling RegisterConversion after the loop has started
// running is a programming error, not a supported runtime extension point.
func RegisterConversion(k Kind, f ConversionFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[k] = f
}

// ToRequirement applies the registered conversion for p's Kind, if any.
func ToRequirement(p Problem) (requirement.Requirement, bool) {
	registryMu.RLock()
	f, ok := registry[p.Kind()]
	registryMu.RUnlock()
	if !ok {
		return nil, false
	}
	return f(p)
}

func init() {
	RegisterConversion(KindMissingCommand, func(p Problem) (requirement.Requirement, bool) {
		mc, ok := p.(MissingCommand)
		if !ok {
			return nil, false
		}
		r, err := requirement.NewBinary(mc.Command)
		return r, err == nil
	})
	RegisterConversion(KindMissingPythonModule, func(p Problem) (requirement.Requirement, bool) {
		mp, ok := p.(MissingPythonModule)
		if !ok {
			return nil, false
		}
		r, err := requirement.NewPythonPackage(mp.Module, mp.MinVersion)
		return r, err == nil
	})
	RegisterConversion(KindMissingPerlModule, func(p Problem) (requirement.Requirement, bool) {
		mp, ok := p.(MissingPerlModule)
		if !ok {
			return nil, false
		}
		r, err := requirement.NewPerlModule(mp.Module, mp.Version)
		return r, err == nil
	})
	RegisterConversion(KindMissingHeader, func(p Problem) (requirement.Requirement, bool) {
		mh, ok := p.(MissingHeader)
		if !ok {
			return nil, false
		}
		r, err := requirement.NewHeader(mh.Header)
		return r, err == nil
	})
	RegisterConversion(KindMissingPkgConfig, func(p Problem) (requirement.Requirement, bool) {
		mp, ok := p.(MissingPkgConfig)
		if !ok {
			return nil, false
		}
		r, err := requirement.NewPkgConfig(mp.Module, mp.MinVersion)
		return r, err == nil
	})
	RegisterConversion(KindMissingAutoconfMacro, func(p Problem) (requirement.Requirement, bool) {
		ma, ok := p.(MissingAutoconfMacro)
		if !ok {
			return nil, false
		}
		r, err := requirement.NewAutoconfMacro(ma.Macro)
		return r, err == nil
	})
	// UnsupportedPythonVersion, DisappearedSymbols, TimedOut and Unknown have
	// no registered conversion: they are not resolved by installing a
	// missing package, so RequirementFixer never claims them. UpstreamFixer
	// handles UnsupportedPythonVersion directly from the Problem; no fixer
	// in this module claims the other three.
}
