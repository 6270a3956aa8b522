package resolver

import (
	"fmt"

	"github.com/jelmer/ognibuild/requirement"
)

// ecosystemResolver implements the common shape shared by the
// language-ecosystem resolvers (pypi, cpan, npm, cargo, hackage, cran,
// golang): each owns exactly one requirement.Family and installs it with a
// fixed-shape command line.
type ecosystemResolver struct {
	name       string
	family     requirement.Family
	argv       func(name, version string) []string
	nameAndVer func(req requirement.Requirement) (name, version string, ok bool)
}

var _ Resolver = (*ecosystemResolver)(nil)

func (e *ecosystemResolver) Name() string { return e.name }

func (e *ecosystemResolver) Resolve(req requirement.Requirement) (Package, bool) {
	name, version, ok := e.nameAndVer(req)
	if !ok {
		return Package{}, false
	}
	return Package{Name: name, Version: version}, true
}

func (e *ecosystemResolver) InstallCmd(req requirement.Requirement) ([]string, bool) {
	name, version, ok := e.nameAndVer(req)
	if !ok {
		return nil, false
	}
	return e.argv(name, version), true
}

func (e *ecosystemResolver) Explain(reqs []requirement.Requirement) string {
	out := ""
	for _, req := range reqs {
		if name, version, ok := e.nameAndVer(req); ok {
			if version == "" {
				out += fmt.Sprintf("install %s via %s to satisfy %s\n", name, e.name, req)
			} else {
				out += fmt.Sprintf("install %s>=%s via %s to satisfy %s\n", name, version, e.name, req)
			}
		}
	}
	return out
}

// NewPyPI resolves FamilyPythonPackage requirements to `pip install` argv.
func NewPyPI() Resolver {
	return &ecosystemResolver{
		name:   "pypi",
		family: requirement.FamilyPythonPackage,
		argv: func(name, version string) []string {
			if version == "" {
				return []string{"pip", "install", name}
			}
			return []string{"pip", "install", fmt.Sprintf("%s>=%s", name, version)}
		},
		nameAndVer: func(req requirement.Requirement) (string, string, bool) {
			pp, ok := req.(requirement.PythonPackage)
			if !ok {
				return "", "", false
			}
			return pp.Package, pp.MinVersion, true
		},
	}
}

// NewCPAN resolves FamilyPerlModule requirements to `cpan -i` argv.
func NewCPAN() Resolver {
	return &ecosystemResolver{
		name:   "cpan",
		family: requirement.FamilyPerlModule,
		argv: func(name, _ string) []string {
			return []string{"cpan", "-i", name}
		},
		nameAndVer: func(req requirement.Requirement) (string, string, bool) {
			pm, ok := req.(requirement.PerlModule)
			if !ok {
				return "", "", false
			}
			return pm.Module, pm.Version, true
		},
	}
}

// NewNPM resolves FamilyNodePackage requirements to `npm install -g` argv.
func NewNPM() Resolver {
	return &ecosystemResolver{
		name:   "npm",
		family: requirement.FamilyNodePackage,
		argv: func(name, version string) []string {
			if version == "" {
				return []string{"npm", "install", "-g", name}
			}
			return []string{"npm", "install", "-g", fmt.Sprintf("%s@>=%s", name, version)}
		},
		nameAndVer: func(req requirement.Requirement) (string, string, bool) {
			np, ok := req.(requirement.NodePackage)
			if !ok {
				return "", "", false
			}
			return np.Package, np.MinVersion, true
		},
	}
}

// NewCargo resolves FamilyRustCrate requirements to `cargo install` argv.
func NewCargo() Resolver {
	return &ecosystemResolver{
		name:   "cargo",
		family: requirement.FamilyRustCrate,
		argv: func(name, version string) []string {
			if version == "" {
				return []string{"cargo", "install", name}
			}
			return []string{"cargo", "install", "--version", version, name}
		},
		nameAndVer: func(req requirement.Requirement) (string, string, bool) {
			rc, ok := req.(requirement.RustCrate)
			if !ok {
				return "", "", false
			}
			return rc.Crate, rc.MinVersion, true
		},
	}
}

// NewHackage resolves FamilyHaskellPackage requirements to `cabal install`
// argv.
func NewHackage() Resolver {
	return &ecosystemResolver{
		name:   "hackage",
		family: requirement.FamilyHaskellPackage,
		argv: func(name, _ string) []string {
			return []string{"cabal", "install", name}
		},
		nameAndVer: func(req requirement.Requirement) (string, string, bool) {
			hp, ok := req.(requirement.HaskellPackage)
			if !ok {
				return "", "", false
			}
			return hp.Package, hp.MinVersion, true
		},
	}
}

// NewCRAN resolves FamilyRPackage requirements to an `Rscript` one-liner.
func NewCRAN() Resolver {
	return &ecosystemResolver{
		name:   "cran",
		family: requirement.FamilyRPackage,
		argv: func(name, _ string) []string {
			return []string{"Rscript", "-e", fmt.Sprintf("install.packages(%q)", name)}
		},
		nameAndVer: func(req requirement.Requirement) (string, string, bool) {
			rp, ok := req.(requirement.RPackage)
			if !ok {
				return "", "", false
			}
			return rp.Package, rp.MinVersion, true
		},
	}
}

// NewGolang resolves FamilyGoPackage requirements to `go install` argv.
func NewGolang() Resolver {
	return &ecosystemResolver{
		name:   "golang",
		family: requirement.FamilyGoPackage,
		argv: func(name, version string) []string {
			if version == "" {
				return []string{"go", "install", name + "@latest"}
			}
			return []string{"go", "install", fmt.Sprintf("%s@%s", name, version)}
		},
		nameAndVer: func(req requirement.Requirement) (string, string, bool) {
			gp, ok := req.(requirement.GoPackage)
			if !ok {
				return "", "", false
			}
			return gp.ImportPath, gp.MinVersion, true
		},
	}
}
