package installer

import (
	"context"
	"fmt"
	"os"

	"github.com/jelmer/ognibuild/internal/txnfs"
	"github.com/jelmer/ognibuild/requirement"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// ManifestInstaller satisfies a Requirement by adding it to the project's
// own TOML-shaped manifest (Cargo.toml's [dependencies], pyproject.toml's
// build-system requires, ...) rather than installing anything. It always
// reports ScopeVendor, since the effect lands in the project tree rather
// than any system or user location.
type ManifestInstaller struct {
	// ManifestPath is the file to edit, e.g. "Cargo.toml".
	ManifestPath string
	// TableFor maps a DependencyCategory to the TOML table path that
	// should receive the new entry, e.g. []string{"dependencies"}.
	TableFor func(category string) []string
	// Category is the dependency category this install is performed
	// under (build/runtime/test/dev); see requirement.Requirement for
	// the requirement itself and buildsystem for DependencyCategory.
	Category string
}

var _ Installer = (*ManifestInstaller)(nil)

func (m *ManifestInstaller) Explain(reqs []requirement.Requirement, scope Scope) string {
	out := ""
	for _, req := range reqs {
		out += fmt.Sprintf("add %s to %s\n", req, m.ManifestPath)
	}
	return out
}

func (m *ManifestInstaller) Install(ctx context.Context, req requirement.Requirement, scope Scope) error {
	if scope != ScopeVendor {
		return &ScopeUnsupportedError{Installer: "manifest", Scope: scope}
	}

	data, err := os.ReadFile(m.ManifestPath)
	if os.IsNotExist(err) {
		data = []byte{}
	} else if err != nil {
		return errors.Wrapf(err, "reading manifest %s", m.ManifestPath)
	}

	tree, err := toml.LoadBytes(data)
	if err != nil {
		return errors.Wrapf(err, "parsing manifest %s", m.ManifestPath)
	}

	path := m.TableFor(m.Category)
	key := append(append([]string{}, path...), req.Key())
	version := versionOf(req)

	tree.SetPath(key, version)

	out, err := tree.Marshal()
	if err != nil {
		return errors.Wrap(err, "serialising manifest")
	}
	return txnfs.WriteFile(m.ManifestPath, out, 0o644)
}

func versionOf(req requirement.Requirement) string {
	switch r := req.(type) {
	case requirement.PythonPackage:
		if r.MinVersion != "" {
			return ">=" + r.MinVersion
		}
	case requirement.RustCrate:
		if r.MinVersion != "" {
			return r.MinVersion
		}
	case requirement.NodePackage:
		if r.MinVersion != "" {
			return "^" + r.MinVersion
		}
	}
	return "*"
}
