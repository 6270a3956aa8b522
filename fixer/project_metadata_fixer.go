package fixer

import (
	"context"

	"github.com/jelmer/ognibuild/installer"
	"github.com/jelmer/ognibuild/problem"
)

// ProjectMetadataFixer claims the same problems RequirementFixer does, but
// satisfies them by adding the missing requirement directly to the
// project's own manifest (Cargo.toml's [dependencies], pyproject.toml's
// build-system requires) via an installer.ManifestInstaller, rather than
// mutating the host or session. A --scope vendor run wires it up after
// RequirementFixer and AutoconfMacroFixer.
type ProjectMetadataFixer struct {
	Manifest *installer.ManifestInstaller
}

var _ Fixer = (*ProjectMetadataFixer)(nil)

func (f *ProjectMetadataFixer) Name() string { return "project-metadata" }

func (f *ProjectMetadataFixer) CanFix(p problem.Problem) bool {
	_, ok := problem.ToRequirement(p)
	return ok
}

func (f *ProjectMetadataFixer) Fix(ctx context.Context, p problem.Problem, phase string) (Outcome, error) {
	req, ok := problem.ToRequirement(p)
	if !ok {
		return NotClaimed, nil
	}
	if err := f.Manifest.Install(ctx, req, installer.ScopeVendor); err != nil {
		return Failed, err
	}
	return Claimed, nil
}
