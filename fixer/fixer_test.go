package fixer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jelmer/ognibuild/installer"
	"github.com/jelmer/ognibuild/problem"
	"github.com/jelmer/ognibuild/requirement"
)

type fakeInstaller struct {
	err      error
	installed []requirement.Requirement
}

func (f *fakeInstaller) Explain(reqs []requirement.Requirement, scope installer.Scope) string {
	return "fake"
}

func (f *fakeInstaller) Install(ctx context.Context, req requirement.Requirement, scope installer.Scope) error {
	if f.err != nil {
		return f.err
	}
	f.installed = append(f.installed, req)
	return nil
}

func TestRequirementFixerClaimsConvertibleProblem(t *testing.T) {
	fi := &fakeInstaller{}
	f := &RequirementFixer{Installer: fi, Scope: installer.ScopeUser}

	p := problem.MissingCommand{Command: "pkg-config"}
	if !f.CanFix(p) {
		t.Fatal("expected CanFix to report true for MissingCommand")
	}
	outcome, err := f.Fix(context.Background(), p, "build")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != Claimed {
		t.Fatalf("expected Claimed, got %v", outcome)
	}
	if len(fi.installed) != 1 || fi.installed[0].Key() != "pkg-config" {
		t.Fatalf("expected pkg-config to have been installed, got %+v", fi.installed)
	}
}

func TestRequirementFixerDoesNotClaimUnconvertibleProblem(t *testing.T) {
	fi := &fakeInstaller{}
	f := &RequirementFixer{Installer: fi, Scope: installer.ScopeUser}

	p := problem.Unknown{Description: "something inscrutable"}
	if f.CanFix(p) {
		t.Fatal("expected CanFix to report false for an Unknown problem")
	}
	outcome, err := f.Fix(context.Background(), p, "build")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != NotClaimed {
		t.Fatalf("expected NotClaimed, got %v", outcome)
	}
}

func TestRequirementFixerYieldsToNextFixerOnPackageUnknown(t *testing.T) {
	fi := &fakeInstaller{err: &installer.PackageUnknownError{}}
	f := &RequirementFixer{Installer: fi, Scope: installer.ScopeUser}

	p := problem.MissingHeader{Header: "zlib.h"}
	outcome, err := f.Fix(context.Background(), p, "build")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != NotClaimed {
		t.Fatalf("expected NotClaimed so the loop can try another fixer, got %v", outcome)
	}
}

func TestRequirementFixerReportsFailedOnExecutionFailure(t *testing.T) {
	fi := &fakeInstaller{err: &installer.ExecutionFailureError{Argv: []string{"apt-get", "install", "-y", "zlib1g-dev"}, ExitCode: 1}}
	f := &RequirementFixer{Installer: fi, Scope: installer.ScopeSystem}

	p := problem.MissingHeader{Header: "zlib.h"}
	outcome, err := f.Fix(context.Background(), p, "build")
	if err == nil {
		t.Fatal("expected an error to be propagated")
	}
	if outcome != Failed {
		t.Fatalf("expected Failed, got %v", outcome)
	}
}

func TestUpstreamFixerWidensRequiresPython(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pyproject.toml")
	if err := os.WriteFile(path, []byte("[project]\nname = \"example\"\nrequires-python = \">=3.6\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &UpstreamFixer{PyprojectPath: path}
	p := problem.UnsupportedPythonVersion{Required: ">=3.6", Running: "3.12"}
	if !f.CanFix(p) {
		t.Fatal("expected CanFix to report true")
	}
	outcome, err := f.Fix(context.Background(), p, "build")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != Claimed {
		t.Fatalf("expected Claimed, got %v", outcome)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "3.12") {
		t.Fatalf("expected rewritten pyproject.toml to mention the running version, got %q", data)
	}
}
