package buildsystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jelmer/ognibuild/session"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCargoGetDeclaredDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Cargo.toml"), `
[package]
name = "example"
version = "0.1.0"

[dependencies]
serde = "^1.0"

[dev-dependencies]
proptest = "1.0"
`)
	sess := session.NewPlainSession(dir)
	if err := sess.Open(); err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	cargo := NewCargo("")
	deps, err := cargo.GetDeclaredDependencies(context.Background(), sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sawRuntime, sawDev bool
	for _, d := range deps {
		if d.Req.Key() == "serde" && d.Category == CategoryRuntime {
			sawRuntime = true
		}
		if d.Req.Key() == "proptest" && d.Category == CategoryDev {
			sawDev = true
		}
	}
	if !sawRuntime {
		t.Errorf("expected serde as a runtime dependency, got %+v", deps)
	}
	if !sawDev {
		t.Errorf("expected proptest as a dev dependency, got %+v", deps)
	}
}

func TestGoModulesGetDeclaredDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "go.mod"), `module example.com/foo

go 1.21

require (
	github.com/pkg/errors v0.9.1
	golang.org/x/mod v0.14.0 // indirect
)
`)
	sess := session.NewPlainSession(dir)
	if err := sess.Open(); err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	gm := NewGoModules("")
	deps, err := gm.GetDeclaredDependencies(context.Background(), sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	foundDirect, foundIndirect := false, false
	for _, d := range deps {
		switch d.Req.Key() {
		case "github.com/pkg/errors":
			foundDirect = d.Category == CategoryRuntime
		case "golang.org/x/mod":
			foundIndirect = d.Category == CategoryBuild
		}
	}
	if !foundDirect {
		t.Errorf("expected direct require classified as runtime, got %+v", deps)
	}
	if !foundIndirect {
		t.Errorf("expected indirect require classified as build, got %+v", deps)
	}
}

func TestRDescriptionGetDeclaredDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "DESCRIPTION"), `Package: example
Imports: methods (>= 1.2.0), utils
Suggests: testthat
`)
	sess := session.NewPlainSession(dir)
	if err := sess.Open(); err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	rd := NewRDescription("")
	deps, err := rd.GetDeclaredDependencies(context.Background(), sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var methods, testthat bool
	for _, d := range deps {
		if d.Req.Key() == "methods" && d.Category == CategoryRuntime {
			methods = true
		}
		if d.Req.Key() == "testthat" && d.Category == CategoryTest {
			testthat = true
		}
	}
	if !methods {
		t.Errorf("expected methods as a runtime import, got %+v", deps)
	}
	if !testthat {
		t.Errorf("expected testthat as a suggested/test dependency, got %+v", deps)
	}
}

func TestMakeDistErrorsWhenMakeIsNotRunnable(t *testing.T) {
	dir := t.TempDir()
	sess := session.NewPlainSession(dir)
	if err := sess.Open(); err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	mk := NewMake("")
	_, _, err := mk.Dist(context.Background(), sess, t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected an error since `make dist` is not runnable in this sandbox")
	}
}
