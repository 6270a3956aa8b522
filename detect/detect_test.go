package detect

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectSingleCargoProject(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Cargo.toml")

	systems, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(systems) != 1 || systems[0].Name() != "cargo" {
		t.Fatalf("expected exactly one cargo build system, got %+v", systems)
	}
}

func TestDetectEmptyTreeIsNoBuildToolsFound(t *testing.T) {
	dir := t.TempDir()
	_, err := Detect(dir)
	if err != ErrNoBuildToolsFound {
		t.Fatalf("expected ErrNoBuildToolsFound, got %v", err)
	}
}

func TestDetectPrefersGeneratorBeforeGenerated(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "CMakeLists.txt")
	touch(t, dir, "Makefile")

	systems, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(systems) != 2 {
		t.Fatalf("expected both build systems to be reported, got %+v", systems)
	}
	if systems[0].Name() != "cmake" {
		t.Fatalf("expected cmake to precede make, got order %+v", systems)
	}
}

func TestDetectCoexistingSetupPyAndMakefile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "setup.py")
	touch(t, dir, "Makefile")

	systems, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(systems) != 2 {
		t.Fatalf("expected setup.py and Makefile to coexist, got %+v", systems)
	}
	if systems[0].Name() != "setup.py" {
		t.Fatalf("expected setup.py to precede make, got order %+v", systems)
	}
}

func TestDetectNestedSubpath(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, sub, "package.json")

	systems, err := Detect(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(systems) != 1 || systems[0].Subpath() != "sub" {
		t.Fatalf("expected npm build system bound to subpath 'sub', got %+v", systems)
	}
}
