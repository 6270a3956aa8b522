package requirement

import "testing"

func TestCanonicalKeyNormalisesUnderscores(t *testing.T) {
	r, err := NewPythonPackage("Some_Package", "")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := r.Key(), "some-package"; got != want {
		t.Fatalf("Key() = %q, want %q", got, want)
	}
}

func TestEqualIsStructural(t *testing.T) {
	a, _ := NewBinary("gpg")
	b, _ := NewBinary("gpg")
	c, _ := NewBinary("gpg2")
	if !Equal(a, b) {
		t.Fatal("expected equal requirements to compare equal")
	}
	if Equal(a, c) {
		t.Fatal("expected differing requirements to compare unequal")
	}
}

func TestEqualAcrossFamilies(t *testing.T) {
	a, _ := NewBinary("foo")
	b, _ := NewAptPackage("foo")
	if Equal(a, b) {
		t.Fatal("requirements from different families must never compare equal")
	}
}

func TestMalformedVersionConstraintIsConstructionError(t *testing.T) {
	if _, err := NewPythonPackage("numpy", "not-a-version"); err == nil {
		t.Fatal("expected malformed minimum version to be rejected at construction")
	}
}

func TestConstructorsRejectEmptyNames(t *testing.T) {
	cases := []func() (Requirement, error){
		func() (Requirement, error) { return NewBinary("") },
		func() (Requirement, error) { return NewHeader("") },
		func() (Requirement, error) { return NewPkgConfig("", "") },
		func() (Requirement, error) { return NewAptPackage("") },
		func() (Requirement, error) { return NewLibrary("") },
		func() (Requirement, error) { return NewAutoconfMacro("") },
		func() (Requirement, error) { return NewVague("") },
	}
	for i, f := range cases {
		if _, err := f(); err == nil {
			t.Fatalf("case %d: expected construction error for empty name", i)
		}
	}
}

func TestStringRendersDiagnostics(t *testing.T) {
	r, _ := NewPkgConfig("gtk+-3.0", "3.20")
	if got, want := r.String(), "pkg-config module gtk+-3.0 (>= 3.20)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
