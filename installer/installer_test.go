package installer

import (
	"context"
	"testing"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/resolver"
	"github.com/jelmer/ognibuild/session"
)

func TestScopeUnsupported(t *testing.T) {
	s := session.NewPlainSession("")
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	si := &SessionInstaller{Resolver: resolver.NewPyPI(), Session: s, Scopes: map[Scope]bool{ScopeUser: true}, AllowNetwork: true}
	req, _ := requirement.NewPythonPackage("numpy", "")
	err := si.Install(context.Background(), req, ScopeSystem)
	if _, ok := err.(*ScopeUnsupportedError); !ok {
		t.Fatalf("expected *ScopeUnsupportedError, got %T: %v", err, err)
	}
}

func TestNetworkRequiredWhenDisallowed(t *testing.T) {
	s := session.NewPlainSession("")
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	si := &SessionInstaller{
		Resolver:     resolver.NewPyPI(),
		Session:      s,
		Scopes:       map[Scope]bool{ScopeUser: true},
		AllowNetwork: false,
	}
	req, _ := requirement.NewPythonPackage("numpy", "")
	err := si.Install(context.Background(), req, ScopeUser)
	if _, ok := err.(*NetworkRequiredError); !ok {
		t.Fatalf("expected *NetworkRequiredError, got %T: %v", err, err)
	}
}

func TestInstallIsNoOpWhenAlreadyPresent(t *testing.T) {
	s := session.NewPlainSession("")
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	si := &SessionInstaller{
		Resolver:       resolver.NewPyPI(),
		Session:        s,
		Scopes:         map[Scope]bool{ScopeUser: true},
		AllowNetwork:   true,
		AlreadyPresent: func(req requirement.Requirement) bool { return true },
	}
	req, _ := requirement.NewPythonPackage("numpy", "")
	if err := si.Install(context.Background(), req, ScopeUser); err != nil {
		t.Fatalf("expected already-satisfied install to be a no-op, got %v", err)
	}
}

func TestPackageUnknownWhenResolverCannotResolve(t *testing.T) {
	s := session.NewPlainSession("")
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	si := &SessionInstaller{
		Resolver:     resolver.NewPyPI(),
		Session:      s,
		Scopes:       map[Scope]bool{ScopeUser: true},
		AllowNetwork: true,
	}
	gpg, _ := requirement.NewBinary("gpg")
	err := si.Install(context.Background(), gpg, ScopeUser)
	if _, ok := err.(*PackageUnknownError); !ok {
		t.Fatalf("expected *PackageUnknownError, got %T: %v", err, err)
	}
}
