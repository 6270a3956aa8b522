package problem

import "testing"

func TestEqualIsStructural(t *testing.T) {
	a := MissingCommand{Command: "gpg"}
	b := MissingCommand{Command: "gpg"}
	c := MissingCommand{Command: "gpg2"}
	if !Equal(a, b) {
		t.Fatal("expected structurally identical problems to be equal")
	}
	if Equal(a, c) {
		t.Fatal("expected differing problems to be unequal")
	}
}

func TestToRequirementMissingCommand(t *testing.T) {
	r, ok := ToRequirement(MissingCommand{Command: "gpg"})
	if !ok {
		t.Fatal("expected a conversion for MissingCommand")
	}
	if r.String() != "binary gpg" {
		t.Fatalf("unexpected requirement: %s", r)
	}
}

func TestUnknownHasNoConversion(t *testing.T) {
	if _, ok := ToRequirement(Unknown{Description: "something broke"}); ok {
		t.Fatal("Unknown must never have a registered conversion")
	}
}

func TestUnregisteredKindHasNoConversion(t *testing.T) {
	if _, ok := ToRequirement(DisappearedSymbols{Symbols: []string{"foo"}}); ok {
		t.Fatal("DisappearedSymbols must not have a registered conversion")
	}
}
