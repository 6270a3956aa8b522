package main

import (
	"testing"

	"github.com/jelmer/ognibuild/ogniloop"
	"github.com/jelmer/ognibuild/session"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"no build tools", ogniloop.NoBuildToolsFoundError{}, exitNoBuildTools},
		{"unfixable", &ogniloop.UnfixableError{}, exitUnresolvedProblem},
		{"recurrence", &ogniloop.RecurrenceError{}, exitUnresolvedProblem},
		{"fix limit", &ogniloop.FixLimitExceededError{Limit: 5}, exitFixLimitExceeded},
		{"session setup", &session.SetupError{Reason: "boom"}, exitSessionSetupFailure},
		{"generic", errTest{}, exitGeneric},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := exitCodeFor(c.err); got != c.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}

type errTest struct{}

func (errTest) Error() string { return "generic failure" }

func TestLooksLikeVCSURL(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/foo.git": true,
		"git://example.com/foo":       true,
		"/home/user/project":          false,
		".":                           false,
		"relative/path":               false,
	}
	for in, want := range cases {
		if got := looksLikeVCSURL(in); got != want {
			t.Errorf("looksLikeVCSURL(%q) = %v, want %v", in, got, want)
		}
	}
}
