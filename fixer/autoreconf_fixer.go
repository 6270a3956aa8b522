package fixer

import (
	"context"

	"github.com/jelmer/ognibuild/session"
)

// runAutoreconf regenerates an autotools project's configure script after
// its dependent macros have changed underneath it. It is shared by
// AutoconfMacroFixer; a bare "configure: error: possibly undefined macro"
// only goes away once autoreconf re-runs aclocal against the newly
// installed macro definitions.
func runAutoreconf(ctx context.Context, sess session.Session, subpath string) (Outcome, error) {
	res, err := sess.RunWithTee(ctx, []string{"autoreconf", "-fi"}, session.RunOpts{Cwd: subpath}, nil)
	if err != nil {
		return Failed, err
	}
	if res.ExitCode != 0 {
		return Failed, &session.ExitError{Argv: []string{"autoreconf", "-fi"}, ExitCode: res.ExitCode}
	}
	return Claimed, nil
}
