package buildsystem

import (
	"context"
	"io"
	"path/filepath"

	"github.com/jelmer/ognibuild/session"
)

// manifestPath resolves the host-visible path to a manifest file named
// name inside a BuildSystem's subpath, via the session's path translator.
func manifestPath(sess session.Session, subpath, name string) (string, error) {
	return sess.ExternalPath(filepath.Join(subpath, name))
}

// recipe runs a single ecosystem command inside sess, rooted at subpath,
// capturing output the way every BuildSystem adapter in this package does.
func recipe(ctx context.Context, sess session.Session, subpath string, argv []string, tee io.Writer) (ActionResult, error) {
	res, err := sess.RunWithTee(ctx, argv, session.RunOpts{Cwd: subpath}, tee)
	if err != nil {
		return ActionResult{}, err
	}
	if res.TimedOut {
		return ActionResult{ExitCode: -1, Lines: res.Lines}, nil
	}
	return ActionResult{ExitCode: res.ExitCode, Lines: res.Lines}, nil
}
