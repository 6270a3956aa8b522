// Package vcssnap implements the read-only version-control tree snapshot
// abstraction consumed by session.Session.SetupFromVCS (§6(b) of the core
// spec: "supplies a read-only snapshot with an export(to path) primitive").
//
// It wraps github.com/Masterminds/vcs, the same dependency dep/gps vendors
// for its own repository operations (vcs_repo.go, vcs_source.go).
package vcssnap

import (
	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"
)

// Tree is a read-only snapshot of a version-controlled working copy.
type Tree interface {
	// Export writes the tree's contents to dest, which must not already
	// exist.
	Export(dest string) error
}

// repoTree adapts a vcs.Repo (already checked out at some local path) into
// a Tree by re-exporting its current checkout.
type repoTree struct {
	repo vcs.Repo
}

// Open inspects localPath and returns a Tree backed by whichever VCS
// Masterminds/vcs detects there (git, hg, bzr, svn).
func Open(localPath string) (Tree, error) {
	repo, err := vcs.NewRepo("", localPath)
	if err != nil {
		return nil, errors.Wrapf(err, "detecting vcs at %s", localPath)
	}
	return &repoTree{repo: repo}, nil
}

func (t *repoTree) Export(dest string) error {
	if exporter, ok := t.repo.(interface{ ExportDir(string) error }); ok {
		return exporter.ExportDir(dest)
	}
	return errors.Errorf("%s repositories do not support export", t.repo.Vcs())
}
