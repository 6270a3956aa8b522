package session

import (
	"context"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"

	"github.com/jelmer/ognibuild/vcssnap"
	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
)

// PlainSession runs commands directly on the host, optionally rooted at a
// temporary copy of a working tree. It never requires process-wide
// exclusivity: multiple plain sessions may be open concurrently, each
// isolated by its own root directory.
type PlainSession struct {
	root      string // cwd of the session; "" until Open
	cwd       string // path relative to root
	temporary bool
	closed    bool
	lifetime  lifetime
}

// NewPlainSession returns a PlainSession rooted at dir. If dir is empty, a
// temporary directory is created and removed on Close (IsTemporary reports
// true in that case).
func NewPlainSession(dir string) *PlainSession {
	return &PlainSession{root: dir}
}

var _ Session = (*PlainSession)(nil)

func (s *PlainSession) Open() error {
	if s.root == "" {
		tmp, err := ioutil.TempDir("", "ognibuild-")
		if err != nil {
			return errors.Wrap(err, "creating temporary session root")
		}
		s.root = tmp
		s.temporary = true
	}
	s.lifetime = newLifetime()
	return nil
}

func (s *PlainSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.lifetime.stop()
	if s.temporary {
		return os.RemoveAll(s.root)
	}
	return nil
}

func (s *PlainSession) requireOpen() error {
	if s.root == "" || s.closed {
		return ErrNoSessionOpen
	}
	return nil
}

func (s *PlainSession) Chdir(path string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	s.cwd = path
	return nil
}

func (s *PlainSession) absCwd(cwd string) string {
	// Plain sessions hand out host paths as internal paths, so an absolute
	// current directory is already host-visible.
	base := s.cwd
	if !filepath.IsAbs(base) {
		base = filepath.Join(s.root, s.cwd)
	}
	if cwd == "" {
		return base
	}
	return filepath.Join(base, cwd)
}

func (s *PlainSession) CheckCall(ctx context.Context, argv []string, opts RunOpts) error {
	res, err := s.RunWithTee(ctx, argv, opts, nil)
	if err != nil {
		return err
	}
	if res.TimedOut {
		return &ExitError{Argv: argv, ExitCode: -1}
	}
	if res.ExitCode != 0 {
		return &ExitError{Argv: argv, ExitCode: res.ExitCode}
	}
	return nil
}

func (s *PlainSession) RunWithTee(ctx context.Context, argv []string, opts RunOpts, tee io.Writer) (TeeResult, error) {
	if err := s.requireOpen(); err != nil {
		return TeeResult{}, err
	}
	if len(argv) == 0 {
		return TeeResult{}, &NotRunnableError{Cause: errors.New("empty argv")}
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		if !filepath.IsAbs(argv[0]) {
			return TeeResult{}, &NotRunnableError{Argv0: argv[0], Cause: err}
		}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.absCwd(opts.Cwd)
	if len(opts.Env) > 0 {
		cmd.Env = opts.Env
	}
	if opts.User != "" {
		if err := applyUser(cmd, opts.User); err != nil {
			return TeeResult{}, err
		}
	}

	merged, cancel := s.lifetime.mergedContext(ctx)
	defer cancel()
	mc := newMonitoredCmd(merged, cmd, opts.Timeout, tee)
	timedOut, err := mc.run()
	lines := mc.out.splitLines()
	if timedOut {
		return TeeResult{Lines: lines, TimedOut: true}, nil
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return TeeResult{ExitCode: exitErr.ExitCode(), Lines: lines}, nil
		}
		return TeeResult{Lines: lines}, &NotRunnableError{Argv0: argv[0], Cause: err}
	}
	return TeeResult{ExitCode: 0, Lines: lines}, nil
}

func (s *PlainSession) ExternalPath(p string) (string, error) {
	if err := s.requireOpen(); err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Join(s.absCwd(""), p), nil
}

func (s *PlainSession) SetupFromDirectory(path, subdir string) (string, string, error) {
	if err := s.requireOpen(); err != nil {
		return "", "", err
	}
	dest := filepath.Join(s.root, subdir)
	if err := copyTree(path, dest); err != nil {
		return "", "", &SetupError{Reason: err.Error()}
	}
	return dest, dest, nil
}

func (s *PlainSession) SetupFromVCS(tree vcssnap.Tree, subdir string) (string, string, error) {
	if err := s.requireOpen(); err != nil {
		return "", "", err
	}
	dest := filepath.Join(s.root, subdir)
	if err := tree.Export(dest); err != nil {
		return "", "", &SetupError{Reason: err.Error()}
	}
	return dest, dest, nil
}

func (s *PlainSession) CreateHome() (string, error) {
	if err := s.requireOpen(); err != nil {
		return "", err
	}
	home := filepath.Join(s.root, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		return "", errors.Wrap(err, "creating home directory")
	}
	return home, nil
}

func (s *PlainSession) IsTemporary() bool { return s.temporary }

// copyTree recursively copies src to dst, preserving file modes and
// symlinks, the same concern the teacher solves in project_manager.go and
// vcs_source.go for exporting a working tree to a destination path.
func copyTree(src, dst string) error {
	cfg := &shutil.CopyTreeOptions{
		Symlinks:     true,
		CopyFunction: shutil.Copy,
		Ignore: func(src string, contents []os.FileInfo) (ignore []string) {
			for _, fi := range contents {
				if !fi.IsDir() {
					continue
				}
				switch fi.Name() {
				case ".git", ".hg", ".svn", ".bzr":
					ignore = append(ignore, fi.Name())
				}
			}
			return
		},
	}
	return shutil.CopyTree(src, dst, cfg)
}

// applyUser resolves username and, on supported platforms, arranges for cmd
// to run as that identity. Cross-platform uid/gid switching is left to the
// chroot/unshare helpers, which already run as root; on a plain session it
// is only validated that the user exists.
func applyUser(cmd *exec.Cmd, username string) error {
	if _, err := user.Lookup(username); err != nil {
		return errors.Wrapf(err, "looking up user %q", username)
	}
	return nil
}
