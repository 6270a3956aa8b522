package session

import (
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/jelmer/ognibuild/vcssnap"
	"github.com/pkg/errors"
)

// UnshareSession runs commands inside a kernel-namespace sandbox created
// from a cached base-system tarball via `unshare`. It is Linux-only and is
// the variant used for network-denied test runs (§4.C). Like
// ChrootSession, it requires process-wide exclusivity.
type UnshareSession struct {
	baseTarball string // path to the cached <suite>-<arch>.tar.gz image
	root        string // extracted root, populated on Open
	cwd         string
	denyNetwork bool
	opened      bool
	closed      bool
	lifetime    lifetime
}

// NewUnshareSession returns a session that extracts baseTarball into a
// fresh temporary root on Open, and runs commands inside it with
// `unshare --mount --pid --fork`. denyNetwork additionally passes
// `--net`, isolating the child from the host network.
func NewUnshareSession(baseTarball string, denyNetwork bool) *UnshareSession {
	return &UnshareSession{baseTarball: baseTarball, denyNetwork: denyNetwork}
}

var _ Session = (*UnshareSession)(nil)

func (s *UnshareSession) Open() error {
	if runtime.GOOS != "linux" {
		return errors.New("unshare sessions are only supported on Linux")
	}
	if err := acquireExclusive(); err != nil {
		return err
	}
	root, err := extractTarball(s.baseTarball)
	if err != nil {
		releaseExclusive()
		return &SetupError{Reason: err.Error()}
	}
	s.root = root
	s.opened = true
	s.lifetime = newLifetime()
	return nil
}

func (s *UnshareSession) Close() error {
	if s.closed || !s.opened {
		return nil
	}
	s.closed = true
	s.lifetime.stop()
	releaseExclusive()
	return removeAllBestEffort(s.root)
}

func (s *UnshareSession) requireOpen() error {
	if !s.opened || s.closed {
		return ErrNoSessionOpen
	}
	return nil
}

func (s *UnshareSession) Chdir(path string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	s.cwd = path
	return nil
}

func (s *UnshareSession) unshareArgv(argv []string) []string {
	flags := []string{"--mount", "--pid", "--fork", "--mount-proc", "-R", s.root}
	if s.denyNetwork {
		flags = append(flags, "--net")
	}
	full := append([]string{"unshare"}, flags...)
	return append(full, argv...)
}

func (s *UnshareSession) CheckCall(ctx context.Context, argv []string, opts RunOpts) error {
	res, err := s.RunWithTee(ctx, argv, opts, nil)
	if err != nil {
		return err
	}
	if res.TimedOut || res.ExitCode != 0 {
		return &ExitError{Argv: argv, ExitCode: res.ExitCode}
	}
	return nil
}

func (s *UnshareSession) RunWithTee(ctx context.Context, argv []string, opts RunOpts, tee io.Writer) (TeeResult, error) {
	if err := s.requireOpen(); err != nil {
		return TeeResult{}, err
	}
	if len(argv) == 0 {
		return TeeResult{}, &NotRunnableError{Cause: errors.New("empty argv")}
	}
	full := s.unshareArgv(argv)
	cmd := exec.Command(full[0], full[1:]...)
	cmd.Dir = filepath.Join(s.root, s.cwd, opts.Cwd)
	if len(opts.Env) > 0 {
		cmd.Env = opts.Env
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

func (s *UnshareSession) ExternalPath(p string) (string, error) {
	if err := s.requireOpen(); err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return filepath.Join(s.root, p), nil
	}
	return filepath.Join(s.root, s.cwd, p), nil
}

func (s *UnshareSession) SetupFromDirectory(path, subdir string) (string, string, error) {
	if err := s.requireOpen(); err != nil {
		return "", "", err
	}
	dest := filepath.Join(s.root, subdir)
	if err := copyTree(path, dest); err != nil {
		return "", "", &SetupError{Reason: err.Error()}
	}
	return dest, filepath.Join("/", subdir), nil
}

func (s *UnshareSession) SetupFromVCS(tree vcssnap.Tree, subdir string) (string, string, error) {
	if err := s.requireOpen(); err != nil {
		return "", "", err
	}
	dest := filepath.Join(s.root, subdir)
	if err := tree.Export(dest); err != nil {
		return "", "", &SetupError{Reason: err.Error()}
	}
	return dest, filepath.Join("/", subdir), nil
}

func (s *UnshareSession) CreateHome() (string, error) {
	if err := s.requireOpen(); err != nil {
		return "", err
	}
	home := filepath.Join(s.root, "root")
	if err := mkdirAll(home); err != nil {
		return "", errors.Wrap(err, "creating home directory")
	}
	return home, nil
}

func (s *UnshareSession) IsTemporary() bool { return true }
