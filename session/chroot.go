package session

import (
	"context"
	"io"
	"os/exec"
	"path/filepath"

	"github.com/jelmer/ognibuild/vcssnap"
	"github.com/pkg/errors"
)

// ChrootSession runs commands inside a root created by an external helper
// (e.g. schroot, sbuild's chroot setup). It requires process-wide
// exclusivity: only one chroot may be active per process, since the helper
// manipulates global mount state.
type ChrootSession struct {
	chrootName string // name of the pre-existing schroot session/chroot
	cwd        string
	opened     bool
	closed     bool
	lifetime   lifetime
}

// NewChrootSession returns a session that will invoke commands via
// `schroot -c <chrootName> --`.
func NewChrootSession(chrootName string) *ChrootSession {
	return &ChrootSession{chrootName: chrootName}
}

var _ Session = (*ChrootSession)(nil)

func (s *ChrootSession) Open() error {
	if err := acquireExclusive(); err != nil {
		return err
	}
	s.opened = true
	s.lifetime = newLifetime()
	return nil
}

func (s *ChrootSession) Close() error {
	if s.closed || !s.opened {
		return nil
	}
	s.closed = true
	s.lifetime.stop()
	releaseExclusive()
	return nil
}

func (s *ChrootSession) requireOpen() error {
	if !s.opened || s.closed {
		return ErrNoSessionOpen
	}
	return nil
}

func (s *ChrootSession) Chdir(path string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	s.cwd = path
	return nil
}

func (s *ChrootSession) wrap(argv []string, opts RunOpts) []string {
	full := []string{"schroot", "-c", s.chrootName, "--run-session", "--"}
	full = append(full, argv...)
	return full
}

func (s *ChrootSession) CheckCall(ctx context.Context, argv []string, opts RunOpts) error {
	res, err := s.RunWithTee(ctx, argv, opts, nil)
	if err != nil {
		return err
	}
	if res.TimedOut || res.ExitCode != 0 {
		return &ExitError{Argv: argv, ExitCode: res.ExitCode}
	}
	return nil
}

func (s *ChrootSession) RunWithTee(ctx context.Context, argv []string, opts RunOpts, tee io.Writer) (TeeResult, error) {
	if err := s.requireOpen(); err != nil {
		return TeeResult{}, err
	}
	if len(argv) == 0 {
		return TeeResult{}, &NotRunnableError{Cause: errors.New("empty argv")}
	}
	full := s.wrap(argv, opts)
	cmd := exec.Command(full[0], full[1:]...)
	if opts.Cwd != "" || s.cwd != "" {
		cmd.Dir = filepath.Join(s.cwd, opts.Cwd)
	}
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

func (s *ChrootSession) ExternalPath(p string) (string, error) {
	if err := s.requireOpen(); err != nil {
		return "", err
	}
	// The schroot session shares the host filesystem namespace for bind
	// mounts set up by the helper; paths under the session are therefore
	// already host-visible.
	return p, nil
}

func (s *ChrootSession) SetupFromDirectory(path, subdir string) (string, string, error) {
	if err := s.requireOpen(); err != nil {
		return "", "", err
	}
	dest := filepath.Join("/build", subdir)
	if err := s.CheckCall(context.Background(), []string{"cp", "-a", path, dest}, RunOpts{}); err != nil {
		return "", "", &SetupError{Reason: err.Error()}
	}
	return dest, dest, nil
}

func (s *ChrootSession) SetupFromVCS(tree vcssnap.Tree, subdir string) (string, string, error) {
	if err := s.requireOpen(); err != nil {
		return "", "", err
	}
	dest := filepath.Join("/build", subdir)
	if err := tree.Export(dest); err != nil {
		return "", "", &SetupError{Reason: err.Error()}
	}
	return dest, dest, nil
}

func (s *ChrootSession) CreateHome() (string, error) {
	if err := s.requireOpen(); err != nil {
		return "", err
	}
	home := "/root"
	if err := s.CheckCall(context.Background(), []string{"mkdir", "-p", home}, RunOpts{}); err != nil {
		return "", errors.Wrap(err, "creating home directory")
	}
	return home, nil
}

func (s *ChrootSession) IsTemporary() bool { return true }
