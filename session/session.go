// Package session provides a scoped command-execution environment that
// isolates build actions from the host: a plain (host) variant, a chroot
// variant, and a Linux-only unshare (namespace) variant, all satisfying the
// same Session interface.
//
// The monitored-command execution at the heart of RunWithTee is adapted
// from dep/gps's monitoredCmd and activityBuffer (cmd.go): stdout and
// stderr share one activityBuffer writer, each write stamping a
// last-activity clock so a child that stays silent on both streams for
// longer than its timeout can be detected and killed.
package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/jelmer/ognibuild/vcssnap"
	"github.com/pkg/errors"
	"github.com/sdboyer/constext"
	"github.com/theckman/go-flock"
)

// Kind names a Session variant.
type Kind string

const (
	KindPlain   Kind = "plain"
	KindChroot  Kind = "chroot"
	KindUnshare Kind = "unshare"
)

// Errors returned by Session operations. These are setup/execution errors
// per §7 of the core spec: SessionAlreadyOpen and NoSessionOpen are fatal
// setup errors; ExitStatus and NotRunnable are execution errors that the
// adaptive loop converts to Problems via the analyser rather than treating
// as fatal.
var (
	ErrSessionAlreadyOpen = errors.New("a session requiring exclusive state is already open")
	ErrNoSessionOpen      = errors.New("no session open")
)

// ExitError reports that a command completed with a non-zero exit code.
type ExitError struct {
	Argv     []string
	ExitCode int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", fmt.Sprint(e.Argv), e.ExitCode)
}

// NotRunnableError reports that argv[0] could not be found or executed.
type NotRunnableError struct {
	Argv0 string
	Cause error
}

func (e *NotRunnableError) Error() string {
	return fmt.Sprintf("%s: not runnable: %s", e.Argv0, e.Cause)
}

func (e *NotRunnableError) Unwrap() error { return e.Cause }

// SetupError reports that bringing up a session's filesystem state failed.
type SetupError struct {
	Reason string
	Lines  []string
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("session setup failed: %s", e.Reason)
}

// RunOpts controls a single command invocation.
type RunOpts struct {
	Cwd     string // relative to the session's current directory, if set
	User    string // identity to run as; "" means the session's default
	Env     []string
	Timeout time.Duration // 0 means no timeout
}

// TeeResult is the outcome of RunWithTee: the exit code (valid only when
// TimedOut is false), the captured combined output split into lines, and
// whether the command was killed for exceeding its timeout.
type TeeResult struct {
	ExitCode int
	Lines    []string
	TimedOut bool
}

// Session is a scoped execution environment. Exactly one "current
// directory" exists at any time; temporary sessions guarantee removal of
// their filesystem state on Close; path translation between host and
// session-interior paths is total for any host-visible path under the
// session's working tree.
type Session interface {
	// Open brings the session up. Must be called before any other method.
	Open() error
	// Close tears the session down, discarding filesystem state if
	// IsTemporary. Must be safe to call more than once.
	Close() error

	// Chdir sets the session's notion of current directory, relative to
	// its root.
	Chdir(path string) error

	// CheckCall runs argv to completion inside the session, returning
	// *ExitError on non-zero exit or *NotRunnableError if argv[0] is
	// absent.
	CheckCall(ctx context.Context, argv []string, opts RunOpts) error

	// RunWithTee runs argv, echoing combined output live via the tee
	// writer (if non-nil) while also capturing it into an in-memory line
	// buffer. This is the adaptive loop's sole entry point for invoking
	// build-system commands, so that log capture is invariant regardless
	// of session variant.
	RunWithTee(ctx context.Context, argv []string, opts RunOpts, tee io.Writer) (TeeResult, error)

	// ExternalPath returns the host-visible path corresponding to p,
	// which must be inside the session. Identity on plain sessions.
	ExternalPath(p string) (string, error)

	// SetupFromDirectory copies a working tree into the session, rooted
	// at subdir (or the session root if subdir is empty). It returns the
	// external and internal paths to the copy.
	SetupFromDirectory(path, subdir string) (externalPath, internalPath string, err error)

	// SetupFromVCS populates the session from a version-control tree
	// snapshot, analogous to SetupFromDirectory but sourced from tree's
	// Export primitive.
	SetupFromVCS(tree vcssnap.Tree, subdir string) (externalPath, internalPath string, err error)

	// CreateHome ensures a writable home directory exists for the
	// invoking user.
	CreateHome() (string, error)

	// IsTemporary reports whether Close will discard the session's
	// filesystem state.
	IsTemporary() bool
}

// exclusivity enforces "at most one session per process may be open" for
// variants that require exclusive process-wide state (chroot, unshare).
// Plain sessions do not need exclusive state and are exempt, mirroring the
// narrower locking gps's SourceMgr applies only around its own cache
// directory rather than the whole process.
//
// The in-process mutex alone only stops two goroutines of the same process
// from racing; it says nothing about a second ogni invocation running
// concurrently against the same chroot or unshare base tarball. processLock
// closes that gap with a real advisory file lock, the way gps itself
// vendors go-flock for its SourceMgr cache-directory lock.
var exclusivity struct {
	mu   sync.Mutex
	open bool
}

var processLock = flock.NewFlock(filepath.Join(os.TempDir(), "ognibuild-session.lock"))

func acquireExclusive() error {
	exclusivity.mu.Lock()
	defer exclusivity.mu.Unlock()
	if exclusivity.open {
		return ErrSessionAlreadyOpen
	}
	locked, err := processLock.TryLock()
	if err != nil {
		return errors.Wrap(err, "acquiring cross-process session lock")
	}
	if !locked {
		return ErrSessionAlreadyOpen
	}
	exclusivity.open = true
	return nil
}

func releaseExclusive() {
	exclusivity.mu.Lock()
	defer exclusivity.mu.Unlock()
	exclusivity.open = false
	_ = processLock.Unlock()
}

// lifetime is embedded by each Session variant to provide a context bound
// to the session's own open/close span. mergedContext combines it with the
// caller's per-call context via constext, so a Close racing a running
// RunWithTee call aborts the child even when the caller passed
// context.Background() with no cancellation of its own. gps vendors
// constext for the equivalent problem: merging a call-scoped context with
// the SourceMgr's longer-lived one in its monitoredCmd plumbing.
type lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newLifetime() lifetime {
	ctx, cancel := context.WithCancel(context.Background())
	return lifetime{ctx: ctx, cancel: cancel}
}

func (l *lifetime) stop() {
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *lifetime) mergedContext(callCtx context.Context) (context.Context, context.CancelFunc) {
	if l.ctx == nil {
		return context.WithCancel(callCtx)
	}
	return constext.Cons(callCtx, l.ctx)
}

// monitoredCmd wraps an *exec.Cmd, killing it if neither stdout nor stderr
// has shown activity for longer than timeout, or if ctx is cancelled.
// Adapted from gps's cmd.go.
type monitoredCmd struct {
	cmd     *exec.Cmd
	timeout time.Duration
	ctx     context.Context
	out     *activityBuffer
}

func newMonitoredCmd(ctx context.Context, cmd *exec.Cmd, timeout time.Duration, tee io.Writer) *monitoredCmd {
	out := newActivityBuffer(tee)
	cmd.Stdout, cmd.Stderr = out, out
	return &monitoredCmd{cmd: cmd, timeout: timeout, ctx: ctx, out: out}
}

// run waits for the command, killing it on inactivity timeout or context
// cancellation. It reports whether the kill was due to a timeout.
func (c *monitoredCmd) run() (timedOut bool, err error) {
	done := make(chan error, 1)
	if startErr := c.cmd.Start(); startErr != nil {
		return false, startErr
	}
	go func() { done <- c.cmd.Wait() }()

	if c.timeout <= 0 {
		select {
		case err := <-done:
			return false, err
		case <-c.ctx.Done():
			_ = c.cmd.Process.Kill()
			<-done
			return false, c.ctx.Err()
		}
	}

	ticker := time.NewTicker(c.timeout)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if time.Since(c.out.lastActivity()) >= c.timeout {
				_ = c.cmd.Process.Kill()
				<-done
				return true, errors.Errorf("no activity for %s", c.timeout)
			}
		case <-c.ctx.Done():
			_ = c.cmd.Process.Kill()
			<-done
			return false, c.ctx.Err()
		case err := <-done:
			return false, err
		}
	}
}

// activityBuffer is an io.Writer that records the time of its last Write
// alongside the bytes written, and tees every write to an optional
// live-output sink while also splitting the stream into complete lines.
type activityBuffer struct {
	mu        sync.Mutex
	buf       *bytes.Buffer
	lastStamp time.Time
	tee       io.Writer
	lineBuf   []byte
	lines     []string
}

func newActivityBuffer(tee io.Writer) *activityBuffer {
	return &activityBuffer{buf: bytes.NewBuffer(nil), tee: tee, lastStamp: time.Now()}
}

func (b *activityBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastStamp = time.Now()
	if b.tee != nil {
		_, _ = b.tee.Write(p)
	}
	b.buf.Write(p)
	b.lineBuf = append(b.lineBuf, p...)
	for {
		i := bytes.IndexByte(b.lineBuf, '\n')
		if i < 0 {
			break
		}
		b.lines = append(b.lines, string(b.lineBuf[:i]))
		b.lineBuf = b.lineBuf[i+1:]
	}
	return len(p), nil
}

func (b *activityBuffer) lastActivity() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastStamp
}

// splitLines returns every line observed so far, including a trailing
// partial line with no terminating newline (so log capture is lossless:
// concatenating the returned lines with "\n" reconstructs the original
// byte stream modulo the final newline).
func (b *activityBuffer) splitLines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := append([]string(nil), b.lines...)
	if len(b.lineBuf) > 0 {
		lines = append(lines, string(b.lineBuf))
	}
	return lines
}
