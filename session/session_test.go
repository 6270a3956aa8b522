package session

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPlainSessionSetupFromDirectoryRoundTrip(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "hello.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewPlainSession("")
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	external, internal, err := s.SetupFromDirectory(src, "proj")
	if err != nil {
		t.Fatal(err)
	}
	if external != internal {
		t.Fatalf("plain session external/internal paths should match: %s vs %s", external, internal)
	}

	if err := s.Chdir("proj"); err != nil {
		t.Fatal(err)
	}
	got, err := s.ExternalPath(".")
	if err != nil {
		t.Fatal(err)
	}
	if got != external {
		t.Fatalf("ExternalPath(\".\") after Chdir = %q, want %q", got, external)
	}

	if _, err := os.Stat(filepath.Join(external, "hello.txt")); err != nil {
		t.Fatalf("expected copied file: %v", err)
	}
}

func TestRunWithTeeCapturesLossless(t *testing.T) {
	s := NewPlainSession("")
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	res, err := s.RunWithTee(context.Background(), []string{"printf", "a\\nb\\nc"}, RunOpts{}, ioutil.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("exit code = %d", res.ExitCode)
	}
	want := []string{"a", "b", "c"}
	if len(res.Lines) != len(want) {
		t.Fatalf("lines = %v, want %v", res.Lines, want)
	}
	for i := range want {
		if res.Lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, res.Lines[i], want[i])
		}
	}
}

func TestCheckCallNonZeroExit(t *testing.T) {
	s := NewPlainSession("")
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	err := s.CheckCall(context.Background(), []string{"sh", "-c", "exit 3"}, RunOpts{})
	if err == nil {
		t.Fatal("expected non-zero exit to be reported")
	}
	exitErr, ok := err.(*ExitError)
	if !ok {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", exitErr.ExitCode)
	}
}

func TestNotRunnable(t *testing.T) {
	s := NewPlainSession("")
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_, err := s.RunWithTee(context.Background(), []string{"this-binary-does-not-exist-anywhere"}, RunOpts{}, nil)
	if err == nil {
		t.Fatal("expected NotRunnableError")
	}
	if _, ok := err.(*NotRunnableError); !ok {
		t.Fatalf("expected *NotRunnableError, got %T: %v", err, err)
	}
}

func TestOperationsOnClosedSessionFail(t *testing.T) {
	s := NewPlainSession("")
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Chdir("x"); err != ErrNoSessionOpen {
		t.Fatalf("expected ErrNoSessionOpen, got %v", err)
	}
	if _, err := s.CreateHome(); err != ErrNoSessionOpen {
		t.Fatalf("expected ErrNoSessionOpen, got %v", err)
	}
}

func TestLifetimeMergedContextCancelsOnStop(t *testing.T) {
	lt := newLifetime()
	merged, cancel := lt.mergedContext(context.Background())
	defer cancel()

	lt.stop()
	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("expected merged context to be cancelled once the session lifetime stops")
	}
}

func TestLifetimeMergedContextCancelsOnCallerContext(t *testing.T) {
	lt := newLifetime()
	defer lt.stop()

	callCtx, callCancel := context.WithCancel(context.Background())
	merged, cancel := lt.mergedContext(callCtx)
	defer cancel()

	callCancel()
	select {
	case <-merged.Done():
	case <-time.After(time.Second):
		t.Fatal("expected merged context to be cancelled once the caller's context is cancelled")
	}
}

func TestChrootExclusivity(t *testing.T) {
	a := NewChrootSession("example")
	if err := a.Open(); err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	b := NewChrootSession("example2")
	if err := b.Open(); err != ErrSessionAlreadyOpen {
		t.Fatalf("expected ErrSessionAlreadyOpen, got %v", err)
	}
}
