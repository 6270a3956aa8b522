package buildsystem

import (
	"context"
	"io"

	"github.com/jelmer/ognibuild/session"
)

// CMake adapts a CMake-based project. It drives an out-of-tree "build"
// directory, the conventional CMake layout.
type CMake struct {
	subpath string
}

func NewCMake(subpath string) *CMake { return &CMake{subpath: subpath} }

var _ BuildSystem = (*CMake)(nil)

func (c *CMake) Name() string    { return "cmake" }
func (c *CMake) Subpath() string { return c.subpath }

func (c *CMake) configure(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, c.subpath, []string{"cmake", "-S", ".", "-B", "build"}, tee)
}

func (c *CMake) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, c.subpath, []string{"cmake", "--build", "build", "--target", "clean"}, tee)
}

func (c *CMake) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	if res, err := c.configure(ctx, sess, tee); err != nil || !res.Succeeded() {
		return res, err
	}
	return recipe(ctx, sess, c.subpath, []string{"cmake", "--build", "build"}, tee)
}

func (c *CMake) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, c.subpath, []string{"cmake", "--install", "build"}, tee)
}

func (c *CMake) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, c.subpath, []string{"ctest", "--test-dir", "build"}, tee)
}

func (c *CMake) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, c.subpath, []string{"cmake", "--build", "build", "--target", "package_source"}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	return "", res, &DistNoTarballError{BuildSystem: c.Name()}
}

func (c *CMake) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	return nil, ErrNotImplemented
}

func (c *CMake) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}

// Meson adapts a Meson/Ninja-based project.
type Meson struct {
	subpath string
}

func NewMeson(subpath string) *Meson { return &Meson{subpath: subpath} }

var _ BuildSystem = (*Meson)(nil)

func (m *Meson) Name() string    { return "meson" }
func (m *Meson) Subpath() string { return m.subpath }

func (m *Meson) ensureConfigured(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, m.subpath, []string{"meson", "setup", "build"}, tee)
}

func (m *Meson) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, m.subpath, []string{"ninja", "-C", "build", "clean"}, tee)
}

func (m *Meson) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	if res, err := m.ensureConfigured(ctx, sess, tee); err != nil || !res.Succeeded() {
		return res, err
	}
	return recipe(ctx, sess, m.subpath, []string{"ninja", "-C", "build"}, tee)
}

func (m *Meson) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, m.subpath, []string{"ninja", "-C", "build", "install"}, tee)
}

func (m *Meson) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, m.subpath, []string{"meson", "test", "-C", "build"}, tee)
}

func (m *Meson) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, m.subpath, []string{"meson", "dist", "-C", "build", "--no-tests"}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	return "", res, &DistNoTarballError{BuildSystem: m.Name()}
}

func (m *Meson) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	return nil, ErrNotImplemented
}

func (m *Meson) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}

// Make adapts a bare Makefile-driven project, the fallback ecosystem when
// no more specific generator (autoconf, CMake, Meson) is present.
type Make struct {
	subpath string
}

func NewMake(subpath string) *Make { return &Make{subpath: subpath} }

var _ BuildSystem = (*Make)(nil)

func (mk *Make) Name() string    { return "make" }
func (mk *Make) Subpath() string { return mk.subpath }

func (mk *Make) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, mk.subpath, []string{"make", "clean"}, tee)
}

func (mk *Make) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, mk.subpath, []string{"make"}, tee)
}

func (mk *Make) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	argv := []string{"make", "install"}
	if scope == "user" {
		argv = append(argv, "PREFIX=$HOME/.local")
	}
	return recipe(ctx, sess, mk.subpath, argv, tee)
}

func (mk *Make) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, mk.subpath, []string{"make", "check"}, tee)
}

func (mk *Make) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, mk.subpath, []string{"make", "dist"}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	return "", res, &DistNoTarballError{BuildSystem: mk.Name()}
}

func (mk *Make) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	return nil, ErrNotImplemented
}

func (mk *Make) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}
