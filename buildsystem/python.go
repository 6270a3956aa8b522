package buildsystem

import (
	"context"
	"io"
	"os"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/session"
	"github.com/pelletier/go-toml"
)

// SetupPy adapts a classic distutils/setuptools project (setup.py, possibly
// alongside a pyproject.toml used only for build-system declaration).
type SetupPy struct {
	subpath string
}

func NewSetupPy(subpath string) *SetupPy { return &SetupPy{subpath: subpath} }

var _ BuildSystem = (*SetupPy)(nil)

func (p *SetupPy) Name() string    { return "setup.py" }
func (p *SetupPy) Subpath() string { return p.subpath }

func (p *SetupPy) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, p.subpath, []string{"python3", "setup.py", "clean", "-a"}, tee)
}

func (p *SetupPy) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, p.subpath, []string{"python3", "setup.py", "build"}, tee)
}

func (p *SetupPy) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	argv := []string{"python3", "setup.py", "install"}
	if scope == "user" {
		argv = append(argv, "--user")
	}
	return recipe(ctx, sess, p.subpath, argv, tee)
}

func (p *SetupPy) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, p.subpath, []string{"python3", "setup.py", "test"}, tee)
}

func (p *SetupPy) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, p.subpath, []string{"python3", "setup.py", "sdist", "-d", targetDir}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	artifact, ferr := findNewestMatching(targetDir, ".tar.gz")
	if ferr != nil {
		return "", res, &DistNoTarballError{BuildSystem: p.Name()}
	}
	return artifact, res, nil
}

func (p *SetupPy) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	path, err := manifestPath(sess, p.subpath, "pyproject.toml")
	if err != nil {
		return nil, ErrNotImplemented
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrNotImplemented
	}
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, ErrNotImplemented
	}
	project, ok := tree.Get("project").(*toml.Tree)
	if !ok {
		return nil, ErrNotImplemented
	}
	raw, ok := project.Get("dependencies").([]interface{})
	if !ok {
		return nil, ErrNotImplemented
	}
	var deps []Dependency
	for _, item := range raw {
		name, ok := item.(string)
		if !ok {
			continue
		}
		req, err := requirement.NewPythonPackage(pep508Name(name), "")
		if err == nil {
			deps = append(deps, Dependency{Category: CategoryRuntime, Req: req})
		}
	}
	return deps, nil
}

func (p *SetupPy) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}

func pep508Name(spec string) string {
	for i, c := range spec {
		switch c {
		case '=', '>', '<', '!', '~', ' ', '[', ';':
			return spec[:i]
		}
	}
	return spec
}

func findNewestMatching(dir, suffix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		name := e.Name()
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return dir + "/" + name, nil
		}
	}
	return "", os.ErrNotExist
}

// PyProject adapts a PEP 517 project built via `python3 -m build` against a
// pyproject.toml, without a setup.py entry point.
type PyProject struct {
	subpath string
}

func NewPyProject(subpath string) *PyProject { return &PyProject{subpath: subpath} }

var _ BuildSystem = (*PyProject)(nil)

func (p *PyProject) Name() string    { return "pyproject" }
func (p *PyProject) Subpath() string { return p.subpath }

func (p *PyProject) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, p.subpath, []string{"rm", "-rf", "build", "dist"}, tee)
}

func (p *PyProject) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, p.subpath, []string{"python3", "-m", "build", "--no-isolation"}, tee)
}

func (p *PyProject) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	argv := []string{"python3", "-m", "pip", "install", "."}
	if scope == "user" {
		argv = append(argv, "--user")
	}
	return recipe(ctx, sess, p.subpath, argv, tee)
}

func (p *PyProject) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, p.subpath, []string{"python3", "-m", "pytest"}, tee)
}

func (p *PyProject) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, p.subpath, []string{"python3", "-m", "build", "--sdist", "--outdir", targetDir}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	artifact, ferr := findNewestMatching(targetDir, ".tar.gz")
	if ferr != nil {
		return "", res, &DistNoTarballError{BuildSystem: p.Name()}
	}
	return artifact, res, nil
}

func (p *PyProject) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	sp := &SetupPy{subpath: p.subpath}
	return sp.GetDeclaredDependencies(ctx, sess)
}

func (p *PyProject) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}
