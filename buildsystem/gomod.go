package buildsystem

import (
	"context"
	"io"
	"os"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/session"
	"golang.org/x/mod/modfile"
)

// GoModules adapts a Go-modules project, detected by the presence of a
// go.mod at its subpath.
type GoModules struct {
	subpath string
}

func NewGoModules(subpath string) *GoModules { return &GoModules{subpath: subpath} }

var _ BuildSystem = (*GoModules)(nil)

func (g *GoModules) Name() string    { return "golang" }
func (g *GoModules) Subpath() string { return g.subpath }

func (g *GoModules) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, g.subpath, []string{"go", "clean", "./..."}, tee)
}

func (g *GoModules) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, g.subpath, []string{"go", "build", "./..."}, tee)
}

func (g *GoModules) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, g.subpath, []string{"go", "install", "./..."}, tee)
}

func (g *GoModules) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, g.subpath, []string{"go", "test", "./..."}, tee)
}

func (g *GoModules) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, g.subpath, []string{"go", "mod", "vendor"}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	return "", res, &DistNoTarballError{BuildSystem: g.Name()}
}

// GetDeclaredDependencies parses the module's go.mod with
// golang.org/x/mod/modfile and reports its require directives, splitting
// indirect requirements into CategoryBuild and direct ones into
// CategoryRuntime.
func (g *GoModules) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	path, err := manifestPath(sess, g.subpath, "go.mod")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrNotImplemented
	}
	mf, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, ErrNotImplemented
	}
	var deps []Dependency
	for _, r := range mf.Require {
		req, err := requirement.NewGoPackage(r.Mod.Path, r.Mod.Version)
		if err != nil {
			continue
		}
		category := CategoryRuntime
		if r.Indirect {
			category = CategoryBuild
		}
		deps = append(deps, Dependency{Category: category, Req: req})
	}
	return deps, nil
}

func (g *GoModules) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}
