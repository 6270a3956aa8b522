package buildsystem

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/session"
)

// NPM adapts a Node.js project built with npm, detected by package.json.
type NPM struct {
	subpath string
}

func NewNPM(subpath string) *NPM { return &NPM{subpath: subpath} }

var _ BuildSystem = (*NPM)(nil)

func (n *NPM) Name() string    { return "npm" }
func (n *NPM) Subpath() string { return n.subpath }

func (n *NPM) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, n.subpath, []string{"npm", "run", "clean", "--if-present"}, tee)
}

func (n *NPM) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, n.subpath, []string{"npm", "run", "build", "--if-present"}, tee)
}

func (n *NPM) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	argv := []string{"npm", "install"}
	if scope == "system" {
		argv = append(argv, "--global")
	}
	return recipe(ctx, sess, n.subpath, argv, tee)
}

func (n *NPM) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, n.subpath, []string{"npm", "test"}, tee)
}

func (n *NPM) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, n.subpath, []string{"npm", "pack", "--pack-destination", targetDir}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	artifact, ferr := findNewestMatching(targetDir, ".tgz")
	if ferr != nil {
		return "", res, &DistNoTarballError{BuildSystem: n.Name()}
	}
	return artifact, res, nil
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (n *NPM) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	path, err := manifestPath(sess, n.subpath, "package.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrNotImplemented
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, ErrNotImplemented
	}
	var deps []Dependency
	for name, version := range pkg.Dependencies {
		req, err := requirement.NewNodePackage(name, stripSemverRange(version))
		if err == nil {
			deps = append(deps, Dependency{Category: CategoryRuntime, Req: req})
		}
	}
	for name, version := range pkg.DevDependencies {
		req, err := requirement.NewNodePackage(name, stripSemverRange(version))
		if err == nil {
			deps = append(deps, Dependency{Category: CategoryDev, Req: req})
		}
	}
	return deps, nil
}

func stripSemverRange(raw string) string {
	for len(raw) > 0 && (raw[0] == '^' || raw[0] == '~' || raw[0] == '=' || raw[0] == '>' || raw[0] == ' ') {
		raw = raw[1:]
	}
	return raw
}

func (n *NPM) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}
