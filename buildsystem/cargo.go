package buildsystem

import (
	"context"
	"io"
	"os"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/session"
	"github.com/pelletier/go-toml"
)

// Cargo adapts a Rust crate built with Cargo.
type Cargo struct {
	subpath string
}

func NewCargo(subpath string) *Cargo { return &Cargo{subpath: subpath} }

var _ BuildSystem = (*Cargo)(nil)

func (c *Cargo) Name() string    { return "cargo" }
func (c *Cargo) Subpath() string { return c.subpath }

func (c *Cargo) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, c.subpath, []string{"cargo", "clean"}, tee)
}

func (c *Cargo) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, c.subpath, []string{"cargo", "build", "--release"}, tee)
}

func (c *Cargo) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	argv := []string{"cargo", "install", "--path", "."}
	if scope == "user" {
		argv = append(argv, "--root", "~/.cargo")
	}
	return recipe(ctx, sess, c.subpath, argv, tee)
}

func (c *Cargo) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, c.subpath, []string{"cargo", "test"}, tee)
}

func (c *Cargo) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, c.subpath, []string{"cargo", "package", "--no-verify"}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	external, err := sess.ExternalPath(c.subpath)
	if err != nil {
		return "", res, err
	}
	crate, err := findCrateTarball(external)
	if err != nil {
		return "", res, &DistNoTarballError{BuildSystem: c.Name()}
	}
	return crate, res, nil
}

func (c *Cargo) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	path, err := manifestPath(sess, c.subpath, "Cargo.toml")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrNotImplemented
	}
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, ErrNotImplemented
	}

	var deps []Dependency
	addFrom := func(key string, category DependencyCategory) {
		sub, ok := tree.Get(key).(*toml.Tree)
		if !ok {
			return
		}
		for _, name := range sub.Keys() {
			version, _ := sub.Get(name).(string)
			req, err := requirement.NewRustCrate(name, versionFromCargoConstraint(version), nil)
			if err == nil {
				deps = append(deps, Dependency{Category: category, Req: req})
			}
		}
	}
	addFrom("dependencies", CategoryRuntime)
	addFrom("dev-dependencies", CategoryDev)
	addFrom("build-dependencies", CategoryBuild)
	return deps, nil
}

func (c *Cargo) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}

func versionFromCargoConstraint(raw string) string {
	for len(raw) > 0 && (raw[0] == '^' || raw[0] == '~' || raw[0] == '=' || raw[0] == ' ') {
		raw = raw[1:]
	}
	return raw
}

func findCrateTarball(dir string) (string, error) {
	entries, err := os.ReadDir(dir + "/target/package")
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if len(e.Name()) > 7 && e.Name()[len(e.Name())-7:] == ".crate" {
			return dir + "/target/package/" + e.Name(), nil
		}
	}
	return "", os.ErrNotExist
}
