package buildsystem

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/session"
)

// RubyGems adapts a Ruby project managed with Bundler, detected by a
// Gemfile and/or a *.gemspec at its subpath.
type RubyGems struct {
	subpath string
}

func NewRubyGems(subpath string) *RubyGems { return &RubyGems{subpath: subpath} }

var _ BuildSystem = (*RubyGems)(nil)

func (r *RubyGems) Name() string    { return "rubygems" }
func (r *RubyGems) Subpath() string { return r.subpath }

func (r *RubyGems) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, r.subpath, []string{"rake", "clean"}, tee)
}

func (r *RubyGems) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, r.subpath, []string{"rake", "build"}, tee)
}

func (r *RubyGems) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	argv := []string{"bundle", "install"}
	if scope == "user" {
		argv = append(argv, "--path", "vendor/bundle")
	}
	return recipe(ctx, sess, r.subpath, argv, tee)
}

func (r *RubyGems) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, r.subpath, []string{"rake", "test"}, tee)
}

func (r *RubyGems) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, r.subpath, []string{"gem", "build"}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	external, err := sess.ExternalPath(r.subpath)
	if err != nil {
		return "", res, err
	}
	artifact, ferr := findNewestMatching(external, ".gem")
	if ferr != nil {
		return "", res, &DistNoTarballError{BuildSystem: r.Name()}
	}
	return artifact, res, nil
}

func (r *RubyGems) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	path, err := manifestPath(sess, r.subpath, "Gemfile")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrNotImplemented
	}
	defer f.Close()

	var deps []Dependency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "gem ") {
			continue
		}
		fields := strings.SplitN(strings.TrimPrefix(line, "gem "), ",", 2)
		name := strings.Trim(strings.TrimSpace(fields[0]), `'"`)
		if name == "" {
			continue
		}
		version := ""
		if len(fields) > 1 {
			version = strings.Trim(strings.TrimSpace(fields[1]), `'"`)
			version = stripSemverRange(version)
		}
		req, err := requirement.NewRubyGem(name, version)
		if err == nil {
			deps = append(deps, Dependency{Category: CategoryRuntime, Req: req})
		}
	}
	return deps, nil
}

func (r *RubyGems) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}
