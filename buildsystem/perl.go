package buildsystem

import (
	"context"
	"io"
	"os"
	"regexp"

	"github.com/jelmer/ognibuild/requirement"
	"github.com/jelmer/ognibuild/session"
)

// Perl adapts a Perl distribution built with either ExtUtils::MakeMaker
// (Makefile.PL) or Module::Build (Build.PL); both present the same recipe
// shape to callers once the initial Makefile/Build script has been
// generated.
type Perl struct {
	subpath    string
	moduleBuld bool
}

func NewPerlMakeMaker(subpath string) *Perl { return &Perl{subpath: subpath} }
func NewPerlModuleBuild(subpath string) *Perl {
	return &Perl{subpath: subpath, moduleBuld: true}
}

var _ BuildSystem = (*Perl)(nil)

func (p *Perl) Name() string {
	if p.moduleBuld {
		return "perl-build"
	}
	return "perl-makemaker"
}
func (p *Perl) Subpath() string { return p.subpath }

func (p *Perl) generate(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	if p.moduleBuld {
		return recipe(ctx, sess, p.subpath, []string{"perl", "Build.PL"}, tee)
	}
	return recipe(ctx, sess, p.subpath, []string{"perl", "Makefile.PL"}, tee)
}

func (p *Perl) driver() string {
	if p.moduleBuld {
		return "./Build"
	}
	return "make"
}

func (p *Perl) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	if res, err := p.generate(ctx, sess, tee); err != nil || !res.Succeeded() {
		return res, err
	}
	return recipe(ctx, sess, p.subpath, []string{p.driver(), "clean"}, tee)
}

func (p *Perl) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	if res, err := p.generate(ctx, sess, tee); err != nil || !res.Succeeded() {
		return res, err
	}
	return recipe(ctx, sess, p.subpath, []string{p.driver()}, tee)
}

func (p *Perl) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	argv := []string{p.driver(), "install"}
	if scope == "user" {
		argv = append(argv, "INSTALL_BASE=~/perl5")
	}
	return recipe(ctx, sess, p.subpath, argv, tee)
}

func (p *Perl) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, p.subpath, []string{p.driver(), "test"}, tee)
}

func (p *Perl) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, p.subpath, []string{p.driver(), "dist"}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	external, err := sess.ExternalPath(p.subpath)
	if err != nil {
		return "", res, err
	}
	artifact, ferr := findNewestMatching(external, ".tar.gz")
	if ferr != nil {
		return "", res, &DistNoTarballError{BuildSystem: p.Name()}
	}
	return artifact, res, nil
}

var perlRequireRe = regexp.MustCompile(`(?m)^(?:requires|test_requires|build_requires)\s*\(?\s*['"]([\w:]+)['"]\s*(?:,\s*['"]?([0-9.]*)['"]?)?`)

// GetDeclaredDependencies makes a best-effort pass over Build.PL/Makefile.PL
// for requires(...) calls, the Module::Build::Tiny convention; most
// MakeMaker-only distributions will report ErrNotImplemented here since
// their dependencies are expressed as Perl data structures we do not
// evaluate.
func (p *Perl) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	name := "Makefile.PL"
	if p.moduleBuld {
		name = "Build.PL"
	}
	path, err := manifestPath(sess, p.subpath, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrNotImplemented
	}
	matches := perlRequireRe.FindAllStringSubmatch(string(data), -1)
	if matches == nil {
		return nil, ErrNotImplemented
	}
	var deps []Dependency
	for _, m := range matches {
		req, err := requirement.NewPerlModule(m[1], m[2])
		if err == nil {
			deps = append(deps, Dependency{Category: CategoryRuntime, Req: req})
		}
	}
	return deps, nil
}

func (p *Perl) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}
