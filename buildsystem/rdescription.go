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

// RDescription adapts an R package built from a DESCRIPTION file, the
// CRAN/Bioconductor packaging convention.
type RDescription struct {
	subpath string
}

func NewRDescription(subpath string) *RDescription { return &RDescription{subpath: subpath} }

var _ BuildSystem = (*RDescription)(nil)

func (r *RDescription) Name() string    { return "r-description" }
func (r *RDescription) Subpath() string { return r.subpath }

func (r *RDescription) Clean(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, r.subpath, []string{"rm", "-rf", "..Rcheck"}, tee)
}

func (r *RDescription) Build(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, r.subpath, []string{"R", "CMD", "build", "--no-build-vignettes", "."}, tee)
}

func (r *RDescription) Install(ctx context.Context, sess session.Session, scope string, tee io.Writer) (ActionResult, error) {
	argv := []string{"R", "CMD", "INSTALL", "."}
	if scope == "user" {
		argv = append(argv, "--library=~/R/library")
	}
	return recipe(ctx, sess, r.subpath, argv, tee)
}

func (r *RDescription) Test(ctx context.Context, sess session.Session, tee io.Writer) (ActionResult, error) {
	return recipe(ctx, sess, r.subpath, []string{"R", "CMD", "check", "."}, tee)
}

func (r *RDescription) Dist(ctx context.Context, sess session.Session, targetDir string, tee io.Writer) (string, ActionResult, error) {
	res, err := recipe(ctx, sess, r.subpath, []string{"R", "CMD", "build", "."}, tee)
	if err != nil || !res.Succeeded() {
		return "", res, err
	}
	external, err := sess.ExternalPath(r.subpath)
	if err != nil {
		return "", res, err
	}
	artifact, ferr := findNewestMatching(external, ".tar.gz")
	if ferr != nil {
		return "", res, &DistNoTarballError{BuildSystem: r.Name()}
	}
	return artifact, res, nil
}

// GetDeclaredDependencies parses the DESCRIPTION file's Imports/Depends/
// Suggests fields, a comma-separated list optionally followed by a
// parenthesised version constraint, e.g. "methods (>= 1.2.0)".
func (r *RDescription) GetDeclaredDependencies(ctx context.Context, sess session.Session) ([]Dependency, error) {
	path, err := manifestPath(sess, r.subpath, "DESCRIPTION")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrNotImplemented
	}

	fields := parseDebianControlStyle(string(data))
	var deps []Dependency
	addFrom := func(key string, category DependencyCategory) {
		raw, ok := fields[key]
		if !ok {
			return
		}
		for _, entry := range strings.Split(raw, ",") {
			name, version := parseRDependencyEntry(entry)
			if name == "" || name == "R" {
				continue
			}
			req, err := requirement.NewRPackage(name, version)
			if err == nil {
				deps = append(deps, Dependency{Category: category, Req: req})
			}
		}
	}
	addFrom("Imports", CategoryRuntime)
	addFrom("Depends", CategoryRuntime)
	addFrom("Suggests", CategoryTest)
	addFrom("LinkingTo", CategoryBuild)
	return deps, nil
}

func (r *RDescription) GetDeclaredOutputs(ctx context.Context, sess session.Session) ([]Output, error) {
	return nil, ErrNotImplemented
}

func parseRDependencyEntry(entry string) (name, version string) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return "", ""
	}
	if idx := strings.Index(entry, "("); idx != -1 {
		name = strings.TrimSpace(entry[:idx])
		constraint := strings.Trim(entry[idx+1:], ") ")
		version = stripSemverRange(strings.TrimPrefix(constraint, ">= "))
		return name, version
	}
	return entry, ""
}

// parseDebianControlStyle parses an RFC 2822-ish, Debian-control-style
// key/value file with line-folded continuations, the format DESCRIPTION
// files and debian/control both use.
func parseDebianControlStyle(data string) map[string]string {
	fields := map[string]string{}
	var currentKey string
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && currentKey != "" {
			fields[currentKey] += " " + strings.TrimSpace(line)
			continue
		}
		idx := strings.Index(line, ":")
		if idx == -1 {
			continue
		}
		currentKey = strings.TrimSpace(line[:idx])
		fields[currentKey] = strings.TrimSpace(line[idx+1:])
	}
	return fields
}
