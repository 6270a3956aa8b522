package resolver

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/jelmer/ognibuild/requirement"
)

// Apt resolves Requirements it recognises to Debian package names via the
// local apt-file Contents index, without performing any network access
// itself (resolution is a local lookup; the installer performs the actual
// apt-get invocation and that is where network use occurs).
type Apt struct {
	// Lookup maps "<family>:<key>" (e.g. "binary:gpg") to the Debian
	// package that provides it, pre-seeded by the caller and consulted
	// before any live apt-file search.
	Lookup map[string]string

	cacheMu sync.Mutex
	cache   map[string]string // memoizes live lookups alongside Lookup
}

func NewApt(lookup map[string]string) *Apt {
	if lookup == nil {
		lookup = map[string]string{}
	}
	return &Apt{Lookup: lookup, cache: map[string]string{}}
}

var _ Resolver = (*Apt)(nil)

func (a *Apt) Name() string { return "apt" }

func (a *Apt) aptPackageFor(req requirement.Requirement) (string, bool) {
	if ap, ok := req.(requirement.AptPackage); ok {
		return ap.Package, true
	}
	key := string(req.Family()) + ":" + req.Key()
	if pkg, ok := a.Lookup[key]; ok {
		return pkg, true
	}

	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	if pkg, ok := a.cache[key]; ok {
		return pkg, pkg != ""
	}
	pkg, ok := a.searchAptFile(req)
	if a.cache == nil {
		a.cache = map[string]string{}
	}
	a.cache[key] = pkg
	return pkg, ok
}

// searchAptFile shells out to `apt-file search` against the local Contents
// index to find the package providing a binary, header, or pkg-config
// module a Problem named but that the caller's static Lookup doesn't cover
// (spec.md §8 scenario 2: a missing `gpg` binary resolves to the `gnupg`
// apt package this way).
func (a *Apt) searchAptFile(req requirement.Requirement) (string, bool) {
	pattern, ok := aptFilePattern(req)
	if !ok {
		return "", false
	}
	out, err := exec.Command("apt-file", "search", "--regexp", pattern).Output()
	if err != nil {
		return "", false
	}
	return parseAptFileSearch(out)
}

// aptFilePattern builds the `apt-file search --regexp` pattern that would
// match the file a Requirement implies providing: a (s)bin/ executable, a
// header anywhere under /usr/include, or a pkg-config .pc file.
func aptFilePattern(req requirement.Requirement) (string, bool) {
	switch r := req.(type) {
	case requirement.Binary:
		return `(^|/)s?bin/` + regexp.QuoteMeta(r.Name) + `$`, true
	case requirement.Header:
		return regexp.QuoteMeta(r.Name) + `$`, true
	case requirement.PkgConfig:
		return `pkgconfig/` + regexp.QuoteMeta(r.Module) + `\.pc$`, true
	default:
		return "", false
	}
}

// parseAptFileSearch extracts the first package name from `apt-file
// search`'s "package: path" output lines.
func parseAptFileSearch(out []byte) (string, bool) {
	line := strings.SplitN(strings.TrimSpace(string(out)), "\n", 2)[0]
	pkg, _, ok := strings.Cut(line, ":")
	if !ok || pkg == "" {
		return "", false
	}
	return strings.TrimSpace(pkg), true
}

func (a *Apt) Resolve(req requirement.Requirement) (Package, bool) {
	pkg, ok := a.aptPackageFor(req)
	if !ok {
		return Package{}, false
	}
	return Package{Name: pkg}, true
}

func (a *Apt) InstallCmd(req requirement.Requirement) ([]string, bool) {
	pkg, ok := a.aptPackageFor(req)
	if !ok {
		return nil, false
	}
	return []string{"apt-get", "install", "-y", pkg}, true
}

func (a *Apt) Explain(reqs []requirement.Requirement) string {
	out := ""
	for _, req := range reqs {
		if pkg, ok := a.aptPackageFor(req); ok {
			out += fmt.Sprintf("install apt package %s to satisfy %s\n", pkg, req)
		}
	}
	return out
}

// aptCacheAvailable reports whether apt-cache is present on PATH, used by
// callers deciding whether to include Apt in a composite resolver at all.
func aptCacheAvailable() bool {
	_, err := exec.LookPath("apt-cache")
	return err == nil
}

// AptAvailable is exported for use by cmd/ogni when assembling the default
// resolver composite (§6: --resolver auto picks apt only where usable).
var AptAvailable = aptCacheAvailable
