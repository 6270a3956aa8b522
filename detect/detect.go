// Package detect walks a working tree and reports the ordered list of
// BuildSystems present (§4.H of the core spec), based on sentinel files.
// Grounded on dep's context.go findProjectRoot and on gps's deduce.go,
// both of which classify a directory by probing for marker files in a
// fixed priority order.
package detect

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/jelmer/ognibuild/buildsystem"
	"github.com/karrick/godirwalk"
)

// ErrNoBuildToolsFound is returned when no sentinel file is recognised
// anywhere under the root.
var ErrNoBuildToolsFound = noBuildToolsError{}

type noBuildToolsError struct{}

func (noBuildToolsError) Error() string { return "no recognised build tools found" }

// sentinel binds a marker filename to a priority (lower runs first) and a
// constructor for the BuildSystem it identifies. Order reflects "generator
// before generated": meson before a bare Makefile, CMake before Make.
// There is no autoconf (configure.ac) sentinel; an autoconf tree is
// detected only through its Makefile, if one is present.
type sentinel struct {
	name     string
	priority int
	build    func(subpath string) buildsystem.BuildSystem
}

var sentinels = []sentinel{
	{"Cargo.toml", 0, func(p string) buildsystem.BuildSystem { return buildsystem.NewCargo(p) }},
	{"meson.build", 10, func(p string) buildsystem.BuildSystem { return buildsystem.NewMeson(p) }},
	{"CMakeLists.txt", 20, func(p string) buildsystem.BuildSystem { return buildsystem.NewCMake(p) }},
	{"pyproject.toml", 30, func(p string) buildsystem.BuildSystem { return buildsystem.NewPyProject(p) }},
	{"setup.py", 31, func(p string) buildsystem.BuildSystem { return buildsystem.NewSetupPy(p) }},
	{"go.mod", 40, func(p string) buildsystem.BuildSystem { return buildsystem.NewGoModules(p) }},
	{"package.json", 50, func(p string) buildsystem.BuildSystem { return buildsystem.NewNPM(p) }},
	{"Gemfile", 60, func(p string) buildsystem.BuildSystem { return buildsystem.NewRubyGems(p) }},
	{"DESCRIPTION", 70, func(p string) buildsystem.BuildSystem { return buildsystem.NewRDescription(p) }},
	{"Build.PL", 80, func(p string) buildsystem.BuildSystem { return buildsystem.NewPerlModuleBuild(p) }},
	{"Makefile.PL", 81, func(p string) buildsystem.BuildSystem { return buildsystem.NewPerlMakeMaker(p) }},
	{"Makefile", 90, func(p string) buildsystem.BuildSystem { return buildsystem.NewMake(p) }},
}

// Detect walks root and returns every BuildSystem whose sentinel file is
// present, ordered by priority. Directories named .git, vendor,
// node_modules, build and target are pruned from the walk; detection only looks at the
// immediate directory containing each sentinel, not arbitrary file
// contents, so it stays cheap even on large trees.
func Detect(root string) ([]buildsystem.BuildSystem, error) {
	type hit struct {
		s       sentinel
		subpath string
	}
	var hits []hit

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				switch de.Name() {
				case ".git", "vendor", "node_modules", "build", "target":
					return filepath.SkipDir
				}
				return nil
			}
			for _, s := range sentinels {
				if de.Name() == s.name {
					rel, err := filepath.Rel(root, filepath.Dir(path))
					if err != nil {
						return err
					}
					if rel == "." {
						rel = ""
					}
					hits = append(hits, hit{s: s, subpath: rel})
				}
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoBuildToolsFound
		}
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].subpath != hits[j].subpath {
			return len(hits[i].subpath) < len(hits[j].subpath)
		}
		return hits[i].s.priority < hits[j].s.priority
	})

	var systems []buildsystem.BuildSystem
	seen := map[string]bool{}
	for _, h := range hits {
		key := h.s.name + "\x00" + h.subpath
		if seen[key] {
			continue
		}
		seen[key] = true
		systems = append(systems, h.s.build(h.subpath))
	}
	if len(systems) == 0 {
		return nil, ErrNoBuildToolsFound
	}
	return systems, nil
}
