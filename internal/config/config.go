// Package config resolves this module's ambient configuration: the
// environment variables and cache-directory layout every subcommand
// shares. Grounded on dep's context.go Ctx/NewContext, which resolves the
// tool's supporting context (there, GOPATH) once at startup rather than
// re-deriving it ad hoc at each call site.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Environment variable names read by this module (§6 of the core spec).
const (
	// EnvDisableNet, when set to one of {1, true, yes, on}
	// (case-insensitive), forbids network use by the CLI tool.
	EnvDisableNet = "OGNIBUILD_DISABLE_NET"
	// EnvDeps is the URL of a dependency-metadata server consulted by
	// resolvers before falling back to their built-in ecosystem logic.
	EnvDeps = "OGNIBUILD_DEPS"
	// EnvDebianTestTarball overrides the base image tarball used by the
	// unshare Session variant, primarily for test fixtures.
	EnvDebianTestTarball = "OGNIBUILD_DEBIAN_TEST_TARBALL"
)

// Ctx is the resolved supporting context for a single invocation.
type Ctx struct {
	// DisableNet mirrors EnvDisableNet.
	DisableNet bool
	// DepsServerURL mirrors EnvDeps, empty if unset.
	DepsServerURL string
	// DebianTestTarball mirrors EnvDebianTestTarball, empty if unset.
	DebianTestTarball string
	// CacheDir is the root directory this module caches state under,
	// e.g. base images for the unshare Session variant.
	CacheDir string
}

// NewContext resolves a Ctx from the process environment.
func NewContext() (*Ctx, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return nil, errors.Wrap(err, "resolving cache directory")
	}
	return &Ctx{
		DisableNet:        truthy(os.Getenv(EnvDisableNet)),
		DepsServerURL:     os.Getenv(EnvDeps),
		DebianTestTarball: os.Getenv(EnvDebianTestTarball),
		CacheDir:          cacheDir,
	}, nil
}

// ImagePath returns the cached base-image tarball path for a given suite
// and architecture: <cache-dir>/ognibuild/images/<suite>-<arch>.tar.gz.
func (c *Ctx) ImagePath(suite, arch string) string {
	return filepath.Join(c.CacheDir, "ognibuild", "images", suite+"-"+arch+".tar.gz")
}

// truthy reports whether v is one of the spec's recognised truthy tokens,
// matched case-insensitively.
func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
