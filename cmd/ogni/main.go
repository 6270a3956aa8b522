// Command ogni is the umbrella CLI for ognibuild (§6 of the core spec):
// clean, dist, build, install, test, info, exec, cache-env, dispatched
// through spf13/cobra the way the rest of the retrieved pack's CLI tools
// do (tsukumogami, containifyci-engine-ci, replicate-cog, wolfictl), in
// place of the teacher's stdlib-flag dispatch table.
package main

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/vcs"
	"github.com/jelmer/ognibuild/analyzer"
	"github.com/jelmer/ognibuild/buildsystem"
	"github.com/jelmer/ognibuild/depsclient"
	"github.com/jelmer/ognibuild/detect"
	"github.com/jelmer/ognibuild/fixer"
	"github.com/jelmer/ognibuild/internal/config"
	"github.com/jelmer/ognibuild/installer"
	"github.com/jelmer/ognibuild/ogbuildlog"
	"github.com/jelmer/ognibuild/ogniloop"
	"github.com/jelmer/ognibuild/resolver"
	"github.com/jelmer/ognibuild/session"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Exit codes per §6 of the core spec.
const (
	exitOK = iota
	exitGeneric
	exitNoBuildTools
	exitUnresolvedProblem
	exitFixLimitExceeded
	exitSessionSetupFailure
)

// flags mirrors the common flags named in §6, shared by every action
// subcommand.
type flags struct {
	dir       string
	subpath   string
	resolver  string
	scope     string
	limit     int
	verbose   bool
	sessKind    string
	chrootName  string
	tarball     string
	analyzerURL string
}

func main() {
	f := &flags{}
	log := ogbuildlog.New(os.Stderr)

	root := &cobra.Command{
		Use:           "ogni",
		Short:         "drive a source tree's build actions through an adaptive fix-retry loop",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.dir, "d", "d", ".", "source location (path or VCS URL)")
	root.PersistentFlags().StringVar(&f.subpath, "subpath", "", "subdirectory within the source tree to build")
	root.PersistentFlags().StringVar(&f.resolver, "resolver", "auto", "resolver to use: auto, apt, native")
	root.PersistentFlags().StringVar(&f.scope, "scope", "user", "installation scope: user, system, vendor")
	root.PersistentFlags().IntVar(&f.limit, "limit", ogniloop.DefaultLimit, "maximum fix-retry iterations")
	root.PersistentFlags().BoolVar(&f.verbose, "verbose", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&f.sessKind, "session", "plain", "session kind: plain, chroot, unshare")
	root.PersistentFlags().StringVar(&f.chrootName, "chroot", "", "name of a pre-existing chroot (session=chroot)")
	root.PersistentFlags().StringVar(&f.tarball, "tarball", "", "base-system tarball (session=unshare)")
	root.PersistentFlags().StringVar(&f.analyzerURL, "analyzer", "", "external log-analyser endpoint; empty uses the in-process Unknown stub")

	for _, action := range []ogniloop.Action{ogniloop.ActionClean, ogniloop.ActionBuild, ogniloop.ActionInstall, ogniloop.ActionTest, ogniloop.ActionDist} {
		action := action
		root.AddCommand(&cobra.Command{
			Use:   string(action),
			Short: fmt.Sprintf("run the %s action, repairing failures as they occur", action),
			RunE: func(cmd *cobra.Command, args []string) error {
				if f.verbose {
					log.SetLevel(ogbuildlog.LevelDebug)
				}
				return runAction(cmd.Context(), action, f, log)
			},
		})
	}

	root.AddCommand(newInfoCommand(f, log))
	root.AddCommand(newExecCommand(f, log))
	root.AddCommand(newCacheEnvCommand(f, log))

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error returned by the loop or setup phase to one of
// the exit codes named in §6.
func exitCodeFor(err error) int {
	switch err.(type) {
	case nil:
		return exitOK
	case ogniloop.NoBuildToolsFoundError, *ogniloop.NoBuildToolsFoundError:
		return exitNoBuildTools
	case *ogniloop.UnfixableError, *ogniloop.RecurrenceError:
		return exitUnresolvedProblem
	case *ogniloop.FixLimitExceededError:
		return exitFixLimitExceeded
	case *session.SetupError:
		return exitSessionSetupFailure
	}
	fmt.Fprintf(os.Stderr, "ogni: %v\n", err)
	return exitGeneric
}

// openSource materialises f.dir (a local path or a VCS URL) into a working
// directory, returning it plus a cleanup function.
func openSource(dir string) (string, func(), error) {
	if looksLikeVCSURL(dir) {
		tmp, err := os.MkdirTemp("", "ognibuild-src-")
		if err != nil {
			return "", nil, errors.Wrap(err, "creating source staging directory")
		}
		repo, err := vcs.NewRepo(dir, tmp)
		if err != nil {
			os.RemoveAll(tmp)
			return "", nil, errors.Wrapf(err, "resolving vcs for %s", dir)
		}
		if err := repo.Get(); err != nil {
			os.RemoveAll(tmp)
			return "", nil, errors.Wrapf(err, "fetching %s", dir)
		}
		return tmp, func() { os.RemoveAll(tmp) }, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, errors.Wrapf(err, "resolving %s", dir)
	}
	return abs, func() {}, nil
}

func looksLikeVCSURL(dir string) bool {
	u, err := url.Parse(dir)
	if err != nil || u.Scheme == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "git", "ssh", "bzr", "svn":
		return true
	}
	return false
}

// newSession constructs the Session variant named by f.sessKind.
func newSession(f *flags) (session.Session, error) {
	switch f.sessKind {
	case "plain", "":
		return session.NewPlainSession(""), nil
	case "chroot":
		if f.chrootName == "" {
			return nil, errors.New("--chroot is required for session=chroot")
		}
		return session.NewChrootSession(f.chrootName), nil
	case "unshare":
		tarball := f.tarball
		if tarball == "" {
			tarball = os.Getenv(config.EnvDebianTestTarball)
		}
		if tarball == "" {
			return nil, errors.New("--tarball or OGNIBUILD_DEBIAN_TEST_TARBALL is required for session=unshare")
		}
		return session.NewUnshareSession(tarball, networkDisabled()), nil
	default:
		return nil, errors.Errorf("unknown session kind %q", f.sessKind)
	}
}

func networkDisabled() bool {
	v := strings.ToLower(os.Getenv(config.EnvDisableNet))
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// newResolver assembles the resolver.Composite named by f.resolver,
// consulting OGNIBUILD_DEPS first when set (§6(c)).
func newResolver(f *flags, cfg *config.Ctx) resolver.Resolver {
	var composite resolver.Composite
	if cfg.DepsServerURL != "" {
		composite = append(composite, depsclient.New(cfg.DepsServerURL))
	}

	ecosystems := resolver.Composite{
		resolver.NewPyPI(),
		resolver.NewCPAN(),
		resolver.NewNPM(),
		resolver.NewCargo(),
		resolver.NewHackage(),
		resolver.NewCRAN(),
		resolver.NewGolang(),
	}

	switch f.resolver {
	case "apt":
		if resolver.AptAvailable() {
			composite = append(composite, newApt())
		}
		composite = append(composite, ecosystems...)
	case "native":
		composite = append(composite, resolver.Native(ecosystems))
	default: // "auto"
		composite = append(composite, ecosystems...)
		if resolver.AptAvailable() {
			composite = append(composite, newApt())
		}
	}
	return composite
}

// newApt builds the apt resolver with no caller-supplied hints, relying on
// Apt's own live `apt-file search` fallback (resolver/apt.go) to translate
// a missing binary/header/pkg-config module into the Debian package that
// provides it — there is no set of hints this CLI could usefully
// pre-populate, since which packages are needed is only known once the
// adaptive loop has analysed a failure into a Problem.
func newApt() resolver.Resolver {
	return resolver.NewApt(nil)
}

// newFixers assembles the fixer list in the order the adaptive loop will
// consult them: requirement-satisfying fixers before the narrower
// autoconf/upstream specialists, per §4.G's "first to claim wins".
func newFixers(f *flags, sess session.Session, res resolver.Resolver, cfg *config.Ctx) []fixer.Fixer {
	scope := installer.Scope(f.scope)
	allowNet := !cfg.DisableNet

	var inst installer.Installer
	if scope == installer.ScopeVendor {
		inst = &installer.ManifestInstaller{
			ManifestPath: filepath.Join(f.subpath, "Cargo.toml"),
			TableFor: func(category string) []string {
				if category == string(buildsystem.CategoryDev) {
					return []string{"dev-dependencies"}
				}
				return []string{"dependencies"}
			},
			Category: string(buildsystem.CategoryRuntime),
		}
	} else {
		inst = &installer.SessionInstaller{
			Resolver:     res,
			Session:      sess,
			Scopes:       map[installer.Scope]bool{installer.ScopeUser: true, installer.ScopeSystem: true},
			AllowNetwork: allowNet,
		}
	}

	fixers := []fixer.Fixer{
		&fixer.RequirementFixer{Installer: inst, Scope: scope},
		&fixer.AutoconfMacroFixer{Installer: inst, Scope: scope, Session: sess, Subpath: f.subpath},
	}
	if scope == installer.ScopeVendor {
		if mi, ok := inst.(*installer.ManifestInstaller); ok {
			fixers = append(fixers, &fixer.ProjectMetadataFixer{Manifest: mi})
		}
	}
	fixers = append(fixers, &fixer.UpstreamFixer{PyprojectPath: filepath.Join(f.subpath, "pyproject.toml")})
	return fixers
}

func newAnalyzer(f *flags) analyzer.Analyzer {
	if f.analyzerURL == "" {
		return analyzer.Fallback{}
	}
	return analyzer.NewHTTPAnalyzer(f.analyzerURL)
}

func runAction(ctx context.Context, action ogniloop.Action, f *flags, log *ogbuildlog.Logger) error {
	cfg, err := config.NewContext()
	if err != nil {
		return err
	}

	src, cleanup, err := openSource(f.dir)
	if err != nil {
		return &session.SetupError{Reason: err.Error()}
	}
	defer cleanup()

	sess, err := newSession(f)
	if err != nil {
		return &session.SetupError{Reason: err.Error()}
	}
	if err := sess.Open(); err != nil {
		return err
	}
	defer sess.Close()

	external, internal, err := sess.SetupFromDirectory(src, f.subpath)
	if err != nil {
		return err
	}
	if err := sess.Chdir(internal); err != nil {
		return err
	}
	log.Debugf("staged source at %s (session path %s)", external, internal)

	systems, err := detect.Detect(external)
	if err != nil {
		if err == detect.ErrNoBuildToolsFound {
			return ogniloop.NoBuildToolsFoundError{}
		}
		return err
	}
	log.Infof("detected %d build system(s)", len(systems))

	res := newResolver(f, cfg)
	fixers := newFixers(f, sess, res, cfg)

	result, err := ogniloop.Run(ctx, action, systems, ogniloop.Options{
		Session:   sess,
		Fixers:    fixers,
		Analyzer:  newAnalyzer(f),
		Limit:     f.limit,
		TargetDir: ".",
		Tee:       os.Stdout,
	})
	if err != nil {
		return err
	}
	for _, artifact := range result.Artifacts {
		fmt.Fprintln(os.Stdout, artifact)
	}
	return nil
}

func newInfoCommand(f *flags, log *ogbuildlog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "report detected build systems and declared dependencies without building",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, cleanup, err := openSource(f.dir)
			if err != nil {
				return &session.SetupError{Reason: err.Error()}
			}
			defer cleanup()

			sess := session.NewPlainSession("")
			if err := sess.Open(); err != nil {
				return err
			}
			defer sess.Close()

			external, internal, err := sess.SetupFromDirectory(src, f.subpath)
			if err != nil {
				return err
			}
			if err := sess.Chdir(internal); err != nil {
				return err
			}

			systems, err := detect.Detect(external)
			if err != nil {
				if err == detect.ErrNoBuildToolsFound {
					return ogniloop.NoBuildToolsFoundError{}
				}
				return err
			}
			for _, sys := range systems {
				fmt.Fprintf(os.Stdout, "%s (%s)\n", sys.Name(), displaySubpath(sys.Subpath()))
				deps, err := sys.GetDeclaredDependencies(cmd.Context(), sess)
				if err == buildsystem.ErrNotImplemented {
					fmt.Fprintln(os.Stdout, "  (declared dependencies not available)")
					continue
				}
				if err != nil {
					return err
				}
				for _, d := range deps {
					fmt.Fprintf(os.Stdout, "  %s: %s\n", d.Category, d.Req)
				}
			}
			return nil
		},
	}
}

func displaySubpath(p string) string {
	if p == "" {
		return "."
	}
	return p
}

func newExecCommand(f *flags, log *ogbuildlog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:                "exec -- <argv...>",
		Short:              "run an arbitrary command inside a session, for debugging",
		DisableFlagParsing: false,
		Args:               cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, cleanup, err := openSource(f.dir)
			if err != nil {
				return &session.SetupError{Reason: err.Error()}
			}
			defer cleanup()

			sess, err := newSession(f)
			if err != nil {
				return &session.SetupError{Reason: err.Error()}
			}
			if err := sess.Open(); err != nil {
				return err
			}
			defer sess.Close()

			_, internal, err := sess.SetupFromDirectory(src, f.subpath)
			if err != nil {
				return err
			}
			if err := sess.Chdir(internal); err != nil {
				return err
			}

			res, err := sess.RunWithTee(cmd.Context(), args, session.RunOpts{}, os.Stdout)
			if err != nil {
				return err
			}
			if res.ExitCode != 0 {
				os.Exit(exitGeneric)
			}
			return nil
		},
	}
}

func newCacheEnvCommand(f *flags, log *ogbuildlog.Logger) *cobra.Command {
	var suite, arch, from string
	cmd := &cobra.Command{
		Use:   "cache-env",
		Short: "print the cached base-system tarball path, or archive --from into it (§6 persisted state)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewContext()
			if err != nil {
				return err
			}
			if suite == "" || arch == "" {
				return errors.New("--suite and --arch are required")
			}
			dest := cfg.ImagePath(suite, arch)
			if from == "" {
				fmt.Fprintln(os.Stdout, dest)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return errors.Wrap(err, "creating image cache directory")
			}
			return archiveDirectory(from, dest)
		},
	}
	cmd.Flags().StringVar(&suite, "suite", "", "distribution suite, e.g. \"sid\"")
	cmd.Flags().StringVar(&arch, "arch", "", "architecture, e.g. \"amd64\"")
	cmd.Flags().StringVar(&from, "from", "", "directory to archive into the cache; omit to just print the cache path")
	return cmd
}

// archiveDirectory writes dir as a gzipped tar to dest, the inverse of
// session's extractTarball, used by cache-env to populate the image cache
// named in §6.
func archiveDirectory(dir, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dest)
	}
	defer out.Close()
	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		hdr.ModTime = info.ModTime()
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}
