package deps

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wharfbuild/wharf/internal/errors"
	"github.com/wharfbuild/wharf/internal/stage"
)

// HelperDir is the name of the helper module directory inside a build
// environment.
const HelperDir = "helper"

// Standard npm file names. npm itself only reads these; configured
// aliases are mirrored onto them inside the build environment.
const (
	DefaultManifest = "package.json"
	DefaultLock     = "package-lock.json"
)

// Installer materializes the helper module's third-party packages inside
// a build environment, from its manifest plus lock file. Installation is
// lockfile-exact: a manifest/lock mismatch aborts the pipeline.
type Installer struct {
	// Cache is the dependency cache directory. It persists across runs
	// and is cleared on demand, never implicitly.
	Cache string

	// Manifest and Lock name the package manifest and lock file inside
	// the helper directory. Empty values use npm's standard names.
	Manifest string
	Lock     string

	// Log receives installer diagnostics.
	Log *logrus.Entry
}

// NewInstaller creates an installer with an explicit cache path.
func NewInstaller(cache string, log *logrus.Entry) *Installer {
	return &Installer{Cache: cache, Log: log}
}

// Name implements the pipeline tool interface.
func (i *Installer) Name() string {
	return "dependency-install"
}

// Run installs the helper module's dependencies into the environment's
// helper directory. Both the manifest and the lock file must already be
// present; their absence is a fatal precondition failure raised before
// npm is invoked.
func (i *Installer) Run(ctx context.Context, env *stage.Env) error {
	helper := env.Path(HelperDir)

	manifest := i.Manifest
	if manifest == "" {
		manifest = DefaultManifest
	}
	lock := i.Lock
	if lock == "" {
		lock = DefaultLock
	}

	if _, err := os.Stat(filepath.Join(helper, manifest)); err != nil {
		return errors.New("W101").
			WithDetail("looked for " + manifest + " in " + helper).
			Wrap(err)
	}
	if _, err := os.Stat(filepath.Join(helper, lock)); err != nil {
		return errors.New("W102").
			WithDetail("looked for " + lock + " in " + helper).
			WithSuggestion("Run 'npm install' once in the helper directory and commit the lock file").
			Wrap(err)
	}

	// npm only reads the standard names, so nonstandard configured names
	// are mirrored onto them inside the ephemeral environment.
	if manifest != DefaultManifest {
		if err := stage.CopyFile(filepath.Join(helper, manifest), filepath.Join(helper, DefaultManifest)); err != nil {
			return errors.New("W200").Wrap(err)
		}
	}
	if lock != DefaultLock {
		if err := stage.CopyFile(filepath.Join(helper, lock), filepath.Join(helper, DefaultLock)); err != nil {
			return errors.New("W200").Wrap(err)
		}
	}

	npm, err := exec.LookPath("npm")
	if err != nil {
		return errors.New("W201").
			WithSuggestion("Install Node.js from https://nodejs.org").
			Wrap(err)
	}

	if err := os.MkdirAll(i.Cache, 0755); err != nil {
		return errors.New("W200").Wrap(err)
	}

	start := time.Now()

	// npm ci installs exactly what the lock file pins and fails on any
	// mismatch with the manifest.
	cmd := exec.CommandContext(ctx, npm, "ci", "--no-audit", "--no-fund")
	cmd.Dir = helper
	cmd.Env = append(os.Environ(), "npm_config_cache="+i.Cache)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return errors.New("W200").
			WithDetail(stderr.String()).
			WithSuggestion("Regenerate package-lock.json if the manifest changed").
			Wrap(err)
	}

	if i.Log != nil {
		i.Log.WithFields(logrus.Fields{
			"dir":      helper,
			"cache":    i.Cache,
			"duration": time.Since(start).String(),
		}).Info("dependencies installed")
	}

	return nil
}

// ClearCache removes the dependency cache directory. The cache is shared
// across runs, so this is the only sanctioned way to reset it.
func (i *Installer) ClearCache() error {
	if err := os.RemoveAll(i.Cache); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// InstalledDir returns the node_modules path inside the environment, for
// later stages that link the helper module output.
func InstalledDir(env *stage.Env) string {
	return env.Path(HelperDir, "node_modules")
}
