package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wharfbuild/wharf/internal/errors"
	"github.com/wharfbuild/wharf/internal/stage"
)

func newEnvWithHelper(t *testing.T, files map[string]string) *stage.Env {
	t.Helper()
	env, err := stage.NewEnv("test")
	require.NoError(t, err)
	t.Cleanup(func() { env.Discard() })

	require.NoError(t, os.MkdirAll(env.Path(HelperDir), 0755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(env.Path(HelperDir, name), []byte(content), 0644))
	}
	return env
}

func TestInstaller_MissingManifest(t *testing.T) {
	env := newEnvWithHelper(t, map[string]string{
		"package-lock.json": "{}",
	})
	inst := NewInstaller(filepath.Join(t.TempDir(), "cache"), nil)

	err := inst.Run(context.Background(), env)
	require.Error(t, err)

	var pe *errors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "W101", pe.Code)
	assert.Equal(t, errors.CategoryPrecondition, pe.Category)
}

func TestInstaller_MissingLock(t *testing.T) {
	env := newEnvWithHelper(t, map[string]string{
		"package.json": `{"name":"helper"}`,
	})
	inst := NewInstaller(filepath.Join(t.TempDir(), "cache"), nil)

	err := inst.Run(context.Background(), env)
	require.Error(t, err)

	var pe *errors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "W102", pe.Code)
	assert.NotEmpty(t, pe.Suggestion)
}

func TestInstaller_HonorsConfiguredNames(t *testing.T) {
	// The standard files exist but the configured names do not, so the
	// precondition check must fail on the configured manifest name.
	env := newEnvWithHelper(t, map[string]string{
		"package.json":      `{"name":"helper"}`,
		"package-lock.json": "{}",
	})
	inst := &Installer{
		Cache:    filepath.Join(t.TempDir(), "cache"),
		Manifest: "deps.json",
		Lock:     "deps-lock.json",
	}

	err := inst.Run(context.Background(), env)
	require.Error(t, err)

	var pe *errors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "W101", pe.Code)
	assert.Contains(t, pe.Detail, "deps.json")
}

func TestInstaller_CustomNamesMirroredForNPM(t *testing.T) {
	env := newEnvWithHelper(t, map[string]string{
		"deps.json":      `{"name":"helper"}`,
		"deps-lock.json": "{}",
	})
	inst := &Installer{
		Cache:    filepath.Join(t.TempDir(), "cache"),
		Manifest: "deps.json",
		Lock:     "deps-lock.json",
	}

	// An empty PATH stops the run at the npm lookup, after the
	// configured files have been mirrored onto the standard names.
	t.Setenv("PATH", "")
	err := inst.Run(context.Background(), env)
	require.Error(t, err)

	var pe *errors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "W201", pe.Code)

	for _, name := range []string{DefaultManifest, DefaultLock} {
		_, statErr := os.Stat(env.Path(HelperDir, name))
		assert.NoError(t, statErr, name)
	}
}

func TestInstaller_Name(t *testing.T) {
	assert.Equal(t, "dependency-install", NewInstaller("", nil).Name())
}

func TestInstaller_ClearCache(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "npm-cache")
	require.NoError(t, os.MkdirAll(filepath.Join(cache, "_cacache"), 0755))

	inst := NewInstaller(cache, nil)
	require.NoError(t, inst.ClearCache())

	_, err := os.Stat(cache)
	assert.True(t, os.IsNotExist(err))

	// Clearing an already-missing cache is fine.
	require.NoError(t, inst.ClearCache())
}

func TestInstalledDir(t *testing.T) {
	env, err := stage.NewEnv("test")
	require.NoError(t, err)
	defer env.Discard()

	assert.Equal(t, env.Path("helper", "node_modules"), InstalledDir(env))
}
