package bundle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/wharfbuild/wharf/internal/config"
	"github.com/wharfbuild/wharf/internal/deps"
	"github.com/wharfbuild/wharf/internal/errors"
	"github.com/wharfbuild/wharf/internal/stage"
	"github.com/wharfbuild/wharf/internal/toolchain"
)

// OutputDir is the artifact set directory name inside the build
// environment.
const OutputDir = "dist"

// Names of the fixed-name outputs. The helper script fetches the wasm
// module by name at runtime, so these are never content-hashed; the
// pipeline treats script internals as opaque and cannot rewrite them.
const (
	WASMName   = "app.wasm"
	GlueName   = "wasm_exec.js"
	ScriptName = "helper.js"
	MarkupName = "index.html"
)

// Result contains the bundle output.
type Result struct {
	// Duration is how long the bundle took.
	Duration time.Duration

	// Dir is the path to the artifact set inside the environment.
	Dir string

	// Manifest maps source asset names to their output names.
	Manifest map[string]string

	// WASMSize is the size of the compiled module in bytes.
	WASMSize int64

	// ScriptSize is the size of the bundled helper script in bytes.
	ScriptSize int64

	// CSSSize is the total stylesheet size in bytes.
	CSSSize int64
}

// Options configures the bundler.
type Options struct {
	// Minify enables helper script minification.
	Minify bool

	// Hashing enables content-hash renaming of styles and static assets.
	Hashing bool

	// Tags are build tags for the compiler.
	Tags []string

	// LDFlags are additional linker flags.
	LDFlags string

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Bundler invokes the compiler toolchain once to transform the application
// source, markup, and styles into a self-contained artifact set. Identical
// inputs produce identical output modulo content-hash filenames.
type Bundler struct {
	cfg     *config.Config
	esbuild *toolchain.Esbuild
	options Options

	result *Result
}

// New creates a new bundler.
func New(cfg *config.Config, es *toolchain.Esbuild, options Options) *Bundler {
	if !options.Minify && cfg.Bundle.Minify {
		options.Minify = true
	}
	if len(options.Tags) == 0 && len(cfg.Bundle.Tags) > 0 {
		options.Tags = cfg.Bundle.Tags
	}
	if options.LDFlags == "" && cfg.Bundle.LDFlags != "" {
		options.LDFlags = cfg.Bundle.LDFlags
	}

	return &Bundler{
		cfg:     cfg,
		esbuild: es,
		options: options,
	}
}

// Name implements the pipeline tool interface.
func (b *Bundler) Name() string {
	return "bundle"
}

// Run implements the pipeline tool interface.
func (b *Bundler) Run(ctx context.Context, env *stage.Env) error {
	result, err := b.Bundle(ctx, env)
	if err != nil {
		return err
	}
	b.result = result
	return nil
}

// LastResult returns the result of the most recent Run, or nil.
func (b *Bundler) LastResult() *Result {
	return b.result
}

// Bundle produces the artifact set inside the build environment.
func (b *Bundler) Bundle(ctx context.Context, env *stage.Env) (*Result, error) {
	start := time.Now()
	result := &Result{
		Manifest: make(map[string]string),
	}

	outDir := env.Path(OutputDir)

	b.progress("Cleaning output directory...")
	if err := os.RemoveAll(outDir); err != nil {
		return nil, errors.New("W303").Wrap(err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.New("W303").Wrap(err)
	}

	b.progress("Compiling to WASM...")
	wasmPath := filepath.Join(outDir, WASMName)
	if err := b.compileWASM(ctx, env.Path("app"), wasmPath); err != nil {
		return nil, err
	}
	result.WASMSize = fileSize(wasmPath)
	result.Manifest[WASMName] = WASMName

	b.progress("Copying JS glue...")
	if err := copyGlue(ctx, filepath.Join(outDir, GlueName)); err != nil {
		return nil, err
	}
	result.Manifest[GlueName] = GlueName

	b.progress("Bundling helper script...")
	scriptPath := filepath.Join(outDir, ScriptName)
	if err := b.bundleScript(ctx, env, scriptPath); err != nil {
		return nil, err
	}
	result.ScriptSize = fileSize(scriptPath)
	result.Manifest[ScriptName] = ScriptName

	b.progress("Copying styles...")
	cssSize, err := b.copyStyles(env.Path("styles"), outDir, result.Manifest)
	if err != nil {
		return nil, err
	}
	result.CSSSize = cssSize

	b.progress("Copying static assets...")
	if err := b.copyAssets(env.Path("static"), outDir, result.Manifest); err != nil {
		return nil, err
	}

	b.progress("Rewriting markup...")
	// The entry document ships under its own fixed name, so a self-link
	// in the markup must resolve like any other bundled asset.
	result.Manifest[MarkupName] = MarkupName
	if err := rewriteMarkup(env.Path(MarkupName), filepath.Join(outDir, MarkupName), result.Manifest); err != nil {
		return nil, err
	}

	b.progress("Writing manifest...")
	if err := writeManifest(outDir, result.Manifest); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	result.Dir = outDir

	return result, nil
}

// compileWASM compiles the application source to a wasm module.
func (b *Bundler) compileWASM(ctx context.Context, srcDir, output string) error {
	ldflags := "-s -w"
	if b.options.LDFlags != "" {
		ldflags = b.options.LDFlags + " " + ldflags
	}

	args := []string{"build", "-o", output, "-ldflags", ldflags, "-trimpath"}
	if len(b.options.Tags) > 0 {
		args = append(args, "-tags", strings.Join(b.options.Tags, ","))
	}
	args = append(args, ".")

	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = srcDir
	cmd.Env = append(os.Environ(),
		"GOOS=js",
		"GOARCH=wasm",
		"CGO_ENABLED=0",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return errors.New("W300").
			WithDetail(stderr.String()).
			Wrap(err)
	}

	return nil
}

// copyGlue copies wasm_exec.js from the Go installation.
func copyGlue(ctx context.Context, dest string) error {
	cmd := exec.CommandContext(ctx, "go", "env", "GOROOT")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return errors.New("W304").Wrap(err)
	}
	goroot := strings.TrimSpace(stdout.String())

	// Moved from misc/wasm to lib/wasm in newer releases.
	candidates := []string{
		filepath.Join(goroot, "lib", "wasm", "wasm_exec.js"),
		filepath.Join(goroot, "misc", "wasm", "wasm_exec.js"),
	}
	for _, src := range candidates {
		if _, err := os.Stat(src); err == nil {
			return stage.CopyFile(src, dest)
		}
	}

	return errors.New("W304").
		WithDetail("looked in " + strings.Join(candidates, ", "))
}

// bundleScript bundles the helper module through esbuild.
func (b *Bundler) bundleScript(ctx context.Context, env *stage.Env, output string) error {
	entry := scriptEntry(env)
	if entry == "" {
		return errors.New("W301").
			WithDetail("no entry point found in " + env.Path(deps.HelperDir)).
			WithSuggestion("Set \"main\" in the helper package.json")
	}

	esbuildPath, err := b.esbuild.EnsureInstalled(ctx, b.options.OnProgress)
	if err != nil {
		return errors.New("W202").Wrap(err)
	}

	args := []string{
		entry,
		"--bundle",
		"--format=iife",
		"--outfile=" + output,
	}
	if b.options.Minify {
		args = append(args, "--minify")
	}

	cmd := exec.CommandContext(ctx, esbuildPath, args...)
	cmd.Dir = env.Path(deps.HelperDir)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return errors.New("W301").
			WithDetail(stderr.String()).
			Wrap(err)
	}

	return nil
}

// scriptEntry resolves the helper module's entry point from its package
// manifest, defaulting to index.js.
func scriptEntry(env *stage.Env) string {
	helper := env.Path(deps.HelperDir)

	entry := "index.js"
	if data, err := os.ReadFile(filepath.Join(helper, "package.json")); err == nil {
		var pkg struct {
			Main string `json:"main"`
		}
		if json.Unmarshal(data, &pkg) == nil && pkg.Main != "" {
			entry = pkg.Main
		}
	}

	path := filepath.Join(helper, entry)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// copyStyles copies stylesheets with cache busting.
func (b *Bundler) copyStyles(srcDir, outDir string, manifest map[string]string) (int64, error) {
	if _, err := os.Stat(srcDir); os.IsNotExist(err) {
		return 0, nil // No styles directory.
	}

	var total int64
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return 0, errors.New("W303").Wrap(err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".css") {
			continue
		}
		src := filepath.Join(srcDir, entry.Name())
		name, err := b.copyHashed(src, outDir, entry.Name())
		if err != nil {
			return 0, err
		}
		manifest[entry.Name()] = name
		total += fileSize(filepath.Join(outDir, name))
	}

	return total, nil
}

// copyAssets copies static assets with cache busting into assets/.
func (b *Bundler) copyAssets(srcDir, outDir string, manifest map[string]string) error {
	if _, err := os.Stat(srcDir); os.IsNotExist(err) {
		return nil // No static directory.
	}

	assetsDir := filepath.Join(outDir, "assets")
	if err := os.MkdirAll(assetsDir, 0755); err != nil {
		return errors.New("W303").Wrap(err)
	}

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(srcDir, path)

		// Nested assets keep their relative directory so siblings with
		// the same base name cannot overwrite each other.
		destDir := assetsDir
		prefix := "assets/"
		if dir := filepath.Dir(relPath); dir != "." {
			destDir = filepath.Join(assetsDir, dir)
			if err := os.MkdirAll(destDir, 0755); err != nil {
				return errors.New("W303").Wrap(err)
			}
			prefix += filepath.ToSlash(dir) + "/"
		}

		name, err := b.copyHashed(path, destDir, filepath.Base(relPath))
		if err != nil {
			return err
		}
		manifest[relPath] = prefix + name
		return nil
	})
}

// copyHashed copies src into dir under a content-hashed name. When hashing
// is disabled the original name is kept.
func (b *Bundler) copyHashed(src, dir, base string) (string, error) {
	name := base
	if b.options.Hashing {
		hash, err := hashFile(src)
		if err != nil {
			return "", errors.New("W303").Wrap(err)
		}
		ext := filepath.Ext(base)
		name = fmt.Sprintf("%s.%s%s", strings.TrimSuffix(base, ext), hash[:8], ext)
	}
	if err := stage.CopyFile(src, filepath.Join(dir, name)); err != nil {
		return "", errors.New("W303").Wrap(err)
	}
	return name, nil
}

// writeManifest writes the asset manifest.
func writeManifest(outDir string, manifest map[string]string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "manifest.json"), data, 0644)
}

// progress reports bundle progress.
func (b *Bundler) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// hashFile returns the SHA256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// fileSize returns a file's size, or 0 if it cannot be stat'd.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
