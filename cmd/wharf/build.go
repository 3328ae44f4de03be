package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wharfbuild/wharf/internal/bundle"
	"github.com/wharfbuild/wharf/internal/config"
	"github.com/wharfbuild/wharf/internal/deps"
	"github.com/wharfbuild/wharf/internal/logging"
	"github.com/wharfbuild/wharf/internal/pipeline"
	"github.com/wharfbuild/wharf/internal/toolchain"
)

func buildCmd() *cobra.Command {
	var (
		output      string
		minify      bool
		skipInstall bool
		clean       bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the application bundle",
		Long: `Compile the application and produce the static-asset bundle.

This command:
  • Installs helper script dependencies (lockfile-exact)
  • Compiles the application to WASM
  • Bundles and minifies the helper script
  • Copies styles and static assets with cache busting
  • Rewrites the markup and writes the asset manifest

Examples:
  wharf build
  wharf build --output=dist
  wharf build --skip-install`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(output, minify, skipInstall, clean)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from wharf.json)")
	cmd.Flags().BoolVar(&minify, "minify", true, "Minify the helper script")
	cmd.Flags().BoolVar(&skipInstall, "skip-install", false, "Skip the dependency install stage")
	cmd.Flags().BoolVar(&clean, "clean", false, "Clean output directory before build")

	return cmd
}

func runBuild(output string, minify, skipInstall, clean bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Bundle.Output = output
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := (toolchain.Preflight{NeedNPM: !skipInstall, NeedWASM: true}).Check(ctx); err != nil {
		return err
	}

	if clean {
		info("Cleaning output directory...")
		os.RemoveAll(cfg.OutputPath())
	}

	fmt.Println("  Building...")
	fmt.Println()

	log := logging.New("wharf")
	bundler := newBundler(cfg, minify)
	p := pipeline.New(cfg,
		newInstaller(cfg, log),
		bundler,
		nil,
		log,
		pipeline.Options{SkipInstall: skipInstall},
	)

	if err := p.Run(ctx); err != nil {
		return err
	}

	printBundle(cfg, bundler.LastResult())
	return nil
}

// newInstaller wires an installer from the config, honoring any custom
// manifest and lock file names.
func newInstaller(cfg *config.Config, log *logrus.Entry) *deps.Installer {
	return &deps.Installer{
		Cache:    cfg.DepCachePath(),
		Manifest: cfg.Deps.Manifest,
		Lock:     cfg.Deps.Lock,
		Log:      log,
	}
}

// newBundler wires a bundler from the config and command flags.
func newBundler(cfg *config.Config, minify bool) *bundle.Bundler {
	return bundle.New(cfg, toolchain.NewEsbuild(), bundle.Options{
		Minify:  minify,
		Hashing: cfg.HashingEnabled(),
		OnProgress: func(step string) {
			info("%s", step)
		},
	})
}

// printBundle prints the bundle summary tree.
func printBundle(cfg *config.Config, result *bundle.Result) {
	fmt.Println()
	if result == nil {
		success("Build complete")
		return
	}

	success("Build complete in %s", result.Duration.Round(1000000))
	fmt.Println()
	fmt.Println("  Output:")
	fmt.Printf("    %s/\n", cfg.Bundle.Output)
	fmt.Printf("    ├── %s          (%s)\n", bundle.MarkupName, "rewritten")
	fmt.Printf("    ├── %s           (%s)\n", bundle.WASMName, formatBytes(result.WASMSize))
	fmt.Printf("    ├── %s\n", bundle.GlueName)
	fmt.Printf("    ├── %s          (%s)\n", bundle.ScriptName, formatBytes(result.ScriptSize))
	if result.CSSSize > 0 {
		fmt.Printf("    ├── styles            (%s)\n", formatBytes(result.CSSSize))
	}
	fmt.Printf("    └── manifest.json\n")
	fmt.Println()
}
