package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wharfbuild/wharf/internal/config"
	"github.com/wharfbuild/wharf/internal/image"
	"github.com/wharfbuild/wharf/internal/logging"
	"github.com/wharfbuild/wharf/internal/pipeline"
	"github.com/wharfbuild/wharf/internal/toolchain"
)

func packageCmd() *cobra.Command {
	var (
		tag         string
		base        string
		noCache     bool
		skipInstall bool
		minify      bool
	)

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Build and package into a runtime image",
		Long: `Run the full pipeline and package the bundle into a runtime
container image.

The image contains the static-serving base plus the built bundle at its
content root, nothing else: no source, no toolchains, no dependency
caches.

Examples:
  wharf package
  wharf package --tag=myapp:1.2.0
  wharf package --base=nginx:1.27-alpine --no-cache`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPackage(tag, base, noCache, skipInstall, minify)
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Image tag (default name:version from wharf.json)")
	cmd.Flags().StringVar(&base, "base", "", "Base image (default from wharf.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the daemon's layer cache")
	cmd.Flags().BoolVar(&skipInstall, "skip-install", false, "Skip the dependency install stage")
	cmd.Flags().BoolVar(&minify, "minify", true, "Minify the helper script")

	return cmd
}

func runPackage(tag, base string, noCache, skipInstall, minify bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if tag != "" {
		cfg.Image.Tag = tag
	}
	if base != "" {
		cfg.Image.Base = base
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := (toolchain.Preflight{NeedNPM: !skipInstall, NeedWASM: true}).Check(ctx); err != nil {
		return err
	}

	log := logging.New("wharf")
	packager, err := image.NewPackager(image.Options{
		Base:        cfg.Image.Base,
		Tag:         cfg.ImageTag(),
		ContentRoot: cfg.Image.ContentRoot,
		NoCache:     noCache,
	}, log)
	if err != nil {
		return err
	}
	// Daemon reachability is a configuration error, caught before any
	// stage runs.
	if err := packager.Ping(ctx); err != nil {
		return err
	}

	fmt.Println("  Building and packaging...")
	fmt.Println()

	p := pipeline.New(cfg,
		newInstaller(cfg, log),
		newBundler(cfg, minify),
		packager,
		log,
		pipeline.Options{SkipInstall: skipInstall, Package: true},
	)

	if err := p.Run(ctx); err != nil {
		return err
	}

	result := p.Image()
	fmt.Println()
	success("Image built in %s", result.Duration.Round(1000000))
	fmt.Println()
	info("Tag:   %s", result.Tag)
	info("ID:    %s", result.ID)
	fmt.Println()
	fmt.Println("  To run:")
	fmt.Printf("    docker run --rm -p 8080:80 %s\n", result.Tag)
	fmt.Println()

	return nil
}
