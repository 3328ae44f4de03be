package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wharfbuild/wharf/internal/config"
	"github.com/wharfbuild/wharf/internal/errors"
	"github.com/wharfbuild/wharf/internal/logging"
	"github.com/wharfbuild/wharf/internal/pipeline"
	"github.com/wharfbuild/wharf/pkg/preview"
)

func previewCmd() *cobra.Command {
	var (
		port  int
		host  string
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve the built bundle locally",
		Long: `Serve an already-built bundle over HTTP, with the content types
the runtime image would use and a Prometheus /metrics endpoint.

With --watch, source changes trigger a rebuild and connected browsers
reload automatically.

Examples:
  wharf preview
  wharf preview --port=3000
  wharf preview --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(port, host, watch)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to serve on (default from wharf.json)")
	cmd.Flags().StringVar(&host, "host", "", "Host to bind to (default from wharf.json)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Rebuild and reload on source changes")

	return cmd
}

func runPreview(port int, host string, watch bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Preview.Port = port
	}
	if host != "" {
		cfg.Preview.Host = host
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := cfg.OutputPath()
	if _, err := os.Stat(dir); err != nil {
		return errors.New("W402").
			WithDetail("looked for " + dir).
			WithSuggestion("Run 'wharf build' first").
			Wrap(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logging.New("preview")
	server := preview.NewServer(preview.Options{
		Dir:   dir,
		Addr:  cfg.PreviewAddress(),
		Watch: watch,
		Log:   log,
	})

	if watch {
		go watchAndRebuild(ctx, cfg, server)
	}

	success("Serving %s", cfg.Bundle.Output)
	info("http://%s", cfg.PreviewAddress())
	if watch {
		info("Watching for changes...")
	}
	fmt.Println()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// watchAndRebuild polls the source paths and reruns the full build on
// every change batch. Each run gets a fresh build environment, so the
// install stage must run too; the persistent dependency cache keeps it
// cheap.
func watchAndRebuild(ctx context.Context, cfg *config.Config, server *preview.Server) {
	log := logging.New("watch")

	watcher := preview.NewWatcher([]string{
		cfg.AppPath(),
		cfg.MarkupPath(),
		cfg.StylesPath(),
		cfg.HelperPath(),
		cfg.StaticPath(),
	}, 500*time.Millisecond)

	watcher.Start(ctx, func(changed []string) {
		info("Change detected, rebuilding...")

		p := pipeline.New(cfg,
			newInstaller(cfg, log),
			newBundler(cfg, true),
			nil,
			log,
			pipeline.Options{},
		)
		if err := p.Run(ctx); err != nil {
			warn("Rebuild failed: %s", err)
			return
		}

		server.NotifyReload()
		success("Rebuilt")
	})
}
