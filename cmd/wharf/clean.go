package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/wharfbuild/wharf/internal/config"
	"github.com/wharfbuild/wharf/internal/deps"
)

func cleanCmd() *cobra.Command {
	var cache bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build outputs",
		Long: `Remove the output directory. With --cache, also clear the
dependency cache; the cache is never cleared implicitly.

Examples:
  wharf clean
  wharf clean --cache`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cache)
		},
	}

	cmd.Flags().BoolVar(&cache, "cache", false, "Also clear the dependency cache")

	return cmd
}

func runClean(cache bool) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	if err := os.RemoveAll(cfg.OutputPath()); err != nil {
		return err
	}
	success("Removed %s", cfg.Bundle.Output)

	if cache {
		installer := deps.NewInstaller(cfg.DepCachePath(), nil)
		if err := installer.ClearCache(); err != nil {
			return err
		}
		success("Cleared dependency cache")
	}

	return nil
}
