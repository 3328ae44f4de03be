// Package toolchain validates and bootstraps the external tools the
// pipeline invokes. Partial toolchain failures (a missing compiler, a
// toolchain without the wasm target) are configuration errors caught here,
// before any stage runs, never transient faults retried mid-pipeline.
package toolchain

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/wharfbuild/wharf/internal/errors"
)

// Preflight validates the host toolchain for a pipeline run.
type Preflight struct {
	// NeedNPM requires npm (dependency install stage).
	NeedNPM bool

	// NeedWASM requires a Go toolchain that can target js/wasm.
	NeedWASM bool
}

// Check runs all configured validations and returns the first failure.
func (p Preflight) Check(ctx context.Context) error {
	goBin, err := exec.LookPath("go")
	if err != nil {
		return errors.New("W502").
			WithSuggestion("Install Go from https://go.dev/dl").
			Wrap(err)
	}

	if p.NeedWASM {
		if err := checkWASMTarget(ctx, goBin); err != nil {
			return err
		}
	}

	if p.NeedNPM {
		if _, err := exec.LookPath("npm"); err != nil {
			return errors.New("W201").
				WithSuggestion("Install Node.js from https://nodejs.org").
				Wrap(err)
		}
	}

	return nil
}

// checkWASMTarget verifies the installed toolchain lists js/wasm among its
// supported targets.
func checkWASMTarget(ctx context.Context, goBin string) error {
	cmd := exec.CommandContext(ctx, goBin, "tool", "dist", "list")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return errors.New("W503").
			WithDetail(stderr.String()).
			Wrap(err)
	}

	for _, target := range strings.Fields(stdout.String()) {
		if target == "js/wasm" {
			return nil
		}
	}

	return errors.New("W503").
		WithDetail("'go tool dist list' does not include js/wasm")
}
