// Package pipeline orchestrates the build stages: dependency install,
// bundle, artifact assembly, and runtime image packaging.
//
// The pipeline is single-threaded and strictly sequential. Each stage runs
// behind the Tool interface inside a shared build environment; the state
// machine advances only when a stage succeeds, and the first error moves it
// to FAILED. Errors propagate unwrapped, so the failing stage's structured
// error reaches the caller intact.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wharfbuild/wharf/internal/bundle"
	"github.com/wharfbuild/wharf/internal/config"
	"github.com/wharfbuild/wharf/internal/deps"
	"github.com/wharfbuild/wharf/internal/errors"
	"github.com/wharfbuild/wharf/internal/image"
	"github.com/wharfbuild/wharf/internal/logging"
	"github.com/wharfbuild/wharf/internal/stage"
)

// tracerName identifies pipeline spans.
const tracerName = "wharf/pipeline"

// Tool is one build stage. A tool reads from and writes to the build
// environment it is handed and reports failure through its return value
// only; it never advances the state machine itself.
type Tool interface {
	Name() string
	Run(ctx context.Context, env *stage.Env) error
}

// ImageBuilder packages an assembled artifact directory into a runtime
// image.
type ImageBuilder interface {
	Ping(ctx context.Context) error
	Build(ctx context.Context, artifactDir string) (*image.Result, error)
}

// ArtifactSet is the assembled bundle output, handed by reference from the
// assembler to the packager.
type ArtifactSet struct {
	// Dir is the directory holding the artifact set.
	Dir string

	// Manifest is the path to the asset manifest inside Dir.
	Manifest string
}

// Options configures a pipeline run.
type Options struct {
	// SkipInstall replaces the dependency install stage with a no-op.
	SkipInstall bool

	// Package extends the run past ASSEMBLED to build the runtime image.
	Package bool

	// OnStage is called as each stage starts.
	OnStage func(to stage.State, tool string)
}

// step pairs a stage tool with the state reached when it succeeds.
type step struct {
	to   stage.State
	tool Tool
}

// Pipeline runs the build stages in order against one build environment.
type Pipeline struct {
	cfg     *config.Config
	log     *logrus.Entry
	machine *stage.Machine
	steps   []step
	builder ImageBuilder
	options Options

	artifacts   *ArtifactSet
	imageResult *image.Result
}

// New assembles a pipeline from its stage tools. builder may be nil when
// options.Package is false.
func New(cfg *config.Config, installer, bundler Tool, builder ImageBuilder, log *logrus.Entry, options Options) *Pipeline {
	if log == nil {
		log = logging.Discard()
	}

	p := &Pipeline{
		cfg:     cfg,
		log:     log,
		machine: stage.NewMachine(),
		builder: builder,
		options: options,
	}

	install := installer
	if options.SkipInstall {
		install = noop{name: installer.Name()}
	}

	p.steps = []step{
		{stage.StateDependenciesInstalled, install},
		{stage.StateBundled, bundler},
		{stage.StateAssembled, &assembler{p: p}},
	}
	if options.Package {
		p.steps = append(p.steps, step{stage.StatePackaged, &packager{p: p}})
	}

	return p
}

// State returns the pipeline's current state.
func (p *Pipeline) State() stage.State {
	return p.machine.Current()
}

// Artifacts returns the assembled artifact set, or nil before assembly.
func (p *Pipeline) Artifacts() *ArtifactSet {
	return p.artifacts
}

// Image returns the packaged image result, or nil when packaging did not
// run.
func (p *Pipeline) Image() *image.Result {
	return p.imageResult
}

// Run executes the pipeline. The source manifest is verified and copied
// into a fresh build environment before the first tool runs; the
// environment is discarded when the run ends, regardless of outcome.
func (p *Pipeline) Run(ctx context.Context) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()

	manifest := p.sourceManifest()
	if err := manifest.Verify(); err != nil {
		p.machine.Fail()
		span.RecordError(err)
		return err
	}

	env, err := stage.NewEnv("build")
	if err != nil {
		p.machine.Fail()
		return err
	}
	defer env.Discard()

	if err := env.CopyIn(manifest); err != nil {
		p.machine.Fail()
		span.RecordError(err)
		return err
	}

	for _, s := range p.steps {
		if err := p.runStep(ctx, tracer, env, s); err != nil {
			p.machine.Fail()
			span.RecordError(err)
			return err
		}
	}

	return nil
}

// sourceManifest declares the pipeline's inputs from the project config.
func (p *Pipeline) sourceManifest() *stage.SourceManifest {
	cfg := p.cfg
	return stage.NewSourceManifest().
		AddDir(cfg.AppPath(), "app").WithCode("W103").
		AddFile(cfg.MarkupPath(), bundle.MarkupName).WithCode("W104").
		AddDir(cfg.HelperPath(), deps.HelperDir).
		AddOptionalDir(cfg.StylesPath(), "styles").
		AddOptionalDir(cfg.StaticPath(), "static")
}

// runStep executes one stage inside a span and advances the state machine
// on success.
func (p *Pipeline) runStep(ctx context.Context, tracer trace.Tracer, env *stage.Env, s step) error {
	ctx, span := tracer.Start(ctx, "stage."+s.tool.Name(),
		trace.WithAttributes(attribute.String("pipeline.state", string(s.to))))
	defer span.End()

	if p.options.OnStage != nil {
		p.options.OnStage(s.to, s.tool.Name())
	}

	log := p.log.WithField("tool", s.tool.Name())
	log.Debug("stage started")
	start := time.Now()

	if err := s.tool.Run(ctx, env); err != nil {
		log.WithError(err).Error("stage failed")
		return err
	}

	if err := p.machine.Advance(s.to); err != nil {
		return err
	}

	duration := time.Since(start)
	span.SetAttributes(attribute.Int64("stage.duration_ms", duration.Milliseconds()))
	log.WithFields(logrus.Fields{
		"state":    string(s.to),
		"duration": duration.String(),
	}).Info("stage complete")

	return nil
}

// noop stands in for a skipped stage so the state machine still advances.
type noop struct {
	name string
}

func (n noop) Name() string { return n.name }

func (n noop) Run(context.Context, *stage.Env) error { return nil }

// assembler extracts the bundle output from the build environment into the
// project's output directory and verifies its integrity.
type assembler struct {
	p *Pipeline
}

func (a *assembler) Name() string { return "assemble" }

func (a *assembler) Run(ctx context.Context, env *stage.Env) error {
	dest := a.p.cfg.OutputPath()

	if err := env.Extract(bundle.OutputDir, dest); err != nil {
		return err
	}
	if err := verifyArtifactDir(dest); err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(dest, bundle.MarkupName)); err != nil {
		a.p.log.WithField("dir", dest).
			Warn("artifact set has no entry document; the runtime image will serve the base image's default page")
	}

	a.p.artifacts = &ArtifactSet{
		Dir:      dest,
		Manifest: filepath.Join(dest, "manifest.json"),
	}
	return nil
}

// contaminants are entry names that mark build-time state. None of them
// may appear in an artifact set headed for the runtime image.
var contaminants = []string{"node_modules", ".wharf", "npm-cache"}

// verifyArtifactDir checks that dir holds a packageable artifact set.
func verifyArtifactDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.New("W402").Wrap(err)
	}
	if len(entries) == 0 {
		return errors.New("W402").WithDetail(dir + " is empty")
	}
	for _, entry := range entries {
		for _, name := range contaminants {
			if entry.Name() == name {
				return errors.New("W403").
					WithDetail("found " + entry.Name() + " in " + dir)
			}
		}
	}
	return nil
}

// packager hands the assembled artifact set to the image builder.
type packager struct {
	p *Pipeline
}

func (pk *packager) Name() string { return "package" }

func (pk *packager) Run(ctx context.Context, env *stage.Env) error {
	if pk.p.artifacts == nil {
		return errors.New("W402").
			WithDetail("packaging requested before assembly")
	}

	result, err := pk.p.builder.Build(ctx, pk.p.artifacts.Dir)
	if err != nil {
		return err
	}
	pk.p.imageResult = result
	return nil
}
