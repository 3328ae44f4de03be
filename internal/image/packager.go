// Package image builds the runtime image: a minimal static-serving base
// plus exactly one artifact set copied to its content root.
//
// The build context handed to the daemon contains the generated
// Dockerfile and the artifact set, nothing else. No compiler, package
// manager state, or source code from earlier stages can reach the image.
package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"
	"github.com/wharfbuild/wharf/internal/errors"
)

// Options configures the packager.
type Options struct {
	// Base is the static-serving base image.
	Base string

	// Tag is the tag applied to the built image.
	Tag string

	// ContentRoot is where the artifact set lands inside the image.
	ContentRoot string

	// NoCache disables the daemon's layer cache.
	NoCache bool
}

// Result describes a built runtime image.
type Result struct {
	// ID is the image ID reported by the daemon.
	ID string

	// Tag is the tag the image was built with.
	Tag string

	// Duration is how long the build took.
	Duration time.Duration
}

// dockerClient is the slice of the Docker Engine API the packager uses.
type dockerClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageBuild(ctx context.Context, buildContext io.Reader, options build.ImageBuildOptions) (build.ImageBuildResponse, error)
}

// Packager constructs runtime images through the Docker Engine API.
type Packager struct {
	cli     dockerClient
	options Options
	log     *logrus.Entry
}

// NewPackager creates a packager connected to the daemon from the
// environment (DOCKER_HOST et al).
func NewPackager(options Options, log *logrus.Entry) (*Packager, error) {
	if err := ValidateTag(options.Tag); err != nil {
		return nil, err
	}
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, errors.New("W401").Wrap(err)
	}
	return NewPackagerWithClient(cli, options, log), nil
}

// NewPackagerWithClient creates a packager with an explicit client.
func NewPackagerWithClient(cli dockerClient, options Options, log *logrus.Entry) *Packager {
	return &Packager{cli: cli, options: options, log: log}
}

// Ping verifies the daemon is reachable. Run as a preflight so an
// unreachable daemon is a configuration error, not a mid-pipeline fault.
func (p *Packager) Ping(ctx context.Context) error {
	if _, err := p.cli.Ping(ctx); err != nil {
		return errors.New("W401").
			WithSuggestion("Start the Docker daemon or set DOCKER_HOST").
			Wrap(err)
	}
	return nil
}

// Build packages the artifact directory into a runtime image and returns
// the result. The artifact directory must exist and be non-empty.
func (p *Packager) Build(ctx context.Context, artifactDir string) (*Result, error) {
	start := time.Now()

	entries, err := os.ReadDir(artifactDir)
	if err != nil {
		return nil, errors.New("W402").
			WithDetail("looked for " + artifactDir).
			Wrap(err)
	}
	if len(entries) == 0 {
		return nil, errors.New("W402").
			WithDetail(artifactDir + " is empty")
	}

	var buildCtx bytes.Buffer
	if err := writeBuildContext(&buildCtx, p.dockerfile(), artifactDir); err != nil {
		return nil, errors.New("W400").Wrap(err)
	}

	resp, err := p.cli.ImageBuild(ctx, &buildCtx, build.ImageBuildOptions{
		Tags:        []string{p.options.Tag},
		Dockerfile:  "Dockerfile",
		NoCache:     p.options.NoCache,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return nil, errors.New("W400").Wrap(err)
	}
	defer resp.Body.Close()

	id, err := p.drainBuildOutput(resp.Body)
	if err != nil {
		return nil, err
	}

	if p.log != nil {
		p.log.WithFields(logrus.Fields{
			"tag":      p.options.Tag,
			"id":       id,
			"duration": time.Since(start).String(),
		}).Info("runtime image built")
	}

	return &Result{
		ID:       id,
		Tag:      p.options.Tag,
		Duration: time.Since(start),
	}, nil
}

// dockerfile renders the two-instruction runtime Dockerfile.
func (p *Packager) dockerfile() []byte {
	return []byte(fmt.Sprintf("FROM %s\nCOPY %s/ %s/\n",
		p.options.Base, contextArtifactDir, p.options.ContentRoot))
}

// buildMessage is one JSON object in the daemon's build output stream.
type buildMessage struct {
	Stream      string `json:"stream"`
	Error       string `json:"error"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
	Aux struct {
		ID string `json:"ID"`
	} `json:"aux"`
}

// drainBuildOutput consumes the daemon's build stream, returning the
// image ID on success or the daemon's error verbatim on failure.
func (p *Packager) drainBuildOutput(r io.Reader) (string, error) {
	var id string

	dec := json.NewDecoder(r)
	for {
		var msg buildMessage
		if err := dec.Decode(&msg); err == io.EOF {
			break
		} else if err != nil {
			return "", errors.New("W400").Wrap(err)
		}

		if msg.Stream != "" && p.log != nil {
			p.log.Debug(msg.Stream)
		}
		if msg.Aux.ID != "" {
			id = msg.Aux.ID
		}
		if msg.Error != "" {
			detail := msg.ErrorDetail.Message
			if detail == "" {
				detail = msg.Error
			}
			return "", errors.New("W400").WithDetail(detail)
		}
	}

	if id == "" {
		// Older daemons omit the aux record; the tag still resolves.
		id = p.options.Tag
	}

	return id, nil
}
