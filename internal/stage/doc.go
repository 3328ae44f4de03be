// Package stage models the pipeline's build stages.
//
// A stage is one isolated filesystem and tooling context. Each stage owns
// an Env: a throwaway temp root that receives a verified SourceManifest via
// CopyIn, hosts exactly one build step, and is discarded after its outputs
// are extracted. Build environments are fully ephemeral; a run interrupted
// mid-stage leaves nothing to resume from and the pipeline restarts from
// INIT.
//
// The package also holds the pipeline state machine:
//
//	INIT -> DEPENDENCIES_INSTALLED -> BUNDLED -> ASSEMBLED -> PACKAGED
//
// with a terminal FAILED state reachable from any non-terminal state.
package stage
