// Package bundle produces the artifact set: the self-contained static
// output of the build pipeline.
//
// The bundler runs the compiler toolchain exactly once per pipeline run
// and performs, in order:
//   - WASM compilation of the application source (GOOS=js GOARCH=wasm)
//   - JS glue (wasm_exec.js) extraction from the Go installation
//   - helper script bundling and minification through a pinned esbuild
//   - stylesheet and static asset copying with content-hash cache busting
//   - markup rewriting so every reference resolves inside the output
//   - asset manifest generation
//
// Any failure is fatal; the bundler never retries. Missing toolchain
// pieces are configuration errors caught by the preflight step before the
// bundler runs.
//
// # Output Structure
//
//	dist/
//	├── index.html          # rewritten markup
//	├── app.wasm            # compiled module
//	├── wasm_exec.js        # JS glue
//	├── helper.js           # bundled helper script
//	├── styles.<hash>.css
//	├── assets/             # static files with hashes
//	└── manifest.json       # asset manifest
//
// The output references nothing outside itself; the markup rewrite fails
// the build when it cannot resolve a local reference.
package bundle
