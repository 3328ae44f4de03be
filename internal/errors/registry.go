package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Precondition Errors (W100-W199)
	// ============================================

	"W100": {
		Category: CategoryPrecondition,
		Message:  "Required input file missing",
		Detail:   "A file declared in the source manifest does not exist. The pipeline halts before any build tool runs.",
	},
	"W101": {
		Category: CategoryPrecondition,
		Message:  "Package manifest missing",
		Detail:   "The dependency installer requires a package manifest (package.json) at the configured path.",
	},
	"W102": {
		Category: CategoryPrecondition,
		Message:  "Lock file missing",
		Detail:   "The dependency installer requires a lock file (package-lock.json). Installing without one would not be reproducible.",
	},
	"W103": {
		Category: CategoryPrecondition,
		Message:  "Source tree missing",
		Detail:   "The configured application source directory does not exist.",
	},
	"W104": {
		Category: CategoryPrecondition,
		Message:  "Markup file missing",
		Detail:   "The entry markup document (index.html) was not found at the configured path.",
	},

	// ============================================
	// Dependency Errors (W200-W299)
	// ============================================

	"W200": {
		Category: CategoryDependency,
		Message:  "Dependency installation failed",
		Detail:   "The package install command exited with an error. The manifest and lock file may be out of sync.",
	},
	"W201": {
		Category: CategoryDependency,
		Message:  "Package tool not found",
		Detail:   "npm is not installed or not in PATH.",
	},
	"W202": {
		Category: CategoryDependency,
		Message:  "Bundler binary download failed",
		Detail:   "The standalone esbuild binary could not be downloaded or installed.",
	},

	// ============================================
	// Compile Errors (W300-W399)
	// ============================================

	"W300": {
		Category: CategoryCompile,
		Message:  "WASM compilation failed",
		Detail:   "The Go compiler rejected the application source. Check the output for compiler errors.",
	},
	"W301": {
		Category: CategoryCompile,
		Message:  "Script bundling failed",
		Detail:   "esbuild failed to bundle the helper script module.",
	},
	"W302": {
		Category: CategoryCompile,
		Message:  "Markup references missing asset",
		Detail:   "The markup document references an asset that was not produced by the bundle step.",
	},
	"W303": {
		Category: CategoryCompile,
		Message:  "Output directory not writable",
		Detail:   "The bundle output directory could not be created or cleaned.",
	},
	"W304": {
		Category: CategoryCompile,
		Message:  "JS glue not found",
		Detail:   "wasm_exec.js was not found in the Go installation. The toolchain may be incomplete.",
	},

	// ============================================
	// Packaging Errors (W400-W499)
	// ============================================

	"W400": {
		Category: CategoryPackaging,
		Message:  "Image build failed",
		Detail:   "The container daemon reported an error while building the runtime image.",
	},
	"W401": {
		Category: CategoryPackaging,
		Message:  "Container daemon unreachable",
		Detail:   "Unable to connect to the Docker daemon. Is it running?",
	},
	"W402": {
		Category: CategoryPackaging,
		Message:  "Artifact directory missing",
		Detail:   "The bundle output directory does not exist. Run the bundle step first.",
	},
	"W403": {
		Category: CategoryPackaging,
		Message:  "Artifact directory contaminated",
		Detail:   "The bundle output contains build-time state (dependency caches or source trees) that must not enter the runtime image.",
	},
	"W404": {
		Category: CategoryPackaging,
		Message:  "Publish upload failed",
		Detail:   "Uploading the artifact set to object storage failed.",
	},

	// ============================================
	// Configuration Errors (W500-W599)
	// ============================================

	"W500": {
		Category: CategoryConfig,
		Message:  "Invalid wharf.json",
		Detail:   "The wharf.json configuration file is malformed.",
	},
	"W501": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "The configured port number is out of range.",
	},
	"W502": {
		Category: CategoryConfig,
		Message:  "Go toolchain not found",
		Detail:   "Go is not installed or not in PATH.",
	},
	"W503": {
		Category: CategoryConfig,
		Message:  "Toolchain missing WASM target",
		Detail:   "The installed Go toolchain cannot target js/wasm.",
	},
	"W504": {
		Category: CategoryConfig,
		Message:  "Missing publish bucket",
		Detail:   "No S3 bucket is configured for publishing.",
	},

	// ============================================
	// CLI Errors (W600-W699)
	// ============================================

	"W600": {
		Category: CategoryCLI,
		Message:  "Not a wharf project",
		Detail:   "The current directory is not a wharf project. Run this command from a directory with wharf.json.",
	},
	"W601": {
		Category: CategoryCLI,
		Message:  "Invalid image tag",
		Detail:   "The image tag is not a valid container image reference.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
