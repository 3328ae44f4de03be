package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wharfbuild/wharf/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "wharf.json"

	// DefaultOutput is the default bundle output directory.
	DefaultOutput = "dist"

	// DefaultBaseImage is the default runtime base image.
	DefaultBaseImage = "nginx:alpine"

	// DefaultContentRoot is where the artifact set lands inside the image.
	DefaultContentRoot = "/usr/share/nginx/html"

	// DefaultPreviewPort is the default preview server port.
	DefaultPreviewPort = 8080

	// DefaultPreviewHost is the default preview server host.
	DefaultPreviewHost = "localhost"
)

// Config represents the complete wharf.json configuration.
type Config struct {
	// Name is the project name. Also the default image repository.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Paths contains the declared source inputs.
	Paths PathsConfig `json:"paths,omitempty"`

	// Deps contains dependency installer settings.
	Deps DepsConfig `json:"deps,omitempty"`

	// Bundle contains bundler settings.
	Bundle BundleConfig `json:"bundle,omitempty"`

	// Image contains runtime image settings.
	Image ImageConfig `json:"image,omitempty"`

	// Publish contains object storage publish settings.
	Publish PublishConfig `json:"publish,omitempty"`

	// Preview contains local preview server settings.
	Preview PreviewConfig `json:"preview,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// PathsConfig declares the source inputs the pipeline consumes.
type PathsConfig struct {
	// App is the application source directory.
	App string `json:"app,omitempty"`

	// Markup is the entry markup document.
	Markup string `json:"markup,omitempty"`

	// Styles is the stylesheet directory.
	Styles string `json:"styles,omitempty"`

	// Helper is the auxiliary script module directory.
	Helper string `json:"helper,omitempty"`

	// Static is the static assets directory.
	Static string `json:"static,omitempty"`
}

// DepsConfig contains dependency installer settings.
type DepsConfig struct {
	// Manifest is the package manifest file, relative to the helper dir.
	Manifest string `json:"manifest,omitempty"`

	// Lock is the lock file, relative to the helper dir.
	Lock string `json:"lock,omitempty"`

	// Cache is the dependency cache directory.
	Cache string `json:"cache,omitempty"`
}

// BundleConfig contains bundler settings.
type BundleConfig struct {
	// Output is the output directory for the artifact set.
	Output string `json:"output,omitempty"`

	// Minify enables script minification.
	Minify bool `json:"minify,omitempty"`

	// Hashing enables content-hash renaming of assets.
	Hashing *bool `json:"hashing,omitempty"`

	// Tags are build tags to pass to the compiler.
	Tags []string `json:"tags,omitempty"`

	// LDFlags are additional linker flags.
	LDFlags string `json:"ldflags,omitempty"`
}

// ImageConfig contains runtime image settings.
type ImageConfig struct {
	// Base is the static-serving base image.
	Base string `json:"base,omitempty"`

	// Tag is the tag for the built image. Defaults to name:version.
	Tag string `json:"tag,omitempty"`

	// ContentRoot is the path inside the image where the artifact set lands.
	ContentRoot string `json:"contentRoot,omitempty"`
}

// PublishConfig contains object storage publish settings.
type PublishConfig struct {
	// Bucket is the S3 bucket name.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the key prefix for uploaded objects.
	Prefix string `json:"prefix,omitempty"`

	// Region overrides the region from the environment.
	Region string `json:"region,omitempty"`
}

// PreviewConfig contains local preview server settings.
type PreviewConfig struct {
	// Port is the port to serve on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Version: "0.1.0",
		Paths: PathsConfig{
			App:    "app",
			Markup: "index.html",
			Styles: "styles",
			Helper: "helper",
			Static: "static",
		},
		Deps: DepsConfig{
			Manifest: "package.json",
			Lock:     "package-lock.json",
			Cache:    ".wharf/npm-cache",
		},
		Bundle: BundleConfig{
			Output: DefaultOutput,
			Minify: true,
		},
		Image: ImageConfig{
			Base:        DefaultBaseImage,
			ContentRoot: DefaultContentRoot,
		},
		Preview: PreviewConfig{
			Port: DefaultPreviewPort,
			Host: DefaultPreviewHost,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for wharf.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("W600").
				WithDetail("No wharf.json found in " + filepath.Dir(path)).
				WithSuggestion("Create wharf.json in the project root")
		}
		return nil, errors.New("W500").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("W500").
			WithDetail("Failed to parse wharf.json: " + err.Error()).
			WithSuggestion("Check that wharf.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("W500").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("W500").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Paths.App == "" {
		c.Paths.App = "app"
	}
	if c.Paths.Markup == "" {
		c.Paths.Markup = "index.html"
	}
	if c.Paths.Styles == "" {
		c.Paths.Styles = "styles"
	}
	if c.Paths.Helper == "" {
		c.Paths.Helper = "helper"
	}
	if c.Paths.Static == "" {
		c.Paths.Static = "static"
	}

	if c.Deps.Manifest == "" {
		c.Deps.Manifest = "package.json"
	}
	if c.Deps.Lock == "" {
		c.Deps.Lock = "package-lock.json"
	}
	if c.Deps.Cache == "" {
		c.Deps.Cache = ".wharf/npm-cache"
	}

	if c.Bundle.Output == "" {
		c.Bundle.Output = DefaultOutput
	}

	if c.Image.Base == "" {
		c.Image.Base = DefaultBaseImage
	}
	if c.Image.ContentRoot == "" {
		c.Image.ContentRoot = DefaultContentRoot
	}

	if c.Preview.Port == 0 {
		c.Preview.Port = DefaultPreviewPort
	}
	if c.Preview.Host == "" {
		c.Preview.Host = DefaultPreviewHost
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		return errors.New("W501").
			WithDetail("Port must be between 0 and 65535")
	}
	return nil
}

// ImageTag returns the tag for the runtime image.
func (c *Config) ImageTag() string {
	if c.Image.Tag != "" {
		return c.Image.Tag
	}
	name := c.Name
	if name == "" {
		name = "wharf-app"
	}
	version := c.Version
	if version == "" {
		version = "latest"
	}
	return name + ":" + version
}

// PreviewAddress returns the address string for the preview server.
func (c *Config) PreviewAddress() string {
	return c.Preview.Host + ":" + strconv.Itoa(c.Preview.Port)
}

// abs resolves a config-relative path against the project root.
func (c *Config) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// OutputPath returns the absolute path to the bundle output directory.
func (c *Config) OutputPath() string {
	return c.abs(c.Bundle.Output)
}

// AppPath returns the absolute path to the application source directory.
func (c *Config) AppPath() string {
	return c.abs(c.Paths.App)
}

// MarkupPath returns the absolute path to the entry markup document.
func (c *Config) MarkupPath() string {
	return c.abs(c.Paths.Markup)
}

// StylesPath returns the absolute path to the stylesheet directory.
func (c *Config) StylesPath() string {
	return c.abs(c.Paths.Styles)
}

// HelperPath returns the absolute path to the helper module directory.
func (c *Config) HelperPath() string {
	return c.abs(c.Paths.Helper)
}

// StaticPath returns the absolute path to the static assets directory.
func (c *Config) StaticPath() string {
	return c.abs(c.Paths.Static)
}

// ManifestPath returns the absolute path to the package manifest.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.HelperPath(), c.Deps.Manifest)
}

// LockPath returns the absolute path to the lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.HelperPath(), c.Deps.Lock)
}

// DepCachePath returns the absolute path to the dependency cache directory.
func (c *Config) DepCachePath() string {
	return c.abs(c.Deps.Cache)
}

// HashingEnabled reports whether content-hash renaming is enabled.
// Defaults to true when unset.
func (c *Config) HashingEnabled() bool {
	if c.Bundle.Hashing == nil {
		return true
	}
	return *c.Bundle.Hashing
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing wharf.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("W600").
				WithDetail("No wharf.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
