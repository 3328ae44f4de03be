package toolchain

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	// EsbuildVersion is the esbuild version to use.
	// Update this when a new stable version is released.
	EsbuildVersion = "0.21.5"

	// npmRegistryURL is the base URL for downloading esbuild tarballs.
	npmRegistryURL = "https://registry.npmjs.org"

	// DefaultBinDir is the default directory for storing the binary.
	DefaultBinDir = ".wharf/bin"
)

// Esbuild manages the esbuild standalone binary. It downloads the pinned
// version once, caches it per-version, and runs it without requiring a
// Node.js toolchain on the bundling path.
type Esbuild struct {
	// Version is the esbuild version.
	Version string

	// BinDir is the directory where the binary is stored.
	BinDir string

	// DownloadBaseURL is the base URL for downloading esbuild packages.
	// If empty, the npm registry is used.
	DownloadBaseURL string

	// HTTPClient is used for downloads. If nil, a default client is used.
	HTTPClient *http.Client

	mu sync.Mutex
}

// NewEsbuild creates an Esbuild with default settings.
func NewEsbuild() *Esbuild {
	return &Esbuild{
		Version:         EsbuildVersion,
		BinDir:          defaultBinDir(),
		DownloadBaseURL: npmRegistryURL,
	}
}

// defaultBinDir returns the default binary directory (~/.wharf/bin).
func defaultBinDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", DefaultBinDir)
	}
	return filepath.Join(home, DefaultBinDir)
}

// platformPackage returns the npm package name for the host platform,
// e.g. "@esbuild/linux-x64".
func platformPackage() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x64"
	}
	return fmt.Sprintf("@esbuild/%s-%s", runtime.GOOS, arch)
}

// binaryPath returns the path where the binary should be stored.
func (e *Esbuild) binaryPath() string {
	// Store per-version so upgrades don't silently keep using an older
	// binary.
	name := "esbuild"
	if runtime.GOOS == "windows" {
		name = "esbuild.exe"
	}
	return filepath.Join(e.BinDir, e.Version, name)
}

// downloadURL returns the tarball URL for the host platform.
func (e *Esbuild) downloadURL() string {
	base := e.DownloadBaseURL
	if base == "" {
		base = npmRegistryURL
	}
	pkg := platformPackage()
	// @esbuild/linux-x64 -> linux-x64-<version>.tgz
	short := strings.TrimPrefix(pkg, "@esbuild/")
	return fmt.Sprintf("%s/%s/-/%s-%s.tgz", strings.TrimRight(base, "/"), pkg, short, e.Version)
}

// IsInstalled checks if the binary is installed.
func (e *Esbuild) IsInstalled() bool {
	_, err := os.Stat(e.binaryPath())
	return err == nil
}

// EnsureInstalled downloads the binary if it doesn't exist.
// Returns the path to the binary.
func (e *Esbuild) EnsureInstalled(ctx context.Context, progress func(msg string)) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	path := e.binaryPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	// A system-wide esbuild of any version beats a download when the
	// pinned one isn't cached yet and the network may not be available.
	if sys, err := exec.LookPath("esbuild"); err == nil {
		return sys, nil
	}

	if err := e.download(ctx, progress); err != nil {
		return "", err
	}

	return path, nil
}

// download fetches the platform tarball and extracts bin/esbuild.
func (e *Esbuild) download(ctx context.Context, progress func(msg string)) error {
	url := e.downloadURL()

	if progress != nil {
		progress(fmt.Sprintf("Downloading esbuild %s...", e.Version))
	}

	if err := os.MkdirAll(filepath.Dir(e.binaryPath()), 0755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	client := e.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if client.Timeout == 0 {
		client.Timeout = 5 * time.Minute
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d (URL: %s)", resp.StatusCode, url)
	}

	// Extract to a temp file first, then rename (atomic).
	tmpPath := e.binaryPath() + ".tmp"
	if err := extractBinary(resp.Body, tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Chmod(tmpPath, 0755); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to make executable: %w", err)
	}

	if err := os.Rename(tmpPath, e.binaryPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to install binary: %w", err)
	}

	if progress != nil {
		progress(fmt.Sprintf("Installed to %s", e.binaryPath()))
	}

	return nil
}

// extractBinary pulls the esbuild executable out of the npm tarball.
func extractBinary(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to read tarball: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tarball: %w", err)
		}
		// The executable lives at package/bin/esbuild in the tarball.
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		base := filepath.Base(hdr.Name)
		if base != "esbuild" && base != "esbuild.exe" {
			continue
		}

		f, err := os.Create(dest)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return fmt.Errorf("failed to write file: %w", err)
		}
		return f.Close()
	}

	return fmt.Errorf("esbuild executable not found in tarball")
}
