package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	if cfg.Bundle.Output != "dist" {
		t.Errorf("Output = %q, want dist", cfg.Bundle.Output)
	}
	if cfg.Image.Base != "nginx:alpine" {
		t.Errorf("Base = %q, want nginx:alpine", cfg.Image.Base)
	}
	if cfg.Image.ContentRoot != "/usr/share/nginx/html" {
		t.Errorf("ContentRoot = %q", cfg.Image.ContentRoot)
	}
	if cfg.Deps.Lock != "package-lock.json" {
		t.Errorf("Lock = %q", cfg.Deps.Lock)
	}
	if !cfg.HashingEnabled() {
		t.Error("hashing should default to on")
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)

	content := `{
  "name": "feedcalc",
  "version": "1.2.0",
  "paths": {"app": "src"},
  "bundle": {"output": "out", "minify": true},
  "image": {"base": "nginx:1.27-alpine"}
}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}

	if cfg.Name != "feedcalc" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Paths.App != "src" {
		t.Errorf("App = %q", cfg.Paths.App)
	}
	if cfg.Bundle.Output != "out" {
		t.Errorf("Output = %q", cfg.Bundle.Output)
	}
	if cfg.Image.Base != "nginx:1.27-alpine" {
		t.Errorf("Base = %q", cfg.Image.Base)
	}

	// Defaults still applied for unset fields.
	if cfg.Paths.Markup != "index.html" {
		t.Errorf("Markup = %q, want default", cfg.Paths.Markup)
	}
	if cfg.Preview.Port != DefaultPreviewPort {
		t.Errorf("Preview.Port = %d", cfg.Preview.Port)
	}
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), ConfigFileName))
	if err == nil {
		t.Fatal("expected error for missing wharf.json")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ConfigFileName)
	os.WriteFile(path, []byte("{not json"), 0644)

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestPathHelpers_Absolute(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.SaveTo(filepath.Join(tmpDir, ConfigFileName))

	if got, want := cfg.OutputPath(), filepath.Join(tmpDir, "dist"); got != want {
		t.Errorf("OutputPath = %q, want %q", got, want)
	}
	if got, want := cfg.ManifestPath(), filepath.Join(tmpDir, "helper", "package.json"); got != want {
		t.Errorf("ManifestPath = %q, want %q", got, want)
	}
	if got, want := cfg.LockPath(), filepath.Join(tmpDir, "helper", "package-lock.json"); got != want {
		t.Errorf("LockPath = %q, want %q", got, want)
	}
	if got, want := cfg.DepCachePath(), filepath.Join(tmpDir, ".wharf", "npm-cache"); got != want {
		t.Errorf("DepCachePath = %q, want %q", got, want)
	}
}

func TestImageTag(t *testing.T) {
	cfg := New()
	cfg.Name = "feedcalc"
	cfg.Version = "2.0.0"
	if cfg.ImageTag() != "feedcalc:2.0.0" {
		t.Errorf("ImageTag = %q", cfg.ImageTag())
	}

	cfg.Image.Tag = "registry.local/feedcalc:canary"
	if cfg.ImageTag() != "registry.local/feedcalc:canary" {
		t.Errorf("ImageTag = %q, want explicit override", cfg.ImageTag())
	}
}

func TestImageTag_Fallback(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	if cfg.ImageTag() != "wharf-app:latest" {
		t.Errorf("ImageTag = %q", cfg.ImageTag())
	}
}

func TestValidate_Port(t *testing.T) {
	cfg := New()
	cfg.Preview.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range port")
	}

	cfg.Preview.Port = 8080
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate error: %v", err)
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b", "c")
	os.MkdirAll(nested, 0755)

	cfg := New()
	if err := cfg.SaveTo(filepath.Join(tmpDir, ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}

	// Resolve symlinks so macOS /private/var matches.
	wantRoot, _ := filepath.EvalSymlinks(tmpDir)
	gotRoot, _ := filepath.EvalSymlinks(root)
	if gotRoot != wantRoot {
		t.Errorf("root = %q, want %q", gotRoot, wantRoot)
	}
}

func TestFindProjectRoot_NotFound(t *testing.T) {
	if _, err := FindProjectRoot(t.TempDir()); err == nil {
		t.Error("expected error when no wharf.json exists")
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.Name = "roundtrip"
	path := filepath.Join(tmpDir, ConfigFileName)

	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Name != "roundtrip" {
		t.Errorf("Name = %q", loaded.Name)
	}
}

func TestHashingEnabled_Explicit(t *testing.T) {
	off := false
	cfg := New()
	cfg.Bundle.Hashing = &off
	if cfg.HashingEnabled() {
		t.Error("hashing should be off when explicitly disabled")
	}
}
