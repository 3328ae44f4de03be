package stage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStateMachine_HappyPath(t *testing.T) {
	m := NewMachine()

	if m.Current() != StateInit {
		t.Fatalf("initial state = %s, want INIT", m.Current())
	}

	for _, next := range []State{
		StateDependenciesInstalled,
		StateBundled,
		StateAssembled,
		StatePackaged,
	} {
		if err := m.Advance(next); err != nil {
			t.Fatalf("Advance(%s) error: %v", next, err)
		}
		if m.Current() != next {
			t.Fatalf("Current = %s, want %s", m.Current(), next)
		}
	}

	if !m.Current().Terminal() {
		t.Error("PACKAGED should be terminal")
	}
}

func TestStateMachine_SkipIsIllegal(t *testing.T) {
	m := NewMachine()
	if err := m.Advance(StateBundled); err == nil {
		t.Error("skipping DEPENDENCIES_INSTALLED should be illegal")
	}
	if err := m.Advance(StateInit); err == nil {
		t.Error("advancing to the current state should be illegal")
	}
}

func TestStateMachine_Fail(t *testing.T) {
	m := NewMachine()
	m.Advance(StateDependenciesInstalled)
	m.Fail()

	if m.Current() != StateFailed {
		t.Errorf("Current = %s, want FAILED", m.Current())
	}
	if !m.Current().Terminal() {
		t.Error("FAILED should be terminal")
	}

	// Failing a terminal state is a no-op.
	m2 := NewMachine()
	m2.Advance(StateDependenciesInstalled)
	m2.Advance(StateBundled)
	m2.Advance(StateAssembled)
	m2.Advance(StatePackaged)
	m2.Fail()
	if m2.Current() != StatePackaged {
		t.Errorf("Fail on PACKAGED should not transition, got %s", m2.Current())
	}
}

func TestState_Next(t *testing.T) {
	if next, ok := StateInit.Next(); !ok || next != StateDependenciesInstalled {
		t.Errorf("Next(INIT) = %s, %v", next, ok)
	}
	if _, ok := StatePackaged.Next(); ok {
		t.Error("PACKAGED should have no successor")
	}
	if _, ok := StateFailed.Next(); ok {
		t.Error("FAILED should have no successor")
	}
}

func TestSourceManifest_Verify(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "index.html")
	dir := filepath.Join(tmpDir, "app")
	os.WriteFile(file, []byte("<html></html>"), 0644)
	os.MkdirAll(dir, 0755)

	m := NewSourceManifest().
		AddFile(file, "index.html").
		AddDir(dir, "app").
		AddOptionalDir(filepath.Join(tmpDir, "absent"), "absent")

	if err := m.Verify(); err != nil {
		t.Fatalf("Verify error: %v", err)
	}
}

func TestSourceManifest_MissingRequired(t *testing.T) {
	m := NewSourceManifest().
		AddFile(filepath.Join(t.TempDir(), "package-lock.json"), "package-lock.json").
		WithCode("W102")

	err := m.Verify()
	if err == nil {
		t.Fatal("expected error for missing required file")
	}
	if got := err.Error(); got != "W102: Lock file missing" {
		t.Errorf("error = %q", got)
	}
}

func TestSourceManifest_TypeMismatch(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "app")
	os.WriteFile(path, []byte("not a dir"), 0644)

	m := NewSourceManifest().AddDir(path, "app")
	if err := m.Verify(); err == nil {
		t.Error("expected error when a declared dir is a file")
	}
}

func TestEnv_CopyInAndExtract(t *testing.T) {
	srcDir := t.TempDir()
	os.MkdirAll(filepath.Join(srcDir, "app", "sub"), 0755)
	os.WriteFile(filepath.Join(srcDir, "app", "main.go"), []byte("package main"), 0644)
	os.WriteFile(filepath.Join(srcDir, "app", "sub", "x.go"), []byte("package sub"), 0644)
	os.WriteFile(filepath.Join(srcDir, "index.html"), []byte("<html></html>"), 0644)

	env, err := NewEnv("build")
	if err != nil {
		t.Fatal(err)
	}
	defer env.Discard()

	m := NewSourceManifest().
		AddDir(filepath.Join(srcDir, "app"), "app").
		AddFile(filepath.Join(srcDir, "index.html"), "index.html")

	if err := m.Verify(); err != nil {
		t.Fatal(err)
	}
	if err := env.CopyIn(m); err != nil {
		t.Fatalf("CopyIn error: %v", err)
	}

	for _, rel := range []string{"app/main.go", "app/sub/x.go", "index.html"} {
		if _, err := os.Stat(env.Path(rel)); err != nil {
			t.Errorf("missing %s in env: %v", rel, err)
		}
	}

	// Produce an output inside the env and extract it.
	os.MkdirAll(env.Path("dist"), 0755)
	os.WriteFile(env.Path("dist", "out.txt"), []byte("artifact"), 0644)

	dest := filepath.Join(t.TempDir(), "dist")
	if err := env.Extract("dist", dest); err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "artifact" {
		t.Errorf("extracted content = %q", data)
	}
}

func TestEnv_ExtractMissingOutput(t *testing.T) {
	env, err := NewEnv("build")
	if err != nil {
		t.Fatal(err)
	}
	defer env.Discard()

	if err := env.Extract("dist", filepath.Join(t.TempDir(), "dist")); err == nil {
		t.Error("expected error for missing stage output")
	}
}

func TestEnv_Discard(t *testing.T) {
	env, err := NewEnv("scratch")
	if err != nil {
		t.Fatal(err)
	}
	root := env.Root()
	os.WriteFile(env.Path("f"), []byte("x"), 0644)

	if err := env.Discard(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Error("env root should be removed")
	}
}

func TestCopyFile_PreservesMode(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "bin")
	dst := filepath.Join(tmpDir, "bin-copy")
	os.WriteFile(src, []byte("#!/bin/sh"), 0755)

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}
