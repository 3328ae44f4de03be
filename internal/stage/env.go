package stage

import (
	"io"
	"os"
	"path/filepath"

	"github.com/wharfbuild/wharf/internal/errors"
)

// Env is an isolated filesystem root owned by one stage of the pipeline.
// It is created at stage entry, populated once by CopyIn, and discarded
// after its outputs are extracted. It is never reused across runs.
type Env struct {
	name string
	root string
}

// NewEnv creates a fresh build environment under the system temp dir.
func NewEnv(name string) (*Env, error) {
	root, err := os.MkdirTemp("", "wharf-"+name+"-*")
	if err != nil {
		return nil, errors.Newf(errors.CategoryCLI,
			"creating build environment: %v", err)
	}
	return &Env{name: name, root: root}, nil
}

// Name returns the stage name the environment belongs to.
func (e *Env) Name() string {
	return e.name
}

// Root returns the environment's filesystem root.
func (e *Env) Root() string {
	return e.root
}

// Path joins parts onto the environment root.
func (e *Env) Path(parts ...string) string {
	return filepath.Join(append([]string{e.root}, parts...)...)
}

// CopyIn materializes the source manifest inside the environment. This is
// the only mutation the environment undergoes before its build step runs.
// The manifest must have been verified first.
func (e *Env) CopyIn(m *SourceManifest) error {
	for _, entry := range m.Entries() {
		dst := filepath.Join(e.root, entry.As)
		if entry.Dir {
			if _, err := os.Stat(entry.Path); err != nil {
				if entry.Optional && os.IsNotExist(err) {
					continue
				}
				return errors.New("W100").Wrap(err)
			}
			if err := CopyTree(entry.Path, dst); err != nil {
				return errors.Newf(errors.CategoryCLI,
					"copying %s into build environment: %v", entry.Path, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return errors.Newf(errors.CategoryCLI,
				"preparing build environment: %v", err)
		}
		if err := CopyFile(entry.Path, dst); err != nil {
			return errors.Newf(errors.CategoryCLI,
				"copying %s into build environment: %v", entry.Path, err)
		}
	}
	return nil
}

// Extract moves a directory produced inside the environment to dest,
// replacing dest if it exists. Used to hand stage outputs to the next
// stage before the environment is discarded.
func (e *Env) Extract(rel, dest string) error {
	src := filepath.Join(e.root, rel)
	if _, err := os.Stat(src); err != nil {
		return errors.New("W402").
			WithDetail("stage output missing: " + src).
			Wrap(err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return errors.Newf(errors.CategoryCLI, "clearing %s: %v", dest, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Newf(errors.CategoryCLI, "preparing %s: %v", dest, err)
	}
	// Rename fails across filesystems; fall back to a copy.
	if err := os.Rename(src, dest); err != nil {
		if err := CopyTree(src, dest); err != nil {
			return errors.Newf(errors.CategoryCLI,
				"extracting stage output: %v", err)
		}
	}
	return nil
}

// Discard removes the environment and everything in it.
func (e *Env) Discard() error {
	return os.RemoveAll(e.root)
}

// CopyFile copies a single file, preserving its mode.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// CopyTree copies a directory tree rooted at src to dst.
func CopyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return CopyFile(path, target)
	})
}
