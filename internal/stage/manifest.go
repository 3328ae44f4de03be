package stage

import (
	"os"

	"github.com/wharfbuild/wharf/internal/errors"
)

// Entry is one declared input in a source manifest.
type Entry struct {
	// Path is the absolute path of the input on the host.
	Path string

	// As is the name the input takes inside the build environment.
	As string

	// Dir indicates the entry is a directory tree.
	Dir bool

	// Optional entries are skipped when absent instead of failing
	// verification.
	Optional bool

	// Code is the error code raised when a required entry is absent.
	// Defaults to W100.
	Code string
}

// SourceManifest is the declared set of input files and directories a
// stage consumes. Immutable once verified; copying it into a build
// environment is the only mutation the environment undergoes before its
// build step runs.
type SourceManifest struct {
	entries []Entry
}

// NewSourceManifest creates an empty manifest.
func NewSourceManifest() *SourceManifest {
	return &SourceManifest{}
}

// AddFile declares a required input file.
func (m *SourceManifest) AddFile(path, as string) *SourceManifest {
	m.entries = append(m.entries, Entry{Path: path, As: as})
	return m
}

// AddDir declares a required input directory.
func (m *SourceManifest) AddDir(path, as string) *SourceManifest {
	m.entries = append(m.entries, Entry{Path: path, As: as, Dir: true})
	return m
}

// AddOptionalDir declares a directory that is copied when present.
func (m *SourceManifest) AddOptionalDir(path, as string) *SourceManifest {
	m.entries = append(m.entries, Entry{Path: path, As: as, Dir: true, Optional: true})
	return m
}

// WithCode sets the error code raised if the most recently added entry
// is missing.
func (m *SourceManifest) WithCode(code string) *SourceManifest {
	if len(m.entries) > 0 {
		m.entries[len(m.entries)-1].Code = code
	}
	return m
}

// Entries returns the declared entries.
func (m *SourceManifest) Entries() []Entry {
	return m.entries
}

// Verify stats every required entry. The first missing entry aborts with
// its declared error code. Verification runs before any build tool is
// invoked, so a missing input never reaches a toolchain.
func (m *SourceManifest) Verify() error {
	for _, e := range m.entries {
		info, err := os.Stat(e.Path)
		if err != nil {
			if e.Optional {
				continue
			}
			code := e.Code
			if code == "" {
				code = "W100"
			}
			return errors.New(code).
				WithDetail("missing input: " + e.Path).
				Wrap(err)
		}
		if e.Dir != info.IsDir() {
			return errors.New("W100").
				WithDetail("input has wrong type (file vs directory): " + e.Path)
		}
	}
	return nil
}
