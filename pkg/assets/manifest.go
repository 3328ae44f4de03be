// Package assets resolves artifact names through the bundle manifest.
//
// The bundler writes a manifest.json mapping source asset names to their
// content-hashed output names:
//
//	{
//	  "styles.css": "styles.a1b2c3d4.css",
//	  "logo.png": "assets/logo.e5f6a7b8.png"
//	}
//
// The preview server and publish tooling load that manifest to address
// files inside an artifact set without knowing the hash values.
package assets

import (
	"encoding/json"
	"os"
	"sync"
)

// Manifest maps source asset names to their output names. Safe for
// concurrent use; watch mode replaces its contents after each rebuild.
type Manifest struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{entries: make(map[string]string)}
}

// Load reads a manifest.json produced by the bundler.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return &Manifest{entries: entries}, nil
}

// Resolve returns the output name for a source name. Unknown names come
// back unchanged, which covers the fixed-name outputs that are never
// hashed.
func (m *Manifest) Resolve(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.entries[source]; ok {
		return resolved
	}
	return source
}

// Has reports whether the manifest knows the source name.
func (m *Manifest) Has(source string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[source]
	return ok
}

// Replace swaps the manifest contents. Called after a rebuild in watch
// mode.
func (m *Manifest) Replace(entries map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]string, len(entries))
	for k, v := range entries {
		m.entries[k] = v
	}
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// All returns a copy of the entries.
func (m *Manifest) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}
