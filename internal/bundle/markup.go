package bundle

import (
	"os"
	"regexp"
	"strings"

	"github.com/wharfbuild/wharf/internal/errors"
)

// refPattern matches src/href attribute values in the markup document.
var refPattern = regexp.MustCompile(`(src|href)\s*=\s*"([^"]+)"`)

// rewriteMarkup copies the entry markup document into the artifact set,
// pointing every local asset reference at its bundled (possibly hashed)
// name. A reference to an asset the bundle did not produce is a fatal
// compile error: the artifact set must be self-sufficient for serving.
func rewriteMarkup(src, dest string, manifest map[string]string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return errors.New("W104").
			WithDetail("looked for " + src).
			Wrap(err)
	}

	var missing []string
	out := refPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		groups := refPattern.FindStringSubmatch(match)
		attr, ref := groups[1], groups[2]

		if isExternalRef(ref) {
			return match
		}

		name := strings.TrimPrefix(ref, "./")
		name = strings.TrimPrefix(name, "/")
		// The entry document always ships under its own fixed name, so
		// a self-link needs no manifest entry.
		if name == MarkupName {
			return match
		}
		resolved, ok := manifest[name]
		if !ok {
			missing = append(missing, ref)
			return match
		}
		return attr + `="` + resolved + `"`
	})

	if len(missing) > 0 {
		return errors.New("W302").
			WithDetail("unresolved references: " + strings.Join(missing, ", ")).
			WithSuggestion("Add the missing files or remove the references from the markup")
	}

	return os.WriteFile(dest, []byte(out), 0644)
}

// isExternalRef reports whether a reference points outside the artifact
// set and must be left untouched.
func isExternalRef(ref string) bool {
	switch {
	case ref == "",
		strings.HasPrefix(ref, "http://"),
		strings.HasPrefix(ref, "https://"),
		strings.HasPrefix(ref, "//"),
		strings.HasPrefix(ref, "data:"),
		strings.HasPrefix(ref, "mailto:"),
		strings.HasPrefix(ref, "#"):
		return true
	}
	return false
}
