package image

import (
	"regexp"
	"strconv"

	"github.com/wharfbuild/wharf/internal/errors"
)

// tagPattern accepts the container image reference grammar for
// [registry[:port]/]name[:tag]. Digest references are not accepted
// since the packager always builds a fresh image.
var tagPattern = regexp.MustCompile(
	`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9.-]*[a-zA-Z0-9])?(?::[0-9]+)?/)?` + // registry host with optional port
		`[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*` + // first path component
		`(?:/[a-z0-9]+(?:(?:[._]|__|-+)[a-z0-9]+)*)*` + // further path components
		`(?::[a-zA-Z0-9_][a-zA-Z0-9._-]{0,127})?$`) // tag

// ValidateTag checks that tag is a usable image reference. Run before
// any stage so a malformed tag fails fast instead of surfacing as a
// daemon error after a full build.
func ValidateTag(tag string) error {
	if tag == "" || !tagPattern.MatchString(tag) {
		return errors.New("W601").
			WithDetail("got " + strconv.Quote(tag)).
			WithSuggestion("Use name[:tag] with a lowercase name, e.g. myapp:1.2.0")
	}
	return nil
}
