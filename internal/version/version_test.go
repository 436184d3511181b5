package version

import (
	"regexp"
	"testing"
)

// Release automation refuses to publish when the pushed tag and the
// declared version disagree, so the declared version must always be a
// well-formed tag value.
var tagPattern = regexp.MustCompile(`^v\d+\.\d+\.\d+$`)

func TestVersionIsWellFormedTagValue(t *testing.T) {
	if !tagPattern.MatchString(Version) {
		t.Fatalf("Version %q does not match vMAJOR.MINOR.PATCH", Version)
	}
}
