package paserk

import (
	"crypto/subtle"
	"fmt"
)

// Version identifies a PASETO protocol version by its header string.
// Two versions are equal iff their headers are byte-identical.
type Version struct {
	header string
}

var (
	// V3 is PASETO version 3 (NIST algorithms).
	V3 = Version{header: "v3"}

	// V4 is PASETO version 4 (Sodium algorithms).
	V4 = Version{header: "v4"}
)

// knownVersions is the lookup table used by ParseVersion.
var knownVersions = []Version{V3, V4}

// ParseVersion resolves a version header such as "v4".
func ParseVersion(header string) (Version, error) {
	for _, v := range knownVersions {
		if constantTimeEqual(v.header, header) {
			return v, nil
		}
	}
	return Version{}, fmt.Errorf("%w: %q", ErrUnknownVersion, header)
}

// Header returns the version header, e.g. "v4".
func (v Version) Header() string {
	return v.header
}

// String implements fmt.Stringer.
func (v Version) String() string {
	return v.header
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool {
	return v.header == ""
}

// Equal compares two versions in constant time.
func (v Version) Equal(other Version) bool {
	return constantTimeEqual(v.header, other.header)
}

// constantTimeEqual compares two strings without short-circuiting on content.
// Lengths are not hidden.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
