// pkg/platform/version.go - platform server version parsing and ordering.

package platform

import (
	"fmt"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// ErrBadVersion is returned when a version string does not match the
// dotted-numeric Major.Minor.Build.Revision pattern.
var ErrBadVersion = fmt.Errorf("malformed platform version")

// Version is an installed or desired platform server version. Fields are
// ordered numerically left to right; missing trailing fields count as zero.
type Version struct {
	raw string
	v   *goversion.Version
}

// MajorVersion selects version-conditional behavior. The configuration tool's
// argument contract differs between platform generations, so callers branch on
// this enum rather than on raw version strings.
type MajorVersion int

const (
	MajorUnknown MajorVersion = iota
	Major10
	Major11
)

// String returns the two-field major version, e.g. "11.0".
func (m MajorVersion) String() string {
	switch m {
	case Major10:
		return "10.0"
	case Major11:
		return "11.0"
	default:
		return "unknown"
	}
}

// ParseVersion parses a dotted numeric version string with one to four
// fields. Leading "v" prefixes, pre-release tags, and non-numeric segments
// are rejected with ErrBadVersion.
func ParseVersion(text string) (Version, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Version{}, fmt.Errorf("%w: empty string", ErrBadVersion)
	}

	segments := strings.Split(trimmed, ".")
	if len(segments) > 4 {
		return Version{}, fmt.Errorf("%w: %q has more than four fields", ErrBadVersion, text)
	}
	for _, seg := range segments {
		n, err := strconv.Atoi(seg)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrBadVersion, text)
		}
	}

	parsed, err := goversion.NewVersion(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", ErrBadVersion, text, err)
	}
	return Version{raw: trimmed, v: parsed}, nil
}

// MustParseVersion is ParseVersion for compile-time constants; it panics on
// malformed input and is intended for tests and default configuration only.
func MustParseVersion(text string) Version {
	v, err := ParseVersion(text)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v is the absent version.
func (v Version) IsZero() bool {
	return v.v == nil
}

// String returns the version as originally supplied.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.raw
}

// Compare orders two versions field-by-field numerically. It returns -1 when
// v is older than other, 0 when equal, and +1 when newer.
func (v Version) Compare(other Version) int {
	return v.v.Compare(other.v)
}

// LessThan reports whether v is strictly older than other.
func (v Version) LessThan(other Version) bool {
	return v.v.LessThan(other.v)
}

// GreaterThan reports whether v is strictly newer than other.
func (v Version) GreaterThan(other Version) bool {
	return v.v.GreaterThan(other.v)
}

// Equal reports whether both versions order the same; trailing zero fields do
// not affect equality ("11.0" equals "11.0.0.0").
func (v Version) Equal(other Version) bool {
	return v.v.Equal(other.v)
}

// Major maps the first two fields onto the supported generation enum.
func (v Version) Major() MajorVersion {
	if v.v == nil {
		return MajorUnknown
	}
	segs := v.v.Segments()
	if len(segs) < 1 {
		return MajorUnknown
	}
	minor := 0
	if len(segs) > 1 {
		minor = segs[1]
	}
	switch {
	case segs[0] == 10 && minor == 0:
		return Major10
	case segs[0] == 11 && minor == 0:
		return Major11
	default:
		return MajorUnknown
	}
}
