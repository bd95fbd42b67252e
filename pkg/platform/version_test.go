package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "four fields", input: "10.0.823.0"},
		{name: "two fields", input: "11.0"},
		{name: "one field", input: "11"},
		{name: "surrounding whitespace", input: " 10.0.1.2 "},
		{name: "empty", input: "", wantErr: true},
		{name: "five fields", input: "1.2.3.4.5", wantErr: true},
		{name: "alpha segment", input: "10.0.x.1", wantErr: true},
		{name: "v prefix", input: "v10.0", wantErr: true},
		{name: "prerelease tag", input: "10.0.0-beta", wantErr: true},
		{name: "negative field", input: "10.-1", wantErr: true},
		{name: "trailing dot", input: "10.0.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVersion(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrBadVersion)
				assert.True(t, v.IsZero())
				return
			}
			require.NoError(t, err)
			assert.False(t, v.IsZero())
		})
	}
}

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"10.0.823.0", "10.0.823.0", 0},
		{"10.0", "10.0.0.0", 0},
		{"10.0.500.0", "10.0.823.0", -1},
		{"10.0.823.0", "10.0.500.0", 1},
		{"2.0", "10.0", -1}, // numeric, not lexical
		{"10.0.0.9", "10.0.0.10", -1},
		{"11.0", "10.9.999.999", 1},
	}

	for _, tt := range tests {
		a := MustParseVersion(tt.a)
		b := MustParseVersion(tt.b)
		assert.Equal(t, tt.want, a.Compare(b), "%s vs %s", tt.a, tt.b)
		// Antisymmetry
		assert.Equal(t, -tt.want, b.Compare(a), "%s vs %s reversed", tt.b, tt.a)
	}
}

func TestVersionCompareTransitive(t *testing.T) {
	low := MustParseVersion("10.0.100.0")
	mid := MustParseVersion("10.0.500.0")
	high := MustParseVersion("10.0.823.0")

	assert.True(t, low.LessThan(mid))
	assert.True(t, mid.LessThan(high))
	assert.True(t, low.LessThan(high))
}

func TestVersionReflexiveEquality(t *testing.T) {
	for _, s := range []string{"10.0", "11.0.0.1", "1"} {
		v := MustParseVersion(s)
		assert.Equal(t, 0, v.Compare(v))
		assert.True(t, v.Equal(v))
	}
}

func TestVersionMajor(t *testing.T) {
	tests := []struct {
		input string
		want  MajorVersion
	}{
		{"10.0.823.0", Major10},
		{"10.0", Major10},
		{"11.0.123.4", Major11},
		{"11.0", Major11},
		{"9.1.0.0", MajorUnknown},
		{"10.1", MajorUnknown},
		{"12.0", MajorUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MustParseVersion(tt.input).Major(), tt.input)
	}
}

func TestMajorVersionString(t *testing.T) {
	assert.Equal(t, "10.0", Major10.String())
	assert.Equal(t, "11.0", Major11.String())
	assert.Equal(t, "unknown", MajorUnknown.String())
}
