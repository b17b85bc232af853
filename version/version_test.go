package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	orig := Version
	Version = v
	t.Cleanup(func() { Version = orig })
}

func TestMarkerDev(t *testing.T) {
	withVersion(t, "dev")
	assert.Nil(t, Semver())
	assert.Equal(t, "0.0.0-dev", Marker())
	assert.Contains(t, Get().String(), "bridgegen dev")
}

func TestMarkerTagged(t *testing.T) {
	withVersion(t, "v1.4.2")
	v := Semver()
	require.NotNil(t, v)
	assert.Equal(t, uint64(1), v.Major())
	assert.Equal(t, "1.4.2", Marker())
	assert.Contains(t, Get().String(), "bridgegen v1.4.2")
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abcdef1", Info{CommitHash: "abcdef123456"}.Short())
	assert.Equal(t, "abc", Info{CommitHash: "abc"}.Short())
}
