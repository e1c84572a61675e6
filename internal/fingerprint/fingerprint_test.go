package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFindsContiguousWindow(t *testing.T) {
	fp, ok := Extract("/banner/*", 0)
	require.True(t, ok)
	assert.Len(t, fp, Size)
	assert.Contains(t, "/banner/*", fp)
	for i := 0; i < len(fp); i++ {
		assert.True(t, IsFingerprintChar(fp[i]))
	}
}

func TestExtractTooShort(t *testing.T) {
	_, ok := Extract("abc", 0)
	assert.False(t, ok)
}

func TestExtractSkipsWildcardAndAnchorChars(t *testing.T) {
	// Every 6-byte window not containing '*' or '^' starts after them.
	fp, ok := Extract("^*abcdefgh", 0)
	require.True(t, ok)
	for i := 0; i < len(fp); i++ {
		assert.NotEqual(t, byte('*'), fp[i])
		assert.NotEqual(t, byte('^'), fp[i])
	}
}

func TestExtractRejectsBadFingerprints(t *testing.T) {
	// "google" is denylisted outright; the scan must move past it.
	fp, ok := Extract("googlexyz", 0)
	require.True(t, ok)
	assert.NotEqual(t, "google", fp)
}

func TestExtractRejectsBadSubstrings(t *testing.T) {
	// "https" anywhere in the window disqualifies it; "https:" is exactly
	// one window long, so it has no other candidate.
	_, ok := Extract("https:", 0)
	assert.False(t, ok)
}

func TestExtractRespectsSkip(t *testing.T) {
	fp, ok := Extract("example.comXbanner", len("example.com"))
	require.True(t, ok)
	assert.Equal(t, "Xbanne", fp[:6])
}

func TestIsFingerprintChar(t *testing.T) {
	assert.False(t, IsFingerprintChar('|'))
	assert.False(t, IsFingerprintChar('*'))
	assert.False(t, IsFingerprintChar('^'))
	assert.True(t, IsFingerprintChar('a'))
	assert.True(t, IsFingerprintChar('/'))
}
