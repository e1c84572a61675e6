package regexfacility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCompileAndMatch(t *testing.T) {
	d := NewDefault()
	c, err := d.Compile(`ad\d+\.js`)
	require.NoError(t, err)
	assert.True(t, c.MatchString("http://x.com/ad123.js"))
	assert.False(t, c.MatchString("http://x.com/script.js"))
}

func TestDefaultCompileCaches(t *testing.T) {
	d := NewDefault()
	c1, err := d.Compile(`abc`)
	require.NoError(t, err)
	c2, err := d.Compile(`abc`)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestDefaultCompileBadPatternErrors(t *testing.T) {
	d := NewDefault()
	_, err := d.Compile(`(unclosed`)
	assert.Error(t, err)
}

func TestCompiledRegexNilIsInert(t *testing.T) {
	c := &compiledRegex{}
	assert.False(t, c.MatchString("anything"))
}
