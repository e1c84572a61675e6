package bloom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterAddContains(t *testing.T) {
	f := New(1024, 4)
	f.Add("/banne")
	assert.True(t, f.Contains("/banne"))
	assert.False(t, f.Contains("/xxxxx"))
}

func TestFilterNoFalseNegatives(t *testing.T) {
	f := New(2048, 6)
	keys := []string{"tracke", "ads123", "/banne", "foobar", "google"}
	for _, k := range keys {
		f.Add(k)
	}
	for _, k := range keys {
		assert.True(t, f.Contains(k), "no false negatives permitted for %q", k)
	}
}

func TestSubstringExists(t *testing.T) {
	f := New(1024, 4)
	f.Add("/banne")
	assert.True(t, f.SubstringExists("http://cdn.x.com/banner/hero.png", 6))
	assert.False(t, f.SubstringExists("http://cdn.x.com/style.css", 6))
}

func TestFromBytesRoundTrip(t *testing.T) {
	f := New(1024, 4)
	f.Add("hello!")
	f.Add("world!")

	f2 := FromBytes(f.Bytes(), f.NumBits(), f.K())
	assert.True(t, f2.Contains("hello!"))
	assert.True(t, f2.Contains("world!"))
}

func TestNewDefensiveMinimums(t *testing.T) {
	f := New(0, 0)
	require.NotNil(t, f)
	assert.GreaterOrEqual(t, f.NumBits(), uint64(1))
	assert.GreaterOrEqual(t, f.K(), 1)
}

func TestRequestBloomMayContain2Gram(t *testing.T) {
	rb := NewRequestBloom("http://example.com/ad.js")
	assert.True(t, rb.MayContain2Gram("ht"))
	assert.True(t, rb.MayContain2Gram("ad"))
	// Not a 2-byte gram: always reported present (caller cannot reject).
	assert.True(t, rb.MayContain2Gram("abc"))
}
