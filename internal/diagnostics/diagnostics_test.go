package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryDisabledByDefault(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Enabled())
	r.RecordFalsePositive("http://example.com/abc123", func(string) bool { return true })
	assert.Empty(t, r.Fingerprints())
}

func TestRegistryRecordsFirstWindowOnly(t *testing.T) {
	r := NewRegistry()
	r.Enable()
	assert.True(t, r.Enabled())

	calls := 0
	r.RecordFalsePositive("abcdefgh", func(key string) bool {
		calls++
		return key == "abcdef"
	})
	assert.Equal(t, []string{"abcdef"}, r.Fingerprints())
	assert.Equal(t, 1, calls)
}

func TestRegistryNoMatch(t *testing.T) {
	r := NewRegistry()
	r.Enable()
	r.RecordFalsePositive("short", func(string) bool { return true })
	assert.Empty(t, r.Fingerprints())
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	r.Enable()
	r.RecordFalsePositive("abcdefgh", func(key string) bool { return true })
	assert.NotEmpty(t, r.Fingerprints())
	r.Clear()
	assert.Empty(t, r.Fingerprints())
	assert.True(t, r.Enabled())
}
