package adblockcore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLoadEngineConfigRoundTrip(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.BloomHashFuncs = 7
	cfg.EnableBadFingerprintDetection = true

	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, WriteEngineConfig(path, cfg))

	got, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadEngineConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	// A hand-written file naming only one field, the way an operator would
	// actually author one: every other field must keep its default.
	require.NoError(t, os.WriteFile(path, []byte("bloom_hash_funcs: 3\n"), 0o644))

	got, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.BloomHashFuncs)
	assert.Equal(t, DefaultEngineConfig().MaxLineLength, got.MaxLineLength)
	assert.Equal(t, DefaultEngineConfig().BloomSize, got.BloomSize)
}

func TestLoadEngineConfigMissingFile(t *testing.T) {
	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultEngineConfigBloomSizes(t *testing.T) {
	cfg := DefaultEngineConfig()
	// 80,000 and 20,000 bits, expressed in bytes.
	assert.Equal(t, 10000*datasize.B, cfg.BloomSize)
	assert.Equal(t, 2500*datasize.B, cfg.ExceptionBloomSize)
}
