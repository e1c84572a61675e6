package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AdguardTeam/golibs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUseRotatingFileEmptyPathIsNoop(t *testing.T) {
	UseRotatingFile(FileConfig{})
	// golibs/log keeps writing to stderr; there is nothing else to assert
	// beyond "it didn't panic and didn't touch log output".
}

func TestUseRotatingFileWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	UseRotatingFile(FileConfig{Path: path, MaxSizeMB: 1})
	defer log.SetOutput(os.Stderr)

	log.Error("test log line for rotating file sink")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "test log line for rotating file sink")
}
