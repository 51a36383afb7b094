package doctor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	assert.True(t, checkLogDir(Options{LogDir: dir}))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".doctor"))
}

func TestCheckLogDirFails(t *testing.T) {
	assert.False(t, checkLogDir(Options{}))

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.False(t, checkLogDir(Options{LogDir: file}))
}
