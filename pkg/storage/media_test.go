package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskMediumFileOps(t *testing.T) {
	root := t.TempDir()
	med := NewDiskMedium("SD", root)
	require.True(t, med.Available())

	require.NoError(t, med.MkdirAll("images"))
	require.NoError(t, med.WriteFile("images/a.jpg", []byte("jpegdata")))
	assert.True(t, med.Exists("images/a.jpg"))

	size, err := med.Size("images/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)

	data, err := med.ReadFile("images/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegdata"), data)

	require.NoError(t, med.AppendFile("logs/log.txt", []byte("one\n")))
	require.NoError(t, med.AppendFile("logs/log.txt", []byte("two\n")))
	data, err = med.ReadFile("logs/log.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))

	files, err := med.List("images")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.jpg", files[0].Name)

	require.NoError(t, med.Remove("images/a.jpg"))
	assert.False(t, med.Exists("images/a.jpg"))
}

func TestDiskMediumUnavailableWhenRootMissing(t *testing.T) {
	med := NewDiskMedium("SD", filepath.Join(t.TempDir(), "not-mounted"))
	assert.False(t, med.Available())
}

func TestDiskMediumUsage(t *testing.T) {
	med := NewDiskMedium("SD", t.TempDir())
	usage, err := med.Usage()
	require.NoError(t, err)
	assert.NotZero(t, usage.Total)
	assert.LessOrEqual(t, usage.Used, usage.Total)
}
