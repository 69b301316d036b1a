package memory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkoelker/xen-guest-agent/pkg/memory"
)

func writeMeminfo(t *testing.T, contents string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meminfo"), []byte(contents), 0o600))

	return dir
}

func TestProcSourceReadsCounters(t *testing.T) {
	t.Parallel()

	dir := writeMeminfo(t, "MemTotal:        2032180 kB\n"+
		"MemFree:          120340 kB\n"+
		"MemAvailable:    1500200 kB\n"+
		"Buffers:           52100 kB\n")

	source, err := memory.NewProc(dir)
	require.NoError(t, err)

	total, err := source.TotalKB()
	require.NoError(t, err)
	assert.Equal(t, uint64(2032180), total)

	available, err := source.AvailableKB()
	require.NoError(t, err)
	assert.Equal(t, uint64(1500200), available)
}

func TestProcSourceMissingAvailableIsUnsupported(t *testing.T) {
	t.Parallel()

	dir := writeMeminfo(t, "MemTotal:        2032180 kB\nMemFree:          120340 kB\n")

	source, err := memory.NewProc(dir)
	require.NoError(t, err)

	_, err = source.AvailableKB()
	require.ErrorIs(t, err, memory.ErrUnsupported)
}

func TestProcSourceReadError(t *testing.T) {
	t.Parallel()

	source, err := memory.NewProc(t.TempDir())
	require.NoError(t, err)

	_, err = source.TotalKB()
	require.Error(t, err)
	assert.NotErrorIs(t, err, memory.ErrUnsupported, "I/O failure is not unsupported")
}
