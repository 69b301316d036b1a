package sysinfo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkoelker/xen-guest-agent/pkg/sysinfo"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestReadOSRelease(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `# comment
PRETTY_NAME="Debian GNU/Linux 12 (bookworm)"
NAME="Debian GNU/Linux"
VERSION_ID="12"
ID=debian
BROKEN LINE
`)

	info, err := sysinfo.ReadOSRelease(path)
	require.NoError(t, err)

	assert.Equal(t, sysinfo.OSInfo{
		Name:       "Debian GNU/Linux",
		ID:         "debian",
		VersionID:  "12",
		PrettyName: "Debian GNU/Linux 12 (bookworm)",
	}, info)
	assert.Equal(t, "debian", info.Distro())
	assert.Equal(t, "Debian GNU/Linux 12", info.DisplayName())
}

func TestReadOSReleaseMissing(t *testing.T) {
	t.Parallel()

	_, err := sysinfo.ReadOSRelease(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMajorMinor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		version string
		major   string
		minor   string
		ok      bool
	}{
		{version: "12", major: "12", minor: "0", ok: true},
		{version: "22.04", major: "22", minor: "04", ok: true},
		{version: "3.19.1", major: "3", minor: "19", ok: true},
		{version: "rolling", ok: false},
		{version: "", ok: false},
		{version: "9.x", ok: false},
	}

	for _, tc := range cases {
		major, minor, ok := sysinfo.OSInfo{VersionID: tc.version}.MajorMinor()
		assert.Equal(t, tc.ok, ok, "version %q", tc.version)
		assert.Equal(t, tc.major, major, "version %q", tc.version)
		assert.Equal(t, tc.minor, minor, "version %q", tc.version)
	}
}

func TestDistroFallsBackToName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "alpine linux", sysinfo.OSInfo{Name: "Alpine Linux"}.Distro())
}
