//go:build unix

package sysinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// KernelRelease returns the uname release string.
func KernelRelease() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}

	return unix.ByteSliceToString(uts.Release[:]), nil
}
