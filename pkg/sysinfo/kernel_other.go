//go:build !unix

package sysinfo

import "errors"

// KernelRelease is unavailable on this platform.
func KernelRelease() (string, error) {
	return "", errors.ErrUnsupported
}
