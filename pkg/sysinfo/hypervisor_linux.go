package sysinfo

import (
	"fmt"
	"os"
	"strings"
)

// CheckXenGuest verifies the hypervisor type file at path reads "xen".
func CheckXenGuest(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotInGuest, err)
	}

	if kind := strings.TrimSpace(string(raw)); kind != "xen" {
		return fmt.Errorf("%w: found %q", ErrNotXen, kind)
	}

	return nil
}
