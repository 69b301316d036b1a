package memory

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// SysctlSource reads the FreeBSD VM counters.
type SysctlSource struct {
	pageSize uint64
}

// New returns the platform memory source.
func New() (Source, error) {
	pageSize, err := unix.SysctlUint32("hw.pagesize")
	if err != nil {
		return nil, fmt.Errorf("sysctl hw.pagesize: %w", err)
	}

	return &SysctlSource{pageSize: uint64(pageSize)}, nil
}

// TotalKB returns hw.physmem.
func (s *SysctlSource) TotalKB() (uint64, error) {
	total, err := unix.SysctlUint64("hw.physmem")
	if err != nil {
		return 0, fmt.Errorf("sysctl hw.physmem: %w", err)
	}

	return total / 1024, nil
}

// AvailableKB sums the inactive, cache and free page counts.
func (s *SysctlSource) AvailableKB() (uint64, error) {
	var pages uint64

	for _, name := range []string{
		"vm.stats.vm.v_inactive_count",
		"vm.stats.vm.v_cache_count",
		"vm.stats.vm.v_free_count",
	} {
		count, err := unix.SysctlUint32(name)
		if errors.Is(err, unix.ENOENT) {
			// v_cache_count no longer exists on recent releases.
			continue
		}

		if err != nil {
			return 0, fmt.Errorf("sysctl %s: %w", name, err)
		}

		pages += uint64(count)
	}

	return pages * s.pageSize / 1024, nil
}
