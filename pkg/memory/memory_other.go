//go:build !linux && !freebsd

package memory

import sysmem "github.com/pbnjay/memory"

type runtimeSource struct{}

// New returns the platform memory source, or ErrUnsupported when the runtime
// cannot report totals.
func New() (Source, error) {
	if sysmem.TotalMemory() == 0 {
		return nil, ErrUnsupported
	}

	return runtimeSource{}, nil
}

func (runtimeSource) TotalKB() (uint64, error) {
	total := sysmem.TotalMemory()
	if total == 0 {
		return 0, ErrUnsupported
	}

	return total / 1024, nil
}

func (runtimeSource) AvailableKB() (uint64, error) {
	free := sysmem.FreeMemory()
	if free == 0 {
		return 0, ErrUnsupported
	}

	return free / 1024, nil
}
