package memory

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// ProcSource reads /proc/meminfo.
type ProcSource struct {
	fs procfs.FS
}

// New returns the platform memory source.
func New() (Source, error) {
	return NewProc(procfs.DefaultMountPoint)
}

// NewProc reads meminfo below mountPoint.
func NewProc(mountPoint string) (*ProcSource, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", mountPoint, err)
	}

	return &ProcSource{fs: fs}, nil
}

// TotalKB returns MemTotal.
func (p *ProcSource) TotalKB() (uint64, error) {
	info, err := p.fs.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("read meminfo: %w", err)
	}

	if info.MemTotal == nil {
		return 0, fmt.Errorf("%w: MemTotal missing from meminfo", ErrUnsupported)
	}

	return *info.MemTotal, nil
}

// AvailableKB returns MemAvailable.
func (p *ProcSource) AvailableKB() (uint64, error) {
	info, err := p.fs.Meminfo()
	if err != nil {
		return 0, fmt.Errorf("read meminfo: %w", err)
	}

	if info.MemAvailable == nil {
		return 0, fmt.Errorf("%w: MemAvailable missing from meminfo", ErrUnsupported)
	}

	return *info.MemAvailable, nil
}
