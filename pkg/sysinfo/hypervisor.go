package sysinfo

import "errors"

// DefaultHypervisorPath is where Linux exposes the hypervisor type.
const DefaultHypervisorPath = "/sys/hypervisor/type"

var (
	// ErrNotXen means a hypervisor other than Xen was detected.
	ErrNotXen = errors.New("hypervisor is not xen")

	// ErrNotInGuest means no hypervisor could be identified.
	ErrNotInGuest = errors.New("not running in a xen guest")
)
