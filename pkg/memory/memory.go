// Package memory reads guest memory counters in kilobytes.
package memory

import "errors"

// ErrUnsupported means the platform offers no counter. Callers treat the
// feature as absent and do not retry.
var ErrUnsupported = errors.New("memory counters not supported on this platform")

// Source reports total and available memory in kilobytes.
type Source interface {
	TotalKB() (uint64, error)
	AvailableKB() (uint64, error)
}
