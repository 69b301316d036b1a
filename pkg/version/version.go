// Package version carries build identification, set at link time with
// -ldflags "-X github.com/jkoelker/xen-guest-agent/pkg/version.Version=...".
package version

// Version is the agent release.
var Version = "0.0.0-dev" //nolint:gochecknoglobals // set by the linker

// Build returns the value published as attr/PVAddons/BuildVersion.
func Build() string {
	return "proto-" + Version
}
