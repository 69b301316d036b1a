//go:build !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package collector

// DefaultEnumerator is the platform's preferred enumerator.
func DefaultEnumerator() ([]Link, error) {
	return InterfacesEnumerator()
}
