//go:build !linux

package collector

type platformOptions struct{}
