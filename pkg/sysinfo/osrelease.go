// Package sysinfo collects the static guest identification published once at
// startup.
package sysinfo

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// OSReleasePaths are tried in order by Collect.
var OSReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"} //nolint:gochecknoglobals // overridable search path

// ErrNoOSRelease indicates none of the os-release files could be read.
var ErrNoOSRelease = errors.New("no os-release file found")

// OSInfo is the subset of os-release the agent publishes.
type OSInfo struct {
	Name       string
	ID         string
	VersionID  string
	PrettyName string
}

// ReadOSRelease parses an os-release file.
func ReadOSRelease(path string) (OSInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return OSInfo{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var info OSInfo

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		value = unquote(value)

		switch key {
		case "NAME":
			info.Name = value
		case "ID":
			info.ID = value
		case "VERSION_ID":
			info.VersionID = value
		case "PRETTY_NAME":
			info.PrettyName = value
		}
	}

	if err := scanner.Err(); err != nil {
		return OSInfo{}, fmt.Errorf("read %s: %w", path, err)
	}

	return info, nil
}

// Collect reads the first available os-release file.
func Collect() (OSInfo, error) {
	errs := make([]error, 0, len(OSReleasePaths))

	for _, path := range OSReleasePaths {
		info, err := ReadOSRelease(path)
		if err == nil {
			return info, nil
		}

		errs = append(errs, err)
	}

	return OSInfo{}, fmt.Errorf("%w: %w", ErrNoOSRelease, errors.Join(errs...))
}

// Distro returns the short distribution identifier.
func (o OSInfo) Distro() string {
	if o.ID != "" {
		return o.ID
	}

	return strings.ToLower(o.Name)
}

// DisplayName renders "<name> <version>".
func (o OSInfo) DisplayName() string {
	return strings.TrimSpace(o.Name + " " + o.VersionID)
}

// MajorMinor splits a numeric VERSION_ID. "12" yields ("12", "0"); anything
// not starting with digits reports ok=false.
func (o OSInfo) MajorMinor() (string, string, bool) {
	parts := strings.Split(o.VersionID, ".")

	if _, err := strconv.ParseUint(parts[0], 10, 32); err != nil {
		return "", "", false
	}

	if len(parts) == 1 {
		return parts[0], "0", true
	}

	if _, err := strconv.ParseUint(parts[1], 10, 32); err != nil {
		return "", "", false
	}

	return parts[0], parts[1], true
}

func unquote(value string) string {
	if unquoted, err := strconv.Unquote(value); err == nil {
		return unquoted
	}

	return strings.Trim(value, `"'`)
}
