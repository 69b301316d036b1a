package publisher

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultWriteCommand = "xenstore-write"
	defaultRmCommand    = "xenstore-rm"
	defaultTimeout      = 5 * time.Second
)

// RunFunc executes one store command.
type RunFunc func(ctx context.Context, name string, args ...string) error

// XenstoreStore drives the xenstore-write and xenstore-rm utilities.
type XenstoreStore struct {
	writeCmd string
	rmCmd    string
	timeout  time.Duration
	run      RunFunc
}

// NewXenstoreStore builds a XenstoreStore with the provided options.
func NewXenstoreStore(opts ...func(*XenstoreStore)) *XenstoreStore {
	store := &XenstoreStore{
		writeCmd: defaultWriteCommand,
		rmCmd:    defaultRmCommand,
		timeout:  defaultTimeout,
		run:      runCmd,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// WithCommands overrides the write and rm command paths. Empty values keep
// the defaults.
func WithCommands(write, rm string) func(*XenstoreStore) {
	return func(s *XenstoreStore) {
		if write != "" {
			s.writeCmd = write
		}
		if rm != "" {
			s.rmCmd = rm
		}
	}
}

// WithTimeout bounds each command.
func WithTimeout(timeout time.Duration) func(*XenstoreStore) {
	return func(s *XenstoreStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithRunner replaces command execution, useful for tests.
func WithRunner(fn RunFunc) func(*XenstoreStore) {
	return func(s *XenstoreStore) {
		if fn != nil {
			s.run = fn
		}
	}
}

// Write sets key to value.
func (s *XenstoreStore) Write(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.run(ctx, s.writeCmd, key, value)
}

// Delete removes key and its children.
func (s *XenstoreStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.run(ctx, s.rmCmd, key)
}

func runCmd(ctx context.Context, name string, args ...string) error {
	stderr := new(bytes.Buffer)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "Permission denied") {
			return fmt.Errorf("%s %s: %s: %w", name, args[0], msg, fs.ErrPermission)
		}

		return fmt.Errorf("%s %s (stderr: %s): %w", name, args[0], msg, err)
	}

	return nil
}
