//go:build linux

package testutil

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	gont "cunicu.li/gont/v2/pkg"
	gc "cunicu.li/gont/v2/pkg/options/cmd"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/jkoelker/xen-guest-agent/pkg/config"
)

const cfgFilePerm = 0o600

// SyncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p) //nolint:wrapcheck // passthrough
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// IntegrationConfig logs store operations instead of calling xenstore tools.
func IntegrationConfig(schema string) *config.Config {
	cfg := &config.Config{
		Publisher:  config.PublisherConfig{Schema: schema, Store: "log"},
		Memory:     config.MemoryConfig{Disabled: true},
		Hypervisor: config.HypervisorConfig{SkipCheck: true},
	}
	cfg.Network.Backend = "netlink"
	cfg.ApplyDefaults()

	return cfg
}

func BuildAgentBinary(t *testing.T) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), "xen-guest-agent-bin")
	root := os.Getenv("XEN_GUEST_AGENT_ROOT")
	if root == "" {
		wd, err := os.Getwd()
		require.NoError(t, err, "get working dir")
		root = filepath.Clean(filepath.Join(wd, ".."))
	}
	cmd := exec.CommandContext(t.Context(), "go", "build", "-o", binPath, "./cmd/xen-guest-agent")
	cmd.Dir = root
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build xen-guest-agent: %v\n%s", err, output)
	}

	return binPath
}

func WriteIntegrationConfigFile(t *testing.T, cfg *config.Config) string {
	t.Helper()
	cfgBytes, err := yaml.Marshal(cfg)
	require.NoError(t, err, "marshal integration config")

	path := filepath.Join(t.TempDir(), "xen-guest-agent.yaml")
	require.NoError(t, os.WriteFile(path, cfgBytes, cfgFilePerm), "write integration config file")

	return path
}

// StartAgentProcess runs the agent inside host; its output collects in the
// returned buffer.
func StartAgentProcess(t *testing.T, host *gont.Host, binPath, cfgPath string) (*SyncBuffer, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(t.Context())

	combined := &SyncBuffer{}
	cmd := host.Command(
		binPath,
		"--config", cfgPath,
		"--log-level", "debug",
		gc.Context{Context: ctx},
		gc.Combined(combined),
	)

	require.NoErrorf(t, cmd.Start(), "start xen-guest-agent process. logs:\n%s", combined.String())

	var waitErr error
	done := make(chan struct{})
	go func() {
		waitErr = cmd.Wait()
		close(done)
	}()

	go func() {
		select {
		case <-done:
			if waitErr != nil && ctx.Err() == nil {
				t.Errorf("xen-guest-agent exited early: %v\nlogs:\n%s", waitErr, combined.String())
			}
		case <-ctx.Done():
		}
	}()

	t.Cleanup(func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
			<-done
		}

		if t.Failed() {
			t.Logf("xen-guest-agent logs:\n%s", combined.String())
		}
	})

	return combined, cancel
}
