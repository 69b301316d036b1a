package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	jsonparser "github.com/knadh/koanf/parsers/json"
	yamlparser "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jkoelker/xen-guest-agent/pkg/collector"
	"github.com/jkoelker/xen-guest-agent/pkg/publisher"
	"github.com/jkoelker/xen-guest-agent/pkg/slots"
)

const (
	defaultPollInterval   = 60 * time.Second
	defaultMemoryInterval = 60 * time.Second
	defaultQueueSize      = 64
	maxSlots              = 256
)

// ErrUnsupportedExtension indicates an unsupported configuration file extension.
var ErrUnsupportedExtension = errors.New("unsupported config extension")

type Config struct {
	// Network selects and tunes the interface event source.
	Network NetworkConfig `json:"network"`

	// Memory controls the periodic free-memory report.
	Memory MemoryConfig `json:"memory"`

	// Publisher selects the schema and the store it writes to.
	Publisher PublisherConfig `json:"publisher"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `json:"metrics"`

	// Hypervisor controls the startup guest check.
	Hypervisor HypervisorConfig `json:"hypervisor"`
}

type NetworkConfig struct {
	// Backend is auto, netlink, or poll.
	Backend string `json:"backend"`

	// PollInterval is the enumeration period of the poll backend.
	PollInterval time.Duration `json:"poll_interval,omitempty"`

	// QueueSize bounds buffered notifications between reader and decoder.
	QueueSize int `json:"queue_size,omitempty"`

	// Namespace optionally names a network namespace (name or path) to watch.
	Namespace string `json:"namespace,omitempty"`

	// AbortOnUnhandled stops the agent on unrecognized netlink messages
	// instead of skipping them.
	AbortOnUnhandled bool `json:"abort_on_unhandled,omitempty"`
}

type MemoryConfig struct {
	// Disabled turns off the meminfo_free report.
	Disabled bool `json:"disabled,omitempty"`

	// Interval is the report period.
	Interval time.Duration `json:"interval,omitempty"`
}

type PublisherConfig struct {
	// Schema is std or rfc.
	Schema string `json:"schema"`

	// Store is xenstore or log.
	Store string `json:"store"`

	// IPSlots is the per-interface, per-family slot count of the std schema.
	IPSlots int `json:"ip_slots,omitempty"`

	// DedupTTL is how long identical writes are skipped.
	DedupTTL time.Duration `json:"dedup_ttl,omitempty"`

	// XenstoreWrite overrides the xenstore-write command.
	XenstoreWrite string `json:"xenstore_write,omitempty"`

	// XenstoreRm overrides the xenstore-rm command.
	XenstoreRm string `json:"xenstore_rm,omitempty"`
}

type MetricsConfig struct {
	// Listen is the host:port of the metrics endpoint; empty disables it.
	Listen string `json:"listen,omitempty"`
}

type HypervisorConfig struct {
	// SkipCheck runs the agent even when not inside a Xen guest.
	SkipCheck bool `json:"skip_check,omitempty"`
}

type ValidationError struct {
	// Issues holds the human-readable validation failures.
	Issues []string
}

func (v *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(v.Issues, "; ")
}

// Default returns a sample configuration that is safe to edit and load.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()

	return cfg
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", "":
		return yamlparser.Parser(), nil
	case ".json":
		return jsonparser.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, filepath.Ext(path))
	}
}

// Load reads path, fills defaults and validates the result. An empty path
// yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}

	konf := koanf.New(".")
	if err := konf.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	cfg := &Config{}
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			Result:           cfg,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}

	if err := konf.UnmarshalWithConf("", cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults populates unset configuration fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Network.Backend == "" {
		c.Network.Backend = collector.BackendAuto
	}
	if c.Network.PollInterval == 0 {
		c.Network.PollInterval = defaultPollInterval
	}
	if c.Network.QueueSize == 0 {
		c.Network.QueueSize = defaultQueueSize
	}

	if c.Memory.Interval == 0 {
		c.Memory.Interval = defaultMemoryInterval
	}

	if c.Publisher.Schema == "" {
		c.Publisher.Schema = publisher.SchemaStd
	}
	if c.Publisher.Store == "" {
		c.Publisher.Store = publisher.StoreXenstore
	}
	if c.Publisher.IPSlots == 0 {
		c.Publisher.IPSlots = slots.DefaultCapacity
	}
	if c.Publisher.DedupTTL == 0 {
		c.Publisher.DedupTTL = publisher.DefaultDedupTTL
	}
}

func (c *Config) Validate() error {
	var issues []string

	issues = append(issues, validateNetwork(c.Network)...)
	issues = append(issues, validateMemory(c.Memory)...)
	issues = append(issues, validatePublisher(c.Publisher)...)
	issues = append(issues, validateMetrics(c.Metrics)...)

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}

	return nil
}

func validateNetwork(cfg NetworkConfig) []string {
	var issues []string

	switch cfg.Backend {
	case collector.BackendAuto, collector.BackendNetlink, collector.BackendPoll:
	default:
		issues = append(issues, fmt.Sprintf("network.backend %q is invalid", cfg.Backend))
	}

	if cfg.PollInterval < time.Second {
		issues = append(issues, "network.poll_interval must be at least 1s")
	}

	if cfg.QueueSize < 1 {
		issues = append(issues, "network.queue_size must be positive")
	}

	if cfg.Namespace != "" && cfg.Backend == collector.BackendPoll {
		issues = append(issues, "network.namespace requires the netlink backend")
	}

	return issues
}

func validateMemory(cfg MemoryConfig) []string {
	if !cfg.Disabled && cfg.Interval < time.Second {
		return []string{"memory.interval must be at least 1s"}
	}

	return nil
}

func validatePublisher(cfg PublisherConfig) []string {
	var issues []string

	switch cfg.Schema {
	case publisher.SchemaStd, publisher.SchemaRFC:
	default:
		issues = append(issues, fmt.Sprintf("publisher.schema %q is invalid", cfg.Schema))
	}

	switch cfg.Store {
	case publisher.StoreXenstore, publisher.StoreLog:
	default:
		issues = append(issues, fmt.Sprintf("publisher.store %q is invalid", cfg.Store))
	}

	if cfg.IPSlots < 1 || cfg.IPSlots > maxSlots {
		issues = append(issues, fmt.Sprintf("publisher.ip_slots must be between 1 and %d", maxSlots))
	}

	if cfg.DedupTTL < 0 {
		issues = append(issues, "publisher.dedup_ttl must be non-negative")
	}

	return issues
}

func validateMetrics(cfg MetricsConfig) []string {
	if cfg.Listen == "" {
		return nil
	}

	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return []string{fmt.Sprintf("metrics.listen: %v", err)}
	}

	return nil
}
