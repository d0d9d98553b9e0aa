// Package config handles configuration loading using viper.
package config

import (
	"fmt"

	"nprint.dev/nprint/internal/core"
	"nprint.dev/nprint/internal/core/schema"
	"nprint.dev/nprint/internal/log"
)

// Config is the full converter configuration. All knobs are supplied by the
// caller at construction time; the core packages never read files or
// environment themselves.
type Config struct {
	// Protocols is the active protocol set, in schema column order.
	Protocols []string `mapstructure:"protocols"`

	Flow    FlowConfig    `mapstructure:"flow"`
	Capture CaptureConfig `mapstructure:"capture"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Anonymize blanks the IPv4 source and destination address columns in
	// every encoded row.
	Anonymize bool `mapstructure:"anonymize"`

	// Workers is the aggregation worker count.
	Workers int `mapstructure:"workers"`

	Logger *log.LoggerConfig `mapstructure:"logger"`
}

// FlowConfig controls per-connection aggregation.
type FlowConfig struct {
	// K is the fixed number of packets encoded per connection.
	K int `mapstructure:"k"`
	// Strict aborts a connection on the first malformed packet instead of
	// degrading it to an all-NA row.
	Strict bool `mapstructure:"strict"`
}

// CaptureConfig controls the capture-file source.
type CaptureConfig struct {
	// BPF is an optional classic-BPF program in tcpdump -ddd form
	// ("op jt jf k" per instruction); matching frames pass, others are
	// dropped before flow grouping.
	BPF string `mapstructure:"bpf"`
}

// OutputConfig selects and configures the sink. Options are decoded by the
// sink itself.
type OutputConfig struct {
	Type    string                 `mapstructure:"type"`
	Path    string                 `mapstructure:"path"` // "-" writes to stdout
	Options map[string]interface{} `mapstructure:"options"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// Validate checks everything that must hold before any packet work starts.
func (c *Config) Validate() error {
	if c.Flow.K < 1 {
		return fmt.Errorf("%w: flow.k must be positive, got %d", core.ErrConfigInvalid, c.Flow.K)
	}
	if len(c.Protocols) == 0 {
		return fmt.Errorf("%w: empty protocol set", core.ErrConfigInvalid)
	}
	if _, err := c.ProtocolIDs(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", core.ErrConfigInvalid, c.Workers)
	}
	switch c.Output.Type {
	case "csv":
	default:
		return fmt.Errorf("%w: unknown output type %q", core.ErrConfigInvalid, c.Output.Type)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics enabled without a listen address", core.ErrConfigInvalid)
	}
	return nil
}

// ProtocolIDs resolves the configured protocol names.
func (c *Config) ProtocolIDs() ([]schema.ProtocolID, error) {
	ids := make([]schema.ProtocolID, 0, len(c.Protocols))
	for _, name := range c.Protocols {
		id, err := schema.ParseProtocol(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
