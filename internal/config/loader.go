package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Load reads the configuration file and applies defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("protocols", []string{"ipv4", "tcp", "udp"})
	v.SetDefault("flow.k", 5)
	v.SetDefault("flow.strict", false)
	v.SetDefault("anonymize", false)
	v.SetDefault("output.type", "csv")
	v.SetDefault("output.path", "-")
	v.SetDefault("workers", 4)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
}
