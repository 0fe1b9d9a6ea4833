// Package config loads the router daemon's configuration: one or more
// BACnet/IP and MS/TP port descriptors, the non-volatile store path,
// and the metrics listen address, following the same config-file and
// BACNET_-prefixed environment variable convention the CLI uses.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// PortKind names a configured port's data-link technology.
type PortKind string

const (
	PortBIP  PortKind = "bip"
	PortMSTP PortKind = "mstp"
)

// PortConfig describes one router port, BACnet/IP or MS/TP.
type PortConfig struct {
	Name     string   `mapstructure:"name"`
	Kind     PortKind `mapstructure:"kind"`
	LocalNet uint16   `mapstructure:"local_net"`

	// BACnet/IP fields.
	BindAddress string `mapstructure:"bind_address"`
	BBMDAddress string `mapstructure:"bbmd_address"`
	BBMDPort    int    `mapstructure:"bbmd_port"`

	// MS/TP fields.
	Device       string        `mapstructure:"device"`
	BaudRate     uint32        `mapstructure:"baud_rate"`
	ThisStation  uint8         `mapstructure:"this_station"`
	MaxMaster    uint8         `mapstructure:"max_master"`
	MaxInfoFrames uint8        `mapstructure:"max_info_frames"`
	ReplyTimeout time.Duration `mapstructure:"reply_timeout"`
}

// Config is the router daemon's full configuration.
type Config struct {
	Ports        []PortConfig  `mapstructure:"ports"`
	NVStorePath  string        `mapstructure:"nv_store_path"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
	LogLevel     string        `mapstructure:"log_level"`
	MailboxDepth int           `mapstructure:"mailbox_depth"`
}

// Load reads configuration from file (if non-empty), $HOME/.bacnet-router.yaml
// otherwise, and BACNET_-prefixed environment variables, applying
// defaults for anything left unset.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BACNET")
	v.AutomaticEnv()

	v.SetDefault("nv_store_path", "bacnet-router.db")
	v.SetDefault("metrics_addr", ":9100")
	v.SetDefault("log_level", "info")
	v.SetDefault("mailbox_depth", 64)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(".bacnet-router")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && file != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every configured port carries the fields its
// kind requires and that port names are unique.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Ports))
	for _, p := range c.Ports {
		if p.Name == "" {
			return fmt.Errorf("port with local_net %d: name is required", p.LocalNet)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate port name %q", p.Name)
		}
		seen[p.Name] = true

		switch p.Kind {
		case PortBIP:
			if p.BindAddress == "" {
				return fmt.Errorf("port %q: bind_address is required for a bip port", p.Name)
			}
		case PortMSTP:
			if p.Device == "" {
				return fmt.Errorf("port %q: device is required for an mstp port", p.Name)
			}
			if p.MaxMaster == 0 {
				return fmt.Errorf("port %q: max_master must be non-zero", p.Name)
			}
		default:
			return fmt.Errorf("port %q: unknown kind %q", p.Name, p.Kind)
		}
	}
	return nil
}
