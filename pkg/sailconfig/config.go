// Package sailconfig loads the core's YAML configuration: isolation
// level defaults, the buffered-update threshold, and leak diagnostics
// settings, per spec §6.
package sailconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quaddb/sail/pkg/isolation"
)

// defaultAutoFlushBlockSize is the buffered-statement threshold before
// addStatement/removeStatement auto-flush, per spec §4.6/§6.
const defaultAutoFlushBlockSize = 1000

// Config is the core's external configuration surface.
type Config struct {
	DefaultIsolationLevel    isolation.Level   `yaml:"default_isolation_level"`
	SupportedIsolationLevels []isolation.Level `yaml:"supported_isolation_levels"`
	AutoFlushBlockSize       int               `yaml:"auto_flush_block_size"`
	TrackResourceSites       bool              `yaml:"track_resource_sites"`
	LeakCollectionIntervalMS int64             `yaml:"leak_collection_interval_ms"`
}

// Default returns the configuration spec §6 describes as default: 1
// auto-flush threshold 1000, isolation READ_COMMITTED, the full
// supported set, resource-site tracking off, and a 1-second initial
// leak sweep delay.
func Default() Config {
	return Config{
		DefaultIsolationLevel: isolation.ReadCommitted,
		SupportedIsolationLevels: []isolation.Level{
			isolation.None,
			isolation.ReadUncommitted,
			isolation.ReadCommitted,
			isolation.SnapshotRead,
			isolation.Snapshot,
			isolation.Serializable,
		},
		AutoFlushBlockSize:       defaultAutoFlushBlockSize,
		TrackResourceSites:       false,
		LeakCollectionIntervalMS: 1000,
	}
}

// Load reads and parses a YAML config file at path, filling in any
// field the file omits from Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("sailconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("sailconfig: parse %s: %w", path, err)
	}
	if cfg.AutoFlushBlockSize <= 0 {
		cfg.AutoFlushBlockSize = defaultAutoFlushBlockSize
	}
	if len(cfg.SupportedIsolationLevels) == 0 {
		cfg.SupportedIsolationLevels = Default().SupportedIsolationLevels
	}
	return cfg, nil
}

// LeakCollectionInterval returns LeakCollectionIntervalMS as a
// time.Duration.
func (c Config) LeakCollectionInterval() time.Duration {
	return time.Duration(c.LeakCollectionIntervalMS) * time.Millisecond
}

// Validate reports a usage error if the config is internally
// inconsistent: an unrecognized default level, an empty supported
// set, or a non-positive auto-flush threshold.
func (c Config) Validate() error {
	if !isolation.Valid(c.DefaultIsolationLevel) {
		return fmt.Errorf("sailconfig: unrecognized default_isolation_level %q", c.DefaultIsolationLevel)
	}
	if len(c.SupportedIsolationLevels) == 0 {
		return fmt.Errorf("sailconfig: supported_isolation_levels must not be empty")
	}
	for _, l := range c.SupportedIsolationLevels {
		if !isolation.Valid(l) {
			return fmt.Errorf("sailconfig: unrecognized supported isolation level %q", l)
		}
	}
	if c.AutoFlushBlockSize <= 0 {
		return fmt.Errorf("sailconfig: auto_flush_block_size must be > 0, got %d", c.AutoFlushBlockSize)
	}
	return nil
}
