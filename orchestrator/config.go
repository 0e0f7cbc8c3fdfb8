package orchestrator

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use human-readable values
// like "1s" or "1500ms".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config tunes the scheduler. Zero values are normalized to the defaults, so
// a partial YAML file only overrides what it names.
type Config struct {
	// MinBufferSeconds is the low-water mark: a buffer estimate below this
	// triggers a fill cycle.
	MinBufferSeconds float64 `yaml:"min_buffer_seconds"`

	// TargetBufferSeconds is the buffer the scheduler aims to maintain.
	TargetBufferSeconds float64 `yaml:"target_buffer_seconds"`

	// ItemsPerSelection is how many items one selection call asks for.
	ItemsPerSelection int `yaml:"items_per_selection"`

	// PollInterval is the fixed cadence of the background loop.
	PollInterval Duration `yaml:"poll_interval"`

	// ContextWindow bounds the history slices in each selection context.
	ContextWindow int `yaml:"context_window"`

	// SampleCap bounds the candidate set shown to the selection model.
	SampleCap int `yaml:"sample_cap"`

	// AssumedItemSeconds is the fallback duration for items whose true
	// duration is unknown, used for queued-entry aging.
	AssumedItemSeconds float64 `yaml:"assumed_item_seconds"`

	// QueueTTLMultiplier scales an item's duration into the deadline after
	// which a queued-but-never-played entry is aged out, restoring its
	// eligibility when the engine silently drops it.
	QueueTTLMultiplier float64 `yaml:"queue_ttl_multiplier"`

	// StopJoinTimeout bounds how long Stop waits for the poll loop to exit.
	StopJoinTimeout Duration `yaml:"stop_join_timeout"`
}

// DefaultConfig holds the design defaults: 15s low-water mark, 1s poll
// cadence, 3 items per selection, candidate cap of 50 and 3x-duration aging.
var DefaultConfig = Config{
	MinBufferSeconds:    15,
	TargetBufferSeconds: 30,
	ItemsPerSelection:   3,
	PollInterval:        Duration(time.Second),
	ContextWindow:       5,
	SampleCap:           50,
	AssumedItemSeconds:  8,
	QueueTTLMultiplier:  3,
	StopJoinTimeout:     Duration(2 * time.Second),
}

// normalize fills zero fields from DefaultConfig.
func (c Config) normalize() Config {
	d := DefaultConfig
	if c.MinBufferSeconds <= 0 {
		c.MinBufferSeconds = d.MinBufferSeconds
	}
	if c.TargetBufferSeconds <= 0 {
		c.TargetBufferSeconds = d.TargetBufferSeconds
	}
	if c.ItemsPerSelection <= 0 {
		c.ItemsPerSelection = d.ItemsPerSelection
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ContextWindow <= 0 {
		c.ContextWindow = d.ContextWindow
	}
	if c.SampleCap <= 0 {
		c.SampleCap = d.SampleCap
	}
	if c.AssumedItemSeconds <= 0 {
		c.AssumedItemSeconds = d.AssumedItemSeconds
	}
	if c.QueueTTLMultiplier <= 0 {
		c.QueueTTLMultiplier = d.QueueTTLMultiplier
	}
	if c.StopJoinTimeout <= 0 {
		c.StopJoinTimeout = d.StopJoinTimeout
	}
	return c
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg.normalize(), nil
}
