// Package config loads measurement engine tuning from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical engine defaults file.
const DefaultConfigPath = "config/engine.defaults.yaml"

// Built-in fallbacks, used for any field the YAML omits.
const (
	DefaultConfidenceThreshold = 0.3
	DefaultHistoryCapacity     = 10
	DefaultMaxAnchors          = 10
	DefaultUseMetric           = true
	DefaultSmoothingWindow     = 8
	DefaultTapDebounce         = 300 * time.Millisecond
)

// DefaultJitterOffsets are the screen-space retries, in pixels, tried in order
// after the direct hit test fails.
var DefaultJitterOffsets = [][2]float32{
	{-30, 0}, {30, 0}, {0, -30}, {0, 30}, {-20, -20}, {20, 20},
}

// EngineConfig is the root configuration for the measurement engine.
// Nil fields fall back to the Default* values through the Get* accessors,
// so partial files are safe.
type EngineConfig struct {
	ConfidenceThreshold *float64     `yaml:"confidence_threshold,omitempty"`
	HistoryCapacity     *int         `yaml:"history_capacity,omitempty"`
	MaxAnchors          *int         `yaml:"max_anchors,omitempty"`
	JitterOffsets       [][2]float32 `yaml:"jitter_offsets,omitempty"`
	UseMetric           *bool        `yaml:"use_metric,omitempty"`
	SmoothingWindow     *int         `yaml:"smoothing_window,omitempty"`
	TapDebounce         *string      `yaml:"tap_debounce,omitempty"` // duration string like "300ms"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// Default returns a config with every field set to its built-in default.
func Default() *EngineConfig {
	offsets := make([][2]float32, len(DefaultJitterOffsets))
	copy(offsets, DefaultJitterOffsets)
	return &EngineConfig{
		ConfidenceThreshold: ptrFloat64(DefaultConfidenceThreshold),
		HistoryCapacity:     ptrInt(DefaultHistoryCapacity),
		MaxAnchors:          ptrInt(DefaultMaxAnchors),
		JitterOffsets:       offsets,
		UseMetric:           ptrBool(DefaultUseMetric),
		SmoothingWindow:     ptrInt(DefaultSmoothingWindow),
		TapDebounce:         ptrString(DefaultTapDebounce.String()),
	}
}

// Load reads an EngineConfig from a YAML file.
// The file must have a .yaml or .yml extension and be under 1MB.
func Load(path string) (*EngineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates an EngineConfig from YAML bytes.
func Parse(data []byte) (*EngineConfig, error) {
	cfg := &EngineConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every set field is within its allowed range.
func (c *EngineConfig) Validate() error {
	if c.ConfidenceThreshold != nil {
		if v := *c.ConfidenceThreshold; v < 0 || v > 1 {
			return fmt.Errorf("confidence_threshold must be in [0, 1], got %v", v)
		}
	}
	if c.HistoryCapacity != nil && *c.HistoryCapacity < 1 {
		return fmt.Errorf("history_capacity must be at least 1, got %d", *c.HistoryCapacity)
	}
	// A measurement needs two anchors alive at once.
	if c.MaxAnchors != nil && *c.MaxAnchors < 2 {
		return fmt.Errorf("max_anchors must be at least 2, got %d", *c.MaxAnchors)
	}
	if c.SmoothingWindow != nil && *c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing_window must be at least 1, got %d", *c.SmoothingWindow)
	}
	for i, o := range c.JitterOffsets {
		if o[0] == 0 && o[1] == 0 {
			return fmt.Errorf("jitter_offsets[%d] must not be the zero offset", i)
		}
	}
	if c.TapDebounce != nil {
		d, err := time.ParseDuration(*c.TapDebounce)
		if err != nil {
			return fmt.Errorf("invalid tap_debounce %q: %w", *c.TapDebounce, err)
		}
		if d < 0 {
			return fmt.Errorf("tap_debounce must not be negative, got %s", d)
		}
	}
	return nil
}

// GetConfidenceThreshold returns the minimum score for accepting a registration.
func (c *EngineConfig) GetConfidenceThreshold() float32 {
	if c.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}
	return float32(*c.ConfidenceThreshold)
}

// GetHistoryCapacity returns the number of finished measurements kept.
func (c *EngineConfig) GetHistoryCapacity() int {
	if c.HistoryCapacity == nil {
		return DefaultHistoryCapacity
	}
	return *c.HistoryCapacity
}

// GetMaxAnchors returns the anchor ledger capacity.
func (c *EngineConfig) GetMaxAnchors() int {
	if c.MaxAnchors == nil {
		return DefaultMaxAnchors
	}
	return *c.MaxAnchors
}

// GetJitterOffsets returns the retry offsets in the order they are tried.
func (c *EngineConfig) GetJitterOffsets() [][2]float32 {
	if c.JitterOffsets == nil {
		return DefaultJitterOffsets
	}
	return c.JitterOffsets
}

// GetUseMetric returns whether readings start in metric units.
func (c *EngineConfig) GetUseMetric() bool {
	if c.UseMetric == nil {
		return DefaultUseMetric
	}
	return *c.UseMetric
}

// GetSmoothingWindow returns the number of preview samples averaged.
func (c *EngineConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return DefaultSmoothingWindow
	}
	return *c.SmoothingWindow
}

// GetTapDebounce returns the minimum interval between accepted taps.
func (c *EngineConfig) GetTapDebounce() time.Duration {
	if c.TapDebounce == nil {
		return DefaultTapDebounce
	}
	d, err := time.ParseDuration(*c.TapDebounce)
	if err != nil {
		return DefaultTapDebounce
	}
	return d
}
