// Package config loads the RTC boot configuration
package config

import (
	"encoding/json"
	"fmt"

	"rtckeeper/core"
)

// Reference clocks the firmware can seed the calendar from
const (
	ReferenceNone    = "none"
	ReferenceDS3231  = "ds3231"
	ReferencePCF8523 = "pcf8523"
)

// RTCConfig is the boot-time RTC configuration
type RTCConfig struct {
	ClockSource    string `json:"clock_source"`    // "internal" or "external"
	WakeupInterval string `json:"wakeup_interval"` // "disabled", "125ms" .. "60s"
	ReferenceClock string `json:"reference_clock"` // "none", "ds3231", "pcf8523"
	Debug          bool   `json:"debug"`
}

// LoadConfig parses a JSON configuration string and returns an RTCConfig
func LoadConfig(jsonData []byte) (*RTCConfig, error) {
	var config RTCConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *RTCConfig) {
	// The crystal is the only source accurate enough to keep a calendar
	if config.ClockSource == "" {
		config.ClockSource = "external"
	}
	if config.WakeupInterval == "" {
		config.WakeupInterval = "disabled"
	}
	if config.ReferenceClock == "" {
		config.ReferenceClock = ReferenceNone
	}
}

// Validate checks every field parses
func (c *RTCConfig) Validate() error {
	if _, err := c.Source(); err != nil {
		return err
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	switch c.ReferenceClock {
	case ReferenceNone, ReferenceDS3231, ReferencePCF8523:
	default:
		return fmt.Errorf("config: unknown reference_clock %q", c.ReferenceClock)
	}
	return nil
}

// Source returns the configured RTC clock source
func (c *RTCConfig) Source() (core.ClockSource, error) {
	src, err := core.ParseClockSource(c.ClockSource)
	if err != nil {
		return 0, fmt.Errorf("config: clock_source %q: %w", c.ClockSource, err)
	}
	return src, nil
}

// Interval returns the configured wakeup interval
func (c *RTCConfig) Interval() (core.WakeupInterval, error) {
	iv, err := core.ParseWakeupInterval(c.WakeupInterval)
	if err != nil {
		return core.WakeupDisabled, fmt.Errorf("config: wakeup_interval %q: %w", c.WakeupInterval, err)
	}
	return iv, nil
}

// DefaultConfig returns the configuration used when none is supplied:
// crystal clock, 1 s wakeup, no reference clock.
func DefaultConfig() *RTCConfig {
	return &RTCConfig{
		ClockSource:    "external",
		WakeupInterval: "1s",
		ReferenceClock: ReferenceNone,
	}
}
