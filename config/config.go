/*
DESCRIPTION
  config.go provides the configuration for the lumen daemon: the ambient
  light source, the outputs to control and how to capture and predict for
  each.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for the lumen daemon.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Ambient light source kinds.
const (
	ALSIIO    = "iio"
	ALSTime   = "time"
	ALSWebcam = "webcam"
	ALSCmd    = "cmd"
	ALSNone   = "none"
)

// Output kinds.
const (
	OutputBacklight = "backlight"
	OutputDDC       = "ddcutil"
)

// Predictor kinds.
const (
	PredictorAdaptive = "adaptive"
	PredictorManual   = "manual"
)

// CapturerNone disables frame capture for an output; any other capturer
// value names a frame source protocol.
const CapturerNone = "none"

// Configuration defaults.
const (
	defaultCapturer      = "wayland"
	defaultMinBrightness = 1
	defaultIIOPath       = "/sys/bus/iio/devices"
)

// Compiled-in configuration used when no file exists: learn from the time of
// day for the built-in panel.
const defaultConfig = `
[als]
kind = "time"
[als.thresholds]
"0" = "night"
"7" = "dim"
"9" = "day"
"17" = "dim"
"21" = "night"

[[output]]
kind = "backlight"
name = "eDP-1"
path = "/sys/class/backlight/intel_backlight"
capturer = "wayland"
min_brightness = 1
`

// ALS configures the ambient light source shared by all outputs.
type ALS struct {
	// Kind selects the source: iio, time, webcam, cmd or none.
	Kind string `toml:"kind"`

	// Path is the iio device directory to search.
	Path string `toml:"path"`

	// Video is the webcam device number.
	Video int `toml:"video"`

	// SleepMS is the webcam capture cadence in milliseconds.
	SleepMS uint64 `toml:"sleep_ms"`

	// Command is the shell command producing a lux reading on stdout.
	Command string `toml:"command"`

	// Thresholds maps raw values (as decimal strings) to bucket labels.
	Thresholds map[string]string `toml:"thresholds"`
}

// Predictor configures how an output's brightness is predicted.
type Predictor struct {
	// Kind selects adaptive learning or a manual reduction table.
	Kind string `toml:"kind"`

	// Thresholds is the manual table: bucket -> luma (as decimal string) ->
	// percentage reduction.
	Thresholds map[string]map[string]uint64 `toml:"thresholds"`
}

// Output configures one controlled display output.
type Output struct {
	// Kind selects the actuator: backlight or ddcutil.
	Kind string `toml:"kind"`

	// Name identifies the output. For ddcutil outputs it is matched as a
	// substring of the display's "model serial manufacturer" identity.
	Name string `toml:"name"`

	// Path is the sysfs device directory for backlight outputs.
	Path string `toml:"path"`

	// Capturer names the frame source protocol, or none.
	Capturer string `toml:"capturer"`

	// MinBrightness is the lowest level the daemon will set.
	MinBrightness uint64 `toml:"min_brightness"`

	// Predictor configures prediction for this output.
	Predictor Predictor `toml:"predictor"`
}

// Keyboard configures a keyboard backlight, controlled like an output with
// no capturer and no minimum brightness.
type Keyboard struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Config is the full daemon configuration.
type Config struct {
	ALS       ALS        `toml:"als"`
	Outputs   []Output   `toml:"output"`
	Keyboards []Keyboard `toml:"keyboard"`
}

// Load reads the configuration from the given path. An empty path tries the
// user's configuration directory and falls back to the compiled-in default.
func Load(path string) (*Config, error) {
	var raw []byte
	switch {
	case path != "":
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	default:
		raw = []byte(defaultConfig)
		if dir, err := os.UserConfigDir(); err == nil {
			if b, err := os.ReadFile(filepath.Join(dir, "lumen", "config.toml")); err == nil {
				raw = b
			}
		}
	}

	var c Config
	if err := toml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enum fields, applies defaults, and verifies that the
// threshold tables parse.
func (c *Config) Validate() error {
	switch c.ALS.Kind {
	case ALSIIO:
		if c.ALS.Path == "" {
			c.ALS.Path = defaultIIOPath
		}
	case ALSTime, ALSWebcam, ALSNone:
	case ALSCmd:
		if c.ALS.Command == "" {
			return fmt.Errorf("als kind cmd requires a command")
		}
	case "":
		c.ALS.Kind = ALSNone
	default:
		return fmt.Errorf("unknown als kind %q", c.ALS.Kind)
	}
	if _, err := ParseThresholds(c.ALS.Thresholds); err != nil {
		return fmt.Errorf("bad als thresholds: %w", err)
	}

	if len(c.Outputs)+len(c.Keyboards) == 0 {
		return fmt.Errorf("no outputs configured")
	}

	for i := range c.Outputs {
		o := &c.Outputs[i]
		if o.Name == "" {
			return fmt.Errorf("output %d has no name", i)
		}
		switch o.Kind {
		case OutputBacklight:
			if o.Path == "" {
				return fmt.Errorf("backlight output %q has no path", o.Name)
			}
		case OutputDDC:
		default:
			return fmt.Errorf("output %q has unknown kind %q", o.Name, o.Kind)
		}
		if o.Capturer == "" {
			o.Capturer = defaultCapturer
		}
		if o.MinBrightness == 0 {
			o.MinBrightness = defaultMinBrightness
		}
		switch o.Predictor.Kind {
		case PredictorAdaptive:
		case PredictorManual:
			if _, err := ManualThresholds(o.Predictor.Thresholds); err != nil {
				return fmt.Errorf("output %q: bad predictor thresholds: %w", o.Name, err)
			}
		case "":
			o.Predictor.Kind = PredictorAdaptive
		default:
			return fmt.Errorf("output %q has unknown predictor kind %q", o.Name, o.Predictor.Kind)
		}
	}

	for i, k := range c.Keyboards {
		if k.Name == "" || k.Path == "" {
			return fmt.Errorf("keyboard %d needs both name and path", i)
		}
	}

	return nil
}

// ParseThresholds converts a raw threshold table's decimal string keys.
func ParseThresholds(raw map[string]string) (map[uint64]string, error) {
	t := make(map[uint64]string, len(raw))
	for k, v := range raw {
		lux, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("threshold key %q is not a number", k)
		}
		t[lux] = v
	}
	return t, nil
}

// ManualThresholds converts a raw manual predictor table's decimal string
// luma keys.
func ManualThresholds(raw map[string]map[string]uint64) (map[string]map[uint8]uint64, error) {
	t := make(map[string]map[uint8]uint64, len(raw))
	for bucket, table := range raw {
		m := make(map[uint8]uint64, len(table))
		for k, percent := range table {
			l, err := strconv.ParseUint(k, 10, 8)
			if err != nil || l > 100 {
				return nil, fmt.Errorf("luma key %q out of range", k)
			}
			if percent > 100 {
				return nil, fmt.Errorf("reduction %d%% for luma %q out of range", percent, k)
			}
			m[uint8(l)] = percent
		}
		t[bucket] = m
	}
	return t, nil
}
