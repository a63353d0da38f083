/*
DESCRIPTION
  iio.go provides an ambient light Sensor backed by an industrial-I/O
  illuminance or colour intensity device exposed through sysfs.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package als

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Device names recognised as ambient light sensors.
var iioNames = []string{"als", "acpi-als", "apds9960"}

// Linear combination applied to RGB intensity channels to approximate an
// illuminance reading.
const (
	intensityR = -0.32466
	intensityG = 1.57837
	intensityB = -0.73191
)

// IIO reads ambient light from an industrial-I/O device directory. The
// device exposes either a single illuminance channel with optional scale and
// offset, or red/green/blue intensity channels which are combined linearly.
type IIO struct {
	illuminance *os.File
	scale       float64
	offset      float64

	r, g, b *os.File

	thresholds thresholds
}

// NewIIO searches base for the first subdirectory whose name file identifies
// an ambient light sensor and opens its value files. It returns an error if
// no device is found or none of the known channel layouts is present.
func NewIIO(base string, t map[uint64]string) (*IIO, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("could not read iio device directory: %w", err)
	}

	for _, e := range entries {
		dir := filepath.Join(base, e.Name())
		name, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil {
			continue
		}
		if !isIIOName(strings.TrimSpace(string(name))) {
			continue
		}

		s, err := parseIIODevice(dir)
		if err != nil {
			return nil, fmt.Errorf("unusable iio device %s: %w", dir, err)
		}
		s.thresholds = newThresholds(t)
		return s, nil
	}

	return nil, fmt.Errorf("no iio ambient light device under %s", base)
}

// Name returns the name of the sensor kind.
func (s *IIO) Name() string { return "iio" }

// Bucket reads the raw illuminance and buckets it against the configured
// thresholds.
func (s *IIO) Bucket() (string, error) {
	raw, err := s.raw()
	if err != nil {
		return "", err
	}
	return s.thresholds.bucket(raw), nil
}

func (s *IIO) raw() (uint64, error) {
	if s.illuminance != nil {
		v, err := readDeviceFile(s.illuminance)
		if err != nil {
			return 0, err
		}
		return clampRaw((v + s.offset) * s.scale), nil
	}

	r, err := readDeviceFile(s.r)
	if err != nil {
		return 0, err
	}
	g, err := readDeviceFile(s.g)
	if err != nil {
		return 0, err
	}
	b, err := readDeviceFile(s.b)
	if err != nil {
		return 0, err
	}
	return clampRaw(intensityR*r + intensityG*g + intensityB*b), nil
}

// parseIIODevice tries the known channel layouts in order: raw illuminance,
// processed illuminance, combined intensity, and finally RGB intensity.
func parseIIODevice(dir string) (*IIO, error) {
	if f, err := openFirst(dir, "in_illuminance_raw", "in_illuminance0_raw"); err == nil {
		return &IIO{
			illuminance: f,
			scale:       readOptional(dir, 1, "in_illuminance_scale", "in_illuminance0_scale"),
			offset:      readOptional(dir, 0, "in_illuminance_offset", "in_illuminance0_offset"),
		}, nil
	}

	if f, err := openFirst(dir, "in_illuminance_input", "in_illuminance0_input"); err == nil {
		return &IIO{illuminance: f, scale: 1, offset: 0}, nil
	}

	if f, err := openFirst(dir, "in_intensity_both_raw"); err == nil {
		return &IIO{
			illuminance: f,
			scale:       readOptional(dir, 1, "in_intensity_scale"),
			offset:      readOptional(dir, 0, "in_intensity_offset"),
		}, nil
	}

	r, errR := openFirst(dir, "in_intensity_red_raw")
	g, errG := openFirst(dir, "in_intensity_green_raw")
	b, errB := openFirst(dir, "in_intensity_blue_raw")
	if errR == nil && errG == nil && errB == nil {
		return &IIO{r: r, g: g, b: b}, nil
	}

	return nil, fmt.Errorf("no known channel layout")
}

func isIIOName(name string) bool {
	for _, n := range iioNames {
		if name == n {
			return true
		}
	}
	return false
}

func openFirst(dir string, names ...string) (*os.File, error) {
	var err error
	for _, n := range names {
		var f *os.File
		f, err = os.Open(filepath.Join(dir, n))
		if err == nil {
			return f, nil
		}
	}
	return nil, err
}

// readOptional reads a single value from the first of the named files,
// falling back to def when none exists or parses.
func readOptional(dir string, def float64, names ...string) float64 {
	f, err := openFirst(dir, names...)
	if err != nil {
		return def
	}
	defer f.Close()
	v, err := readDeviceFile(f)
	if err != nil {
		return def
	}
	return v
}

// readDeviceFile reads the file from offset 0 as a decimal value; reading at
// a fixed offset leaves the file position alone, so every call observes a
// fresh reading.
func readDeviceFile(f *os.File) (float64, error) {
	buf := make([]byte, 64)
	n, err := f.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return 0, fmt.Errorf("could not read device file: %w", err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(buf[:n])), 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse device file: %w", err)
	}
	return v, nil
}

func clampRaw(v float64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
