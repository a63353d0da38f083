/*
DESCRIPTION
  iio_test.go tests industrial-I/O device discovery and reading.

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
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewIIOIlluminanceRaw(t *testing.T) {
	base := t.TempDir()
	dev := filepath.Join(base, "iio:device0")
	if err := os.Mkdir(dev, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dev, "name", "acpi-als\n")
	writeFile(t, dev, "in_illuminance_raw", "120\n")
	writeFile(t, dev, "in_illuminance_scale", "0.5\n")
	writeFile(t, dev, "in_illuminance_offset", "10\n")

	s, err := NewIIO(base, testThresholds())
	if err != nil {
		t.Fatalf("could not create iio sensor: %v", err)
	}

	// (120 + 10) * 0.5 = 65.
	raw, err := s.raw()
	if err != nil {
		t.Fatalf("could not read raw value: %v", err)
	}
	if raw != 65 {
		t.Errorf("got raw %d, want 65", raw)
	}

	b, err := s.Bucket()
	if err != nil {
		t.Fatalf("could not bucket: %v", err)
	}
	if b != "bright" {
		t.Errorf("got %q, want bright", b)
	}
}

func TestNewIIOIlluminanceInputFallback(t *testing.T) {
	base := t.TempDir()
	dev := filepath.Join(base, "iio:device3")
	if err := os.Mkdir(dev, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dev, "name", "als")
	writeFile(t, dev, "in_illuminance_input", "42")

	s, err := NewIIO(base, testThresholds())
	if err != nil {
		t.Fatalf("could not create iio sensor: %v", err)
	}
	raw, err := s.raw()
	if err != nil {
		t.Fatalf("could not read raw value: %v", err)
	}
	if raw != 42 {
		t.Errorf("got raw %d, want 42", raw)
	}
}

func TestNewIIOIntensityRGB(t *testing.T) {
	base := t.TempDir()
	dev := filepath.Join(base, "iio:device1")
	if err := os.Mkdir(dev, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dev, "name", "apds9960")
	writeFile(t, dev, "in_intensity_red_raw", "100")
	writeFile(t, dev, "in_intensity_green_raw", "200")
	writeFile(t, dev, "in_intensity_blue_raw", "50")

	s, err := NewIIO(base, testThresholds())
	if err != nil {
		t.Fatalf("could not create iio sensor: %v", err)
	}

	// -0.32466*100 + 1.57837*200 - 0.73191*50 = 246.6.
	raw, err := s.raw()
	if err != nil {
		t.Fatalf("could not read raw value: %v", err)
	}
	if raw != 246 {
		t.Errorf("got raw %d, want 246", raw)
	}
}

func TestNewIIONoDevice(t *testing.T) {
	base := t.TempDir()
	dev := filepath.Join(base, "iio:device0")
	if err := os.Mkdir(dev, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dev, "name", "accel_3d")

	if _, err := NewIIO(base, testThresholds()); err == nil {
		t.Error("expected error for directory without light sensor")
	}
}

func TestIIORereadsFreshValue(t *testing.T) {
	base := t.TempDir()
	dev := filepath.Join(base, "iio:device0")
	if err := os.Mkdir(dev, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dev, "name", "als")
	writeFile(t, dev, "in_illuminance_raw", "5")

	s, err := NewIIO(base, testThresholds())
	if err != nil {
		t.Fatalf("could not create iio sensor: %v", err)
	}
	if raw, _ := s.raw(); raw != 5 {
		t.Fatalf("got raw %d, want 5", raw)
	}

	writeFile(t, dev, "in_illuminance_raw", "55")
	if raw, _ := s.raw(); raw != 55 {
		t.Errorf("got raw %d, want 55 after update", raw)
	}
}
