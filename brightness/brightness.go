/*
DESCRIPTION
  brightness.go provides the Actuator interface implemented by the backlight
  and DDC/CI backends.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package brightness owns the brightness of one output: it reads and writes
// the hardware level through an actuator, detects user edits, and moves the
// level smoothly toward the newest prediction.
package brightness

// Used to indicate package in logging.
const pkg = "brightness: "

// Actuator is a mutable hardware brightness level. Implementations clamp
// writes to their device's valid range and return the value actually
// written.
type Actuator interface {
	// Name identifies the actuator kind for logging.
	Name() string

	// Get returns the current hardware brightness.
	Get() (uint64, error)

	// Set writes the given brightness, clamped to the device range, and
	// returns the clamped value.
	Set(v uint64) (uint64, error)

	// Max returns the maximum brightness the device accepts.
	Max() uint64
}

// clamp bounds v to [min, max].
func clamp(v, min, max uint64) uint64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
