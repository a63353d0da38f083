/*
DESCRIPTION
  time.go provides an ambient light Sensor that infers the light level from
  the time of day.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package als

import "time"

// TimeOfDay buckets the current local hour against the configured
// thresholds.
type TimeOfDay struct {
	thresholds thresholds
	now        func() time.Time
}

// NewTimeOfDay returns a time-of-day sensor using the given hour thresholds.
func NewTimeOfDay(t map[uint64]string) *TimeOfDay {
	return &TimeOfDay{thresholds: newThresholds(t), now: time.Now}
}

// Name returns the name of the sensor kind.
func (s *TimeOfDay) Name() string { return "time" }

// Bucket buckets the current hour.
func (s *TimeOfDay) Bucket() (string, error) {
	return s.thresholds.bucket(uint64(s.now().Hour())), nil
}
