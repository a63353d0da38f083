/*
DESCRIPTION
  none.go provides the ambient light Sensor used when no source is
  configured.

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

// None is the sensor used when ambient light sensing is disabled; every
// reading is the fallback bucket.
type None struct{}

// Name returns the name of the sensor kind.
func (None) Name() string { return "none" }

// Bucket returns the fallback bucket.
func (None) Bucket() (string, error) { return BucketNone, nil }
