/*
DESCRIPTION
  als.go provides the Sensor interface for ambient light sources, the
  bucketing of raw readings against configured thresholds, and the polling
  controller that fans readings out to the per-output predictors.

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

// Package als provides ambient light sensing. A single sensor is polled by a
// controller which broadcasts the resulting bucket label to every registered
// output; raw readings never leave this package.
package als

import (
	"sort"
	"time"

	"github.com/ausocean/utils/logging"
)

// Used to indicate package in logging.
const pkg = "als: "

// The fallback bucket, used by the none sensor and whenever no thresholds
// are configured.
const BucketNone = "none"

// Polling cadence of the controller.
const pollInterval = 100 * time.Millisecond

// Capacity of subscriber channels. Consumers keep only the newest value, so
// overflow drops are harmless.
const chanCapacity = 128

// Sensor produces the current ambient light bucket label.
type Sensor interface {
	// Name identifies the sensor kind for logging.
	Name() string

	// Bucket returns the bucket label for the current ambient light level.
	Bucket() (string, error)
}

// threshold is one configured lux boundary.
type threshold struct {
	lux    uint64
	bucket string
}

// thresholds is the ascending list of configured boundaries.
type thresholds []threshold

func newThresholds(m map[uint64]string) thresholds {
	t := make(thresholds, 0, len(m))
	for lux, bucket := range m {
		t = append(t, threshold{lux: lux, bucket: bucket})
	}
	sort.Slice(t, func(i, j int) bool { return t[i].lux < t[j].lux })
	return t
}

// bucket returns the label of the greatest configured threshold not above
// raw. A raw value below every threshold maps to the smallest bucket, and an
// empty threshold set maps everything to BucketNone.
func (t thresholds) bucket(raw uint64) string {
	if len(t) == 0 {
		return BucketNone
	}
	b := t[0].bucket
	for _, th := range t {
		if th.lux > raw {
			break
		}
		b = th.bucket
	}
	return b
}

// Controller polls a sensor and fans the resulting bucket out to every
// subscriber. Sensor errors are logged and the poll is skipped; the previous
// bucket remains in effect downstream.
type Controller struct {
	sensor Sensor
	outs   []chan string
	log    logging.Logger
}

// NewController returns a controller for the given sensor. Subscribe must not
// be called after Run has been started.
func NewController(s Sensor, l logging.Logger) *Controller {
	return &Controller{sensor: s, log: l}
}

// Subscribe registers and returns a channel on which the subscriber will
// receive every polled bucket.
func (c *Controller) Subscribe() <-chan string {
	ch := make(chan string, chanCapacity)
	c.outs = append(c.outs, ch)
	return ch
}

// Run polls the sensor forever. It is intended to be run on its own
// goroutine.
func (c *Controller) Run() {
	for {
		c.step()
		time.Sleep(pollInterval)
	}
}

func (c *Controller) step() {
	b, err := c.sensor.Bucket()
	if err != nil {
		c.log.Error(pkg+"could not read ambient light level", "sensor", c.sensor.Name(), "error", err.Error())
		return
	}
	for _, ch := range c.outs {
		select {
		case ch <- b:
		default:
		}
	}
}
