/*
DESCRIPTION
  none.go provides the capturer used for outputs that cannot be captured,
  such as keyboard backlights.

AUTHORS
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package capture

import (
	"time"

	"github.com/ausocean/lumen/predictor"
)

// Tick interval of the none capturer.
const noneDelay = 200 * time.Millisecond

// None drives a predictor without frames: the screen lightness is always
// zero, so predictions depend on ambient light alone.
type None struct {
	pred  predictor.Predictor
	delay time.Duration
}

// NewNone returns a none capturer for the given predictor.
func NewNone(pred predictor.Predictor) *None {
	return &None{pred: pred, delay: noneDelay}
}

// Run ticks forever. It is intended to be run on its own goroutine.
func (n *None) Run() {
	for {
		n.pred.Adjust(0)
		time.Sleep(n.delay)
	}
}
