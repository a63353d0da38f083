/*
DESCRIPTION
  controller.go provides the per-output brightness controller: it publishes
  externally observed brightness changes as user edits and drives smooth
  transitions toward predicted levels.

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

package brightness

import (
	"time"

	"github.com/ausocean/utils/logging"
)

const (
	// A full transition traverses the whole distance within this budget, one
	// step per millisecond.
	transitionMaxMS = 200

	// Sleep between transition steps.
	transitionStep = time.Millisecond

	// Sleep when idle.
	waitingSleep = 100 * time.Millisecond
)

// target is a transition in progress.
type target struct {
	desired uint64
	step    int64
}

// reached reports whether current has arrived at, or passed, the desired
// level in the direction of travel.
func (t *target) reached(current uint64) bool {
	return (t.step > 0 && current >= t.desired) || (t.step < 0 && current <= t.desired)
}

// Controller owns one actuator. Each tick it reads the hardware level; a
// level it did not write itself is a user edit, which is published and
// overrides any transition in progress. Otherwise the newest prediction is
// taken as a new transition target.
type Controller struct {
	actuator    Actuator
	userEdits   chan<- uint64
	predictions <-chan uint64

	current   uint64
	haveFirst bool
	target    *target

	output string
	log    logging.Logger
}

// NewController returns a controller for the given actuator, publishing user
// edits on userEdits and consuming predictions from predictions.
func NewController(a Actuator, userEdits chan<- uint64, predictions <-chan uint64, output string, l logging.Logger) *Controller {
	return &Controller{
		actuator:    a,
		userEdits:   userEdits,
		predictions: predictions,
		output:      output,
		log:         l,
	}
}

// Run ticks forever. It is intended to be run on its own goroutine; actuator
// errors are logged and the tick is skipped.
func (c *Controller) Run() {
	for {
		c.step()
	}
}

func (c *Controller) step() {
	// 1. A hardware level we did not write ourselves is a user edit, which
	// overrides any ongoing activity.
	v, err := c.actuator.Get()
	if err != nil {
		c.log.Error(pkg+"could not read brightness", "output", c.output, "error", err.Error())
		time.Sleep(waitingSleep)
		return
	}
	if !c.haveFirst || v != c.current {
		c.updateCurrent(v)
		return
	}

	// 2. The newest prediction wins.
	if desired, ok := recvLast(c.predictions); ok {
		c.updateTarget(desired)
	}

	// 3. Continue the transition in progress, if any.
	if c.target != nil {
		c.transition()
		return
	}

	// 4. Nothing to do.
	time.Sleep(waitingSleep)
}

func (c *Controller) updateCurrent(v uint64) {
	c.current = v
	c.haveFirst = true
	c.target = nil
	select {
	case c.userEdits <- v:
	default:
	}
	c.log.Debug(pkg+"observed brightness change", "output", c.output, "brightness", v)
}

func (c *Controller) updateTarget(desired uint64) {
	if c.target != nil && c.target.desired == desired {
		return
	}
	if desired == c.current {
		return
	}

	diff := absDiff(desired, c.current)
	step := int64((diff + transitionMaxMS - 1) / transitionMaxMS)
	if c.current > desired {
		step = -step
	}
	c.target = &target{desired: desired, step: step}
	c.log.Debug(pkg+"new transition", "output", c.output, "desired", desired, "step", step)
}

func (c *Controller) transition() {
	if c.target.reached(c.current) {
		c.target = nil
		return
	}

	next := int64(c.current) + c.target.step
	if next < 0 {
		next = 0
	}
	// The last step lands exactly on the desired level.
	if (c.target.step > 0 && uint64(next) > c.target.desired) || (c.target.step < 0 && uint64(next) < c.target.desired) {
		next = int64(c.target.desired)
	}

	written, err := c.actuator.Set(uint64(next))
	if err != nil {
		c.log.Error(pkg+"could not set brightness", "output", c.output, "error", err.Error())
		return
	}
	c.current = written
	time.Sleep(transitionStep)
}

// recvLast drains the channel and returns the newest value, or ok false when
// the channel was empty.
func recvLast(ch <-chan uint64) (v uint64, ok bool) {
	for {
		select {
		case next := <-ch:
			v, ok = next, true
		default:
			return v, ok
		}
	}
}

func absDiff(x, y uint64) uint64 {
	if x > y {
		return x - y
	}
	return y - x
}
