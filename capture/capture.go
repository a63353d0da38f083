/*
DESCRIPTION
  capture.go provides the per-output capture loop: it obtains frames from a
  frame source, drives the luma pipeline and delivers the result to the
  predictor, pacing itself with fixed delays.

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

// Package capture obtains compositor frames for each output and feeds their
// perceived lightness to the output's predictor. The display-server protocol
// lives behind the FrameSource interface; implementations register
// themselves by protocol name.
package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/ausocean/lumen/luma"
	"github.com/ausocean/lumen/predictor"
	"github.com/ausocean/utils/logging"
)

// Used to indicate package in logging.
const pkg = "capture: "

const (
	// Pause after a frame has been processed and delivered.
	delaySuccess = 100 * time.Millisecond

	// Pause after the compositor cancelled a capture.
	delayFailure = 1000 * time.Millisecond
)

// Frame source failure severities. A transient failure backs the loop off; a
// permanent failure ends capturing for the output.
var (
	ErrTransient = errors.New("capture cancelled, will retry")
	ErrPermanent = errors.New("capture permanently unavailable")
)

// FrameSource obtains frames of one output from the compositor.
type FrameSource interface {
	// Name identifies the protocol for logging.
	Name() string

	// Frame blocks on compositor dispatch until the next frame is complete.
	// Failures wrap ErrTransient or ErrPermanent.
	Frame() (*luma.Frame, error)

	// Close releases the compositor connection.
	Close() error
}

// SourceFactory constructs a frame source bound to the named output.
type SourceFactory func(output string, l logging.Logger) (FrameSource, error)

var sources = map[string]SourceFactory{}

// RegisterSource registers a frame source implementation under a protocol
// name, making it available to configuration.
func RegisterSource(name string, f SourceFactory) {
	sources[name] = f
}

// NewSource constructs the frame source registered under the given protocol
// name. An unregistered protocol is an error; the caller treats it as a
// missing device and skips the output.
func NewSource(name, output string, l logging.Logger) (FrameSource, error) {
	f, ok := sources[name]
	if !ok {
		return nil, fmt.Errorf("no frame source for protocol %q", name)
	}
	return f(output, l)
}

// Capturer runs the capture loop for one output.
type Capturer struct {
	source    FrameSource
	processor luma.Processor
	pred      predictor.Predictor

	successDelay time.Duration
	failureDelay time.Duration

	output string
	log    logging.Logger
}

// New returns a capturer feeding frames of the given source through the
// processor into the predictor.
func New(source FrameSource, processor luma.Processor, pred predictor.Predictor, output string, l logging.Logger) *Capturer {
	return &Capturer{
		source:       source,
		processor:    processor,
		pred:         pred,
		successDelay: delaySuccess,
		failureDelay: delayFailure,
		output:       output,
		log:          l,
	}
}

// Run loops until the source fails permanently or delivers a frame the
// pipeline cannot interpret. It is intended to be run on its own goroutine.
func (c *Capturer) Run() {
	defer c.source.Close()
	for c.step() {
	}
	c.log.Warning(pkg+"capture ended", "output", c.output)
}

// step performs one pass of the loop: request a frame, process it, deliver
// the luma, pace. It returns false when capturing must end for this output.
func (c *Capturer) step() bool {
	f, err := c.source.Frame()
	switch {
	case err == nil:
	case errors.Is(err, ErrPermanent):
		c.log.Error(pkg+"capture failed permanently", "output", c.output, "error", err.Error())
		return false
	default:
		c.log.Warning(pkg+"capture cancelled", "output", c.output, "error", err.Error())
		time.Sleep(c.failureDelay)
		return true
	}

	l, err := c.processor.LumaPercent(f)
	switch {
	case err == nil:
	case errors.Is(err, luma.ErrUnsupportedFormat), errors.Is(err, luma.ErrUnsupportedFrameLayout):
		// Frames this pipeline cannot interpret will not get better on
		// retry.
		c.log.Error(pkg+"unusable frame", "output", c.output, "error", err.Error())
		return false
	default:
		c.log.Warning(pkg+"could not compute luma", "output", c.output, "error", err.Error())
		time.Sleep(c.successDelay)
		return true
	}

	c.pred.Adjust(l)
	time.Sleep(c.successDelay)
	return true
}
