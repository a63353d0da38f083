/*
DESCRIPTION
  capture_test.go tests the capture loop's pacing and failure handling.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package capture

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ausocean/lumen/luma"
	"github.com/ausocean/utils/logging"
)

// fakeSource returns a scripted sequence of frames and errors.
type fakeSource struct {
	frames []*luma.Frame
	errs   []error
	i      int
	closed bool
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Frame() (*luma.Frame, error) {
	f, err := s.frames[s.i], s.errs[s.i]
	if s.i < len(s.frames)-1 {
		s.i++
	}
	return f, err
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// fakeProcessor returns a fixed luma or error.
type fakeProcessor struct {
	luma uint8
	err  error
}

func (p *fakeProcessor) LumaPercent(f *luma.Frame) (uint8, error) { return p.luma, p.err }

// fakePredictor records every adjustment.
type fakePredictor struct {
	lumas []uint8
}

func (p *fakePredictor) Adjust(l uint8) { p.lumas = append(p.lumas, l) }

func newTestCapturer(s FrameSource, proc luma.Processor, pred *fakePredictor) *Capturer {
	l := logging.New(logging.Error, &bytes.Buffer{}, true)
	c := New(s, proc, pred, "eDP-1", l)
	c.successDelay = 0
	c.failureDelay = 0
	return c
}

func TestStepDeliversLuma(t *testing.T) {
	s := &fakeSource{frames: []*luma.Frame{{Width: 8, Height: 8}}, errs: []error{nil}}
	pred := &fakePredictor{}
	c := newTestCapturer(s, &fakeProcessor{luma: 57}, pred)

	if !c.step() {
		t.Fatal("step should continue after success")
	}
	if len(pred.lumas) != 1 || pred.lumas[0] != 57 {
		t.Errorf("predictor received %v, want [57]", pred.lumas)
	}
}

func TestStepRetriesOnTransientFailure(t *testing.T) {
	s := &fakeSource{
		frames: []*luma.Frame{nil, {Width: 8, Height: 8}},
		errs:   []error{fmt.Errorf("compositor busy: %w", ErrTransient), nil},
	}
	pred := &fakePredictor{}
	c := newTestCapturer(s, &fakeProcessor{luma: 12}, pred)

	if !c.step() {
		t.Fatal("transient failure should not end the loop")
	}
	if !c.step() {
		t.Fatal("recovery step should continue")
	}
	if len(pred.lumas) != 1 || pred.lumas[0] != 12 {
		t.Errorf("predictor received %v, want [12]", pred.lumas)
	}
}

func TestStepEndsOnPermanentFailure(t *testing.T) {
	s := &fakeSource{
		frames: []*luma.Frame{nil},
		errs:   []error{fmt.Errorf("output gone: %w", ErrPermanent)},
	}
	pred := &fakePredictor{}
	c := newTestCapturer(s, &fakeProcessor{}, pred)

	if c.step() {
		t.Error("permanent failure should end the loop")
	}
	if len(pred.lumas) != 0 {
		t.Errorf("predictor received %v, want none", pred.lumas)
	}
}

func TestStepEndsOnUnusableFrame(t *testing.T) {
	s := &fakeSource{frames: []*luma.Frame{{Width: 8, Height: 8}}, errs: []error{nil}}
	pred := &fakePredictor{}
	c := newTestCapturer(s, &fakeProcessor{err: luma.ErrUnsupportedFormat}, pred)

	if c.step() {
		t.Error("unsupported format should end the loop")
	}
}

func TestStepRetriesOnGPUFailure(t *testing.T) {
	s := &fakeSource{frames: []*luma.Frame{{Width: 8, Height: 8}}, errs: []error{nil}}
	pred := &fakePredictor{}
	c := newTestCapturer(s, &fakeProcessor{err: fmt.Errorf("fence: %w", luma.ErrUnavailable)}, pred)

	if !c.step() {
		t.Error("GPU failure should be retried on the next frame")
	}
	if len(pred.lumas) != 0 {
		t.Errorf("predictor received %v, want none", pred.lumas)
	}
}

func TestNewSourceUnknownProtocol(t *testing.T) {
	l := logging.New(logging.Error, &bytes.Buffer{}, true)
	if _, err := NewSource("no-such-protocol", "eDP-1", l); err == nil {
		t.Error("expected error for unregistered protocol")
	}
}

func TestRegisterSource(t *testing.T) {
	l := logging.New(logging.Error, &bytes.Buffer{}, true)
	RegisterSource("test-proto", func(output string, l logging.Logger) (FrameSource, error) {
		return &fakeSource{frames: []*luma.Frame{nil}, errs: []error{ErrPermanent}}, nil
	})
	s, err := NewSource("test-proto", "eDP-1", l)
	if err != nil {
		t.Fatalf("could not construct registered source: %v", err)
	}
	if s.Name() != "fake" {
		t.Errorf("got %q, want fake", s.Name())
	}
}
