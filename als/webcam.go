/*
DESCRIPTION
  webcam.go provides an ambient light Sensor that estimates the light level
  from the perceived lightness of webcam frames.

AUTHORS
  Scott Barnard <scott@ausocean.org>
  Trek Hopton <trek@ausocean.org>

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
	"time"

	"gocv.io/x/gocv"

	"github.com/ausocean/lumen/luma"
	"github.com/ausocean/utils/logging"
)

// Capture cadence and the raw value reported before the first frame has been
// analysed.
const (
	defaultCaptureSleep = 2000 * time.Millisecond
	minCaptureSleep     = 1000 * time.Millisecond
	defaultRawLux       = 100
)

// Requested capture extent; V4L drivers clamp this to the smallest frame
// size the device supports.
const requestedExtent = 1

// WebcamCapture periodically grabs a frame from a V4L device, computes its
// perceived lightness on the CPU and publishes the percentage as a raw lux
// reading. It runs on its own goroutine; the Webcam sensor consumes its
// output.
type WebcamCapture struct {
	out   chan<- uint64
	video int
	sleep time.Duration
	log   logging.Logger
}

// NewWebcamCapture returns a capture task for /dev/video<video> publishing
// to out. A sleepMS below the minimum cadence falls back to the default.
func NewWebcamCapture(out chan<- uint64, video int, sleepMS uint64, l logging.Logger) *WebcamCapture {
	sleep := defaultCaptureSleep
	if d := time.Duration(sleepMS) * time.Millisecond; d >= minCaptureSleep {
		sleep = d
	}
	return &WebcamCapture{out: out, video: video, sleep: sleep, log: l}
}

// Run captures frames forever.
func (w *WebcamCapture) Run() {
	for {
		lux, err := w.frameLightness()
		if err != nil {
			w.log.Warning(pkg+"could not capture webcam frame", "video", w.video, "error", err.Error())
		} else {
			select {
			case w.out <- lux:
			default:
			}
		}
		time.Sleep(w.sleep)
	}
}

func (w *WebcamCapture) frameLightness() (uint64, error) {
	cap, err := gocv.OpenVideoCapture(w.video)
	if err != nil {
		return 0, fmt.Errorf("could not open video device: %w", err)
	}
	defer cap.Close()

	// Ask for the smallest frame the device will give us; lightness does not
	// need resolution.
	cap.Set(gocv.VideoCaptureFrameWidth, requestedExtent)
	cap.Set(gocv.VideoCaptureFrameHeight, requestedExtent)

	img := gocv.NewMat()
	defer img.Close()
	if ok := cap.Read(&img); !ok || img.Empty() {
		return 0, fmt.Errorf("could not read frame from video device %d", w.video)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)

	data := rgb.ToBytes()
	pixels := rgb.Rows() * rgb.Cols()
	return uint64(luma.PerceivedLightness(data, false, pixels)), nil
}

// Webcam buckets the most recent lightness published by a WebcamCapture
// task. Until the first frame arrives a fixed default raw value is used.
type Webcam struct {
	in         <-chan uint64
	lux        uint64
	thresholds thresholds
}

// NewWebcam returns a webcam sensor reading from in.
func NewWebcam(in <-chan uint64, t map[uint64]string) *Webcam {
	return &Webcam{in: in, lux: defaultRawLux, thresholds: newThresholds(t)}
}

// Name returns the name of the sensor kind.
func (s *Webcam) Name() string { return "webcam" }

// Bucket drains the capture channel, keeps the newest reading and buckets it.
func (s *Webcam) Bucket() (string, error) {
	for {
		select {
		case v := <-s.in:
			s.lux = v
		default:
			return s.thresholds.bucket(s.lux), nil
		}
	}
}
