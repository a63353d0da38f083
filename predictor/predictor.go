/*
DESCRIPTION
  predictor.go provides the Predictor interface, the shared interpolation
  over learned entries, and channel draining helpers used by the predictor
  implementations.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package predictor learns, per output, which brightness the user prefers
// under each combination of ambient light bucket and screen lightness, and
// emits predictions as conditions change.
package predictor

import (
	"math"
	"time"
)

// Used to indicate package in logging.
const pkg = "predictor: "

const (
	// How long the first adjustment waits for the initial ambient light and
	// brightness values before the output is considered misconfigured.
	initialTimeout = 5 * time.Second

	// Number of edit-free adjustments before a pending entry is learned.
	pendingCooldownReset = 15

	// Number of adjustments a new ambient light bucket must remain stable
	// before it takes effect.
	nextLuxCooldownReset = 15
)

// Predictor consumes one screen lightness value per captured frame and
// drives the learning and prediction cycle for one output.
type Predictor interface {
	Adjust(luma uint8)
}

// interpolate predicts a brightness for the given bucket and lightness by
// inverse-distance weighting over the entries of that bucket. The weight of
// each entry is the product of every other entry's distance, so a zero
// distance degenerates to the stored brightness of the exact match. The
// second return is false when the bucket has no entries.
func interpolate(entries []Entry, lux string, luma uint8) (uint64, bool) {
	type point struct {
		brightness float64
		distance   float64
	}
	var points []point
	for _, e := range entries {
		if e.Lux != lux {
			continue
		}
		points = append(points, point{
			brightness: float64(e.Brightness),
			distance:   math.Abs(float64(luma) - float64(e.Luma)),
		})
	}
	if len(points) == 0 {
		return 0, false
	}
	if len(points) == 1 {
		return uint64(points[0].brightness), true
	}

	products := make([]float64, len(points))
	var denominator float64
	for i := range points {
		p := 1.0
		for j := range points {
			if j != i {
				p *= points[j].distance
			}
		}
		products[i] = p
		denominator += p
	}
	if denominator == 0 {
		return uint64(points[0].brightness), true
	}

	var prediction float64
	for i := range points {
		prediction += points[i].brightness * products[i] / denominator
	}
	return uint64(prediction), true
}

// recvMaybeLast drains the channel and returns the newest value, or ok false
// when the channel was empty. It never blocks.
func recvMaybeLast[T any](ch <-chan T) (v T, ok bool) {
	for {
		select {
		case next := <-ch:
			v, ok = next, true
		default:
			return v, ok
		}
	}
}

// recvInitial blocks for the first value on the channel up to the given
// timeout.
func recvInitial[T any](ch <-chan T, timeout time.Duration) (v T, ok bool) {
	select {
	case v = <-ch:
		return v, true
	case <-time.After(timeout):
		return v, false
	}
}

// send offers a value on the channel without blocking; a full channel drops
// the value, which is harmless since consumers keep only the newest.
func send[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
