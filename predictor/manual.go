/*
DESCRIPTION
  manual.go provides the manual predictor, which dims by a configured
  percentage instead of a learned surface.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package predictor

import (
	"github.com/ausocean/utils/logging"
)

// Manual emits predictions from a configured table of percentage reductions
// per ambient light bucket and screen lightness. The level before reduction
// is reconstructed from the brightness the user last chose, as that
// brightness plus its reduction under the conditions at the time; it is
// recomputed on every user override.
type Manual struct {
	predictions chan<- uint64
	userEdits   <-chan uint64
	alsBuckets  <-chan string

	// thresholds maps bucket -> screen lightness -> percentage reduction.
	thresholds map[string]map[uint8]uint64

	lastBrightness  *uint64
	preReduction    uint64
	pendingCooldown uint8

	lux             string
	haveLux         bool
	nextLux         string
	haveNextLux     bool
	nextLuxCooldown uint8

	output string
	log    logging.Logger
}

// NewManual returns a manual predictor for the named output using the given
// reduction table.
func NewManual(predictions chan<- uint64, userEdits <-chan uint64, alsBuckets <-chan string, thresholds map[string]map[uint8]uint64, output string, l logging.Logger) *Manual {
	return &Manual{
		predictions: predictions,
		userEdits:   userEdits,
		alsBuckets:  alsBuckets,
		thresholds:  thresholds,
		output:      output,
		log:         l,
	}
}

// Adjust consumes one screen lightness reading. The first call blocks for
// the initial ambient light bucket and brightness; subsequent calls are
// non-blocking.
func (m *Manual) Adjust(luma uint8) {
	if !m.haveLux {
		lux, ok := recvInitial(m.alsBuckets, initialTimeout)
		if !ok {
			m.log.Fatal(pkg+"did not receive initial ambient light value in time", "output", m.output)
		}
		m.lux = lux
		m.haveLux = true
	}

	m.debounceLux()
	m.process(m.lux, luma)
}

func (m *Manual) debounceLux() {
	v, ok := recvMaybeLast(m.alsBuckets)
	switch {
	case ok && (!m.haveNextLux || m.nextLux != v):
		m.nextLux = v
		m.haveNextLux = true
		m.nextLuxCooldown = nextLuxCooldownReset
	case m.nextLuxCooldown > 1:
		m.nextLuxCooldown--
	case m.nextLuxCooldown == 1:
		m.nextLuxCooldown = 0
		m.lux = m.nextLux
		m.haveNextLux = false
	}
}

func (m *Manual) process(lux string, luma uint8) {
	if m.lastBrightness == nil {
		brightness, ok := recvInitial(m.userEdits, initialTimeout)
		if !ok {
			m.log.Fatal(pkg+"did not receive initial brightness value in time", "output", m.output)
		}
		m.processBrightnessChange(brightness, lux, luma)
	}

	current, ok := recvMaybeLast(m.userEdits)
	if !ok {
		current = *m.lastBrightness
	}

	switch {
	case *m.lastBrightness != current:
		m.processBrightnessChange(current, lux, luma)
		m.pendingCooldown = pendingCooldownReset
	case m.pendingCooldown > 0:
		m.pendingCooldown--
	default:
		m.predict(current, lux, luma)
	}
}

func (m *Manual) predict(current uint64, lux string, luma uint8) {
	reduction := m.reduction(current, lux, luma)
	prediction := m.preReduction
	if reduction < prediction {
		prediction -= reduction
	} else {
		prediction = 0
	}

	m.log.Debug(pkg+"prediction", "output", m.output, "lux", lux, "luma", luma, "brightness", prediction)
	send(m.predictions, prediction)
}

// reduction interpolates the configured percentage reduction for the given
// conditions and applies it to the given brightness. Buckets without a
// configured table reduce by nothing.
func (m *Manual) reduction(brightness uint64, lux string, luma uint8) uint64 {
	table := m.thresholds[lux]
	entries := make([]Entry, 0, len(table))
	for l, percent := range table {
		entries = append(entries, Entry{Lux: lux, Luma: l, Brightness: percent})
	}
	percent, ok := interpolate(entries, lux, luma)
	if !ok {
		return 0
	}
	return uint64(float64(brightness) * float64(percent) / 100)
}

// processBrightnessChange records a user-chosen brightness and reconstructs
// the level it represents before reduction.
func (m *Manual) processBrightnessChange(brightness uint64, lux string, luma uint8) {
	m.preReduction = brightness + m.reduction(brightness, lux, luma)
	m.lastBrightness = &brightness
}
