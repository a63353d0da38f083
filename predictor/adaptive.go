/*
DESCRIPTION
  adaptive.go provides the adaptive predictor, which learns the brightness
  surface from observed user corrections and interpolates it.

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

package predictor

import (
	"github.com/ausocean/utils/logging"
)

// Adaptive learns a (lux, luma) -> brightness surface from user edits and
// emits predictions interpolated from it. It is driven by the capture task
// through Adjust, once per captured frame.
type Adaptive struct {
	predictions chan<- uint64
	userEdits   <-chan uint64
	alsBuckets  <-chan string

	data    Data
	store   *Store // nil when running stateless
	pending *Entry

	pendingCooldown uint8

	initialBrightness *uint64

	lux             string
	haveLux         bool
	nextLux         string
	haveNextLux     bool
	nextLuxCooldown uint8

	output string
	log    logging.Logger
}

// NewAdaptive returns an adaptive predictor for the named output. When store
// is non-nil the dataset is loaded from it and every learning event is
// persisted back; otherwise the dataset lives in memory only.
func NewAdaptive(predictions chan<- uint64, userEdits <-chan uint64, alsBuckets <-chan string, store *Store, output string, l logging.Logger) *Adaptive {
	data := Data{OutputName: output}
	if store != nil {
		var err error
		data, err = store.Load(output)
		if err != nil {
			l.Warning(pkg+"could not load dataset, starting empty", "output", output, "error", err.Error())
			data = Data{OutputName: output}
		}
	}
	return &Adaptive{
		predictions: predictions,
		userEdits:   userEdits,
		alsBuckets:  alsBuckets,
		data:        data,
		store:       store,
		output:      output,
		log:         l,
	}
}

// Adjust consumes one screen lightness reading. The first call blocks for
// the initial ambient light bucket and brightness; subsequent calls are
// non-blocking.
func (a *Adaptive) Adjust(luma uint8) {
	if !a.haveLux {
		lux, ok := recvInitial(a.alsBuckets, initialTimeout)
		if !ok {
			a.log.Fatal(pkg+"did not receive initial ambient light value in time", "output", a.output)
		}
		a.lux = lux
		a.haveLux = true

		brightness, ok := recvInitial(a.userEdits, initialTimeout)
		if !ok {
			a.log.Fatal(pkg+"did not receive initial brightness value in time", "output", a.output)
		}

		// With nothing learned yet, treat the current brightness as the first
		// data point; the user is assumed happy with it.
		if len(a.data.Entries) == 0 {
			a.initialBrightness = &brightness
		}
	}

	a.debounceLux()
	a.process(a.lux, luma)
}

// debounceLux keeps the effective bucket stable until a new bucket has been
// observed unchanged for the full cooldown, preventing jitter at bucket
// boundaries from overwriting learned entries.
func (a *Adaptive) debounceLux() {
	v, ok := recvMaybeLast(a.alsBuckets)
	switch {
	case ok && (!a.haveNextLux || a.nextLux != v):
		a.nextLux = v
		a.haveNextLux = true
		a.nextLuxCooldown = nextLuxCooldownReset
	case a.nextLuxCooldown > 1:
		a.nextLuxCooldown--
	case a.nextLuxCooldown == 1:
		a.nextLuxCooldown = 0
		a.lux = a.nextLux
		a.haveNextLux = false
	}
}

func (a *Adaptive) process(lux string, luma uint8) {
	initial := a.initialBrightness
	a.initialBrightness = nil

	brightness, edited := recvMaybeLast(a.userEdits)
	if !edited && initial != nil {
		brightness, edited = *initial, true
	}

	switch {
	case edited:
		if a.pending == nil {
			// First edit of a burst freezes the conditions being learned.
			a.pending = &Entry{Lux: lux, Luma: luma, Brightness: brightness}
		} else {
			// Further edits only move the level the user is settling on.
			a.pending.Brightness = brightness
		}
		a.pendingCooldown = pendingCooldownReset
	case a.pendingCooldown > 0:
		a.pendingCooldown--
	case a.pending != nil:
		a.learn()
	default:
		a.predict(lux, luma)
	}
}

// learn inserts the pending entry, removing any entry of the same bucket
// that would break monotonicity against it: a darker screen may not have a
// lower stored brightness, a brighter screen may not have a higher one.
// Entries of other buckets are never touched.
func (a *Adaptive) learn() {
	pending := *a.pending
	a.pending = nil
	a.log.Debug(pkg+"learning entry", "output", a.output, "lux", pending.Lux, "luma", pending.Luma, "brightness", pending.Brightness)

	kept := a.data.Entries[:0]
	for _, e := range a.data.Entries {
		differentEnv := e.Lux != pending.Lux
		darkerScreen := e.Lux == pending.Lux && e.Luma < pending.Luma && e.Brightness >= pending.Brightness
		brighterScreen := e.Lux == pending.Lux && e.Luma > pending.Luma && e.Brightness <= pending.Brightness
		if differentEnv || darkerScreen || brighterScreen {
			kept = append(kept, e)
		}
	}
	a.data.Entries = append(kept, pending)
	a.data.sort()

	if a.store != nil {
		if err := a.store.Save(a.data); err != nil {
			a.log.Error(pkg+"could not persist dataset", "output", a.output, "error", err.Error())
		}
	}
}

func (a *Adaptive) predict(lux string, luma uint8) {
	prediction, ok := interpolate(a.data.Entries, lux, luma)
	if !ok {
		return
	}
	a.log.Debug(pkg+"prediction", "output", a.output, "lux", lux, "luma", luma, "brightness", prediction)
	send(a.predictions, prediction)
}
