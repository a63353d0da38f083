/*
DESCRIPTION
  adaptive_test.go tests the adaptive predictor's learning, pruning,
  debouncing and prediction behaviour.

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
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/utils/logging"
)

const (
	alsDark   = "dark"
	alsDim    = "dim"
	alsBright = "bright"
)

func setupAdaptive(t *testing.T) (*Adaptive, chan uint64, chan string, chan uint64) {
	t.Helper()
	l := logging.New(logging.Error, &bytes.Buffer{}, true)
	alsCh := make(chan string, 128)
	userCh := make(chan uint64, 128)
	predCh := make(chan uint64, 128)
	alsCh <- alsBright
	userCh <- 0
	return NewAdaptive(predCh, userCh, alsCh, nil, "Dell 1", l), userCh, alsCh, predCh
}

func TestProcessFirstUserChange(t *testing.T) {
	a, userCh, _, _ := setupAdaptive(t)

	// User changes brightness to 33 under given conditions.
	userCh <- 33
	a.process(alsDim, 66)

	want := Entry{Lux: alsDim, Luma: 66, Brightness: 33}
	if a.pending == nil || *a.pending != want {
		t.Errorf("pending = %v, want %v", a.pending, want)
	}
	if a.pendingCooldown != pendingCooldownReset {
		t.Errorf("pendingCooldown = %d, want %d", a.pendingCooldown, pendingCooldownReset)
	}
}

func TestProcessContinuousUserChanges(t *testing.T) {
	a, userCh, _, _ := setupAdaptive(t)

	// The user keeps turning the knob while conditions drift; the conditions
	// of the first edit stay frozen, only the level follows.
	userCh <- 33
	a.process(alsDim, 66)
	userCh <- 34
	a.process(alsBright, 36)
	userCh <- 35
	userCh <- 36
	a.process(alsDark, 16)

	want := Entry{Lux: alsDim, Luma: 66, Brightness: 36}
	if a.pending == nil || *a.pending != want {
		t.Errorf("pending = %v, want %v", a.pending, want)
	}
	if a.pendingCooldown != pendingCooldownReset {
		t.Errorf("pendingCooldown = %d, want %d", a.pendingCooldown, pendingCooldownReset)
	}
}

func TestProcessLearnsAfterCooldown(t *testing.T) {
	a, userCh, _, _ := setupAdaptive(t)

	userCh <- 33
	a.process(alsDim, 66)
	userCh <- 35
	a.process(alsDark, 16)

	for i := uint8(1); i <= pendingCooldownReset; i++ {
		a.process(alsBright, i)
		if a.pendingCooldown != pendingCooldownReset-i {
			t.Fatalf("pendingCooldown = %d, want %d", a.pendingCooldown, pendingCooldownReset-i)
		}
		if a.pending == nil {
			t.Fatal("pending should survive the cooldown")
		}
	}

	// One more edit-free adjustment triggers the learning.
	a.process(alsDark, 17)

	if a.pending != nil {
		t.Errorf("pending = %v, want nil", a.pending)
	}
	want := []Entry{{Lux: alsDim, Luma: 66, Brightness: 35}}
	if diff := cmp.Diff(want, a.data.Entries); diff != "" {
		t.Errorf("unexpected dataset (-want +got):\n%s", diff)
	}
}

func TestLearnPruning(t *testing.T) {
	a, _, _, _ := setupAdaptive(t)

	a.data.Entries = []Entry{
		{Lux: alsDim, Luma: 20, Brightness: 80},
		{Lux: alsDim, Luma: 30, Brightness: 70},
		{Lux: alsDim, Luma: 40, Brightness: 60},
	}
	a.pending = &Entry{Lux: alsDim, Luma: 30, Brightness: 50}

	a.learn()

	// The darker-screen entry stored brighter survives; the brighter-screen
	// entry stored above the new level is removed.
	want := []Entry{
		{Lux: alsDim, Luma: 20, Brightness: 80},
		{Lux: alsDim, Luma: 30, Brightness: 50},
	}
	if diff := cmp.Diff(want, a.data.Entries); diff != "" {
		t.Errorf("unexpected dataset (-want +got):\n%s", diff)
	}
}

func TestLearnNeverTouchesOtherBuckets(t *testing.T) {
	a, _, _, _ := setupAdaptive(t)

	var all []Entry
	buckets := []string{alsDark, alsDim, alsBright}
	for _, b := range buckets {
		for dl := -1; dl <= 1; dl++ {
			for db := -1; db <= 1; db++ {
				all = append(all, Entry{Lux: b, Luma: uint8(20 + dl), Brightness: uint64(30 + db)})
			}
		}
	}
	a.data.Entries = all
	a.pending = &Entry{Lux: alsDim, Luma: 20, Brightness: 30}

	a.learn()

	deleted := map[Entry]bool{
		{Lux: alsDim, Luma: 19, Brightness: 29}: true,
		{Lux: alsDim, Luma: 20, Brightness: 29}: true,
		{Lux: alsDim, Luma: 20, Brightness: 31}: true,
		{Lux: alsDim, Luma: 21, Brightness: 31}: true,
	}

	got := map[Entry]bool{}
	for _, e := range a.data.Entries {
		if got[e] {
			t.Errorf("duplicate entry %v", e)
		}
		got[e] = true
	}

	for _, e := range all {
		switch {
		case deleted[e] && got[e]:
			t.Errorf("entry %v should have been removed", e)
		case !deleted[e] && !got[e]:
			t.Errorf("entry %v should have been kept", e)
		}
	}
}

func TestPredictNoDataPoints(t *testing.T) {
	a, _, _, predCh := setupAdaptive(t)
	a.data.Entries = nil

	a.predict(alsDim, 20)

	select {
	case v := <-predCh:
		t.Errorf("unexpected prediction %d", v)
	default:
	}
}

func TestPredictNoDataPointsForCurrentBucket(t *testing.T) {
	a, _, _, predCh := setupAdaptive(t)
	a.data.Entries = []Entry{
		{Lux: alsDark, Luma: 50, Brightness: 100},
		{Lux: alsBright, Luma: 60, Brightness: 100},
	}

	a.predict(alsDim, 20)

	select {
	case v := <-predCh:
		t.Errorf("unexpected prediction %d", v)
	default:
	}
}

func TestPredictOneDataPoint(t *testing.T) {
	a, _, _, predCh := setupAdaptive(t)
	a.data.Entries = []Entry{{Lux: alsDim, Luma: 10, Brightness: 15}}

	a.predict(alsDim, 20)

	if got := <-predCh; got != 15 {
		t.Errorf("got %d, want 15", got)
	}
}

func TestPredictKnownConditions(t *testing.T) {
	a, _, _, predCh := setupAdaptive(t)
	a.data.Entries = []Entry{
		{Lux: alsDim, Luma: 10, Brightness: 15},
		{Lux: alsDim, Luma: 20, Brightness: 30},
	}

	a.predict(alsDim, 20)

	if got := <-predCh; got != 30 {
		t.Errorf("got %d, want 30", got)
	}
}

func TestPredictApproximate(t *testing.T) {
	a, _, _, predCh := setupAdaptive(t)
	a.data.Entries = []Entry{
		{Lux: alsDim, Luma: 10, Brightness: 15},
		{Lux: alsDim, Luma: 20, Brightness: 30},
		{Lux: alsDim, Luma: 100, Brightness: 100},
	}

	a.predict(alsDim, 50)

	if got := <-predCh; got != 43 {
		t.Errorf("got %d, want 43", got)
	}
}

func TestPredictIgnoresOtherBuckets(t *testing.T) {
	a, _, _, predCh := setupAdaptive(t)
	a.data.Entries = []Entry{
		{Lux: alsDim, Luma: 10, Brightness: 15},
		{Lux: alsDim, Luma: 20, Brightness: 30},
		{Lux: alsDim, Luma: 100, Brightness: 100},
		{Lux: alsDark, Luma: 50, Brightness: 100},
		{Lux: alsBright, Luma: 51, Brightness: 100},
	}

	a.predict(alsDim, 50)

	if got := <-predCh; got != 43 {
		t.Errorf("got %d, want 43", got)
	}
}

func TestAdjustLearnAndRecall(t *testing.T) {
	l := logging.New(logging.Error, &bytes.Buffer{}, true)
	alsCh := make(chan string, 128)
	userCh := make(chan uint64, 128)
	predCh := make(chan uint64, 128)
	alsCh <- alsBright
	userCh <- 100
	a := NewAdaptive(predCh, userCh, alsCh, nil, "eDP-1", l)

	// First adjustment seeds a pending entry from the current brightness.
	a.Adjust(40)

	// The user settles on 60.
	userCh <- 60
	a.Adjust(40)

	for i := 0; i < pendingCooldownReset; i++ {
		a.Adjust(40)
	}
	a.Adjust(40)

	want := []Entry{{Lux: alsBright, Luma: 40, Brightness: 60}}
	if diff := cmp.Diff(want, a.data.Entries); diff != "" {
		t.Fatalf("unexpected dataset (-want +got):\n%s", diff)
	}

	// Conditions recur: the learned brightness is reproduced.
	a.Adjust(40)
	select {
	case got := <-predCh:
		if got != 60 {
			t.Errorf("got prediction %d, want 60", got)
		}
	default:
		t.Error("no prediction emitted")
	}
}

func TestDebounceIgnoresUnstableBucket(t *testing.T) {
	a, _, alsCh, _ := setupAdaptive(t)
	a.lux = alsBright
	a.haveLux = true

	arrivals := []string{alsBright, alsBright, alsDim, alsDim, alsBright, alsBright, alsBright, alsBright, alsBright}
	for _, b := range arrivals {
		alsCh <- b
		a.debounceLux()
		if a.lux != alsBright {
			t.Fatalf("effective bucket changed to %q before cooldown elapsed", a.lux)
		}
	}
}

func TestDebounceAcceptsStableBucket(t *testing.T) {
	a, _, alsCh, _ := setupAdaptive(t)
	a.lux = alsBright
	a.haveLux = true

	alsCh <- alsDim
	a.debounceLux()
	for i := 0; i < nextLuxCooldownReset; i++ {
		a.debounceLux()
	}
	if a.lux != alsDim {
		t.Errorf("effective bucket = %q, want %q after stable cooldown", a.lux, alsDim)
	}
}

func TestDatasetInvariantWithoutEdits(t *testing.T) {
	l := logging.New(logging.Error, &bytes.Buffer{}, true)
	a := NewAdaptive(make(chan uint64, 128), make(chan uint64, 128), make(chan string, 128), nil, "Dell 1", l)
	a.lux = alsBright
	a.haveLux = true
	entries := []Entry{
		{Lux: alsBright, Luma: 10, Brightness: 90},
		{Lux: alsBright, Luma: 80, Brightness: 40},
	}
	a.data.Entries = append([]Entry(nil), entries...)

	for i := 0; i < 50; i++ {
		a.process(alsBright, uint8(i%100))
	}
	if diff := cmp.Diff(entries, a.data.Entries); diff != "" {
		t.Errorf("dataset changed without user edits (-want +got):\n%s", diff)
	}
}
