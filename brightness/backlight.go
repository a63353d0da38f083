/*
DESCRIPTION
  backlight.go provides an Actuator backed by a sysfs backlight or LED
  device. Reads are event-driven through inotify watches on the brightness
  files; writes fall back to the privileged logind SetBrightness call when
  the files are not writable by this process.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package brightness

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/godbus/dbus/v5"

	"github.com/ausocean/utils/logging"
)

// logind session bus surface for unprivileged brightness writes.
const (
	logindDest      = "org.freedesktop.login1"
	logindPath      = "/org/freedesktop/login1/session/auto"
	logindSetMethod = "org.freedesktop.login1.Session.SetBrightness"
)

// Backlight is an Actuator for a sysfs device directory containing
// brightness and max_brightness files. The brightness file, and the
// brightness_hw_changed file when present, are watched for modification so
// that a read only touches the file after an event; our own writes are
// counted and their events suppressed so they are not mistaken for user
// edits.
type Backlight struct {
	dir       string
	subsystem string
	id        string

	file     *os.File
	writable bool
	bus      dbus.BusObject

	min uint64
	max uint64

	watcher  *fsnotify.Watcher
	current  uint64
	haveRead bool
	suppress int

	log logging.Logger
}

// NewBacklight opens the device directory at path. The subsystem is inferred
// from the parent directory name (backlight or leds). When the brightness
// file is not writable, writes are routed through logind.
func NewBacklight(path string, min uint64, l logging.Logger) (*Backlight, error) {
	b := &Backlight{
		dir:       path,
		subsystem: filepath.Base(filepath.Dir(path)),
		id:        filepath.Base(path),
		min:       min,
		log:       l,
	}

	raw, err := os.ReadFile(filepath.Join(path, "max_brightness"))
	if err != nil {
		return nil, fmt.Errorf("could not read max_brightness: %w", err)
	}
	b.max, err = strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("could not parse max_brightness: %w", err)
	}
	if b.min > b.max {
		return nil, fmt.Errorf("min_brightness %d exceeds max_brightness %d", b.min, b.max)
	}

	brightnessPath := filepath.Join(path, "brightness")
	b.file, err = os.OpenFile(brightnessPath, os.O_RDWR, 0)
	if err == nil {
		b.writable = true
	} else if os.IsPermission(err) {
		b.file, err = os.Open(brightnessPath)
		if err != nil {
			return nil, fmt.Errorf("could not open brightness: %w", err)
		}
		conn, err := dbus.SystemBus()
		if err != nil {
			b.file.Close()
			return nil, fmt.Errorf("brightness not writable and no system bus: %w", err)
		}
		b.bus = conn.Object(logindDest, logindPath)
		l.Info(pkg+"brightness file not writable, using logind", "device", path)
	} else {
		return nil, fmt.Errorf("could not open brightness: %w", err)
	}

	b.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		b.file.Close()
		return nil, fmt.Errorf("could not create watcher: %w", err)
	}
	if err := b.watcher.Add(brightnessPath); err != nil {
		b.file.Close()
		b.watcher.Close()
		return nil, fmt.Errorf("could not watch brightness: %w", err)
	}
	hw := filepath.Join(path, "brightness_hw_changed")
	if _, err := os.Stat(hw); err == nil {
		if err := b.watcher.Add(hw); err != nil {
			l.Warning(pkg+"could not watch brightness_hw_changed", "device", path, "error", err.Error())
		}
	}

	return b, nil
}

// Name returns the name of the actuator kind.
func (b *Backlight) Name() string { return "backlight" }

// Max returns the maximum brightness the device accepts.
func (b *Backlight) Max() uint64 { return b.max }

// Get returns the current brightness. The file is only re-read after an
// unsuppressed watch event; otherwise the cached value stands.
func (b *Backlight) Get() (uint64, error) {
	changed := !b.haveRead
	for {
		var ev fsnotify.Event
		select {
		case ev = <-b.watcher.Events:
		case err := <-b.watcher.Errors:
			b.log.Warning(pkg+"watch error", "device", b.dir, "error", err.Error())
			continue
		default:
			if !changed {
				return b.current, nil
			}
			v, err := b.read()
			if err != nil {
				return 0, err
			}
			b.current = v
			b.haveRead = true
			return v, nil
		}

		if b.suppress > 0 {
			b.suppress--
			continue
		}
		if ev.Op&(fsnotify.Write|fsnotify.Chmod) != 0 {
			changed = true
		}
	}
}

// Set writes the given brightness clamped to [min, max] and returns the
// clamped value. The resulting watch event is suppressed so the next Get
// does not report it as a user edit.
func (b *Backlight) Set(v uint64) (uint64, error) {
	v = clamp(v, b.min, b.max)

	if b.writable {
		if _, err := b.file.WriteAt([]byte(strconv.FormatUint(v, 10)), 0); err != nil {
			return 0, fmt.Errorf("could not write brightness: %w", err)
		}
	} else {
		call := b.bus.Call(logindSetMethod, 0, b.subsystem, b.id, uint32(v))
		if call.Err != nil {
			return 0, fmt.Errorf("logind SetBrightness failed: %w", call.Err)
		}
	}

	b.suppress++
	b.current = v
	b.haveRead = true
	return v, nil
}

// Close releases the device files and the watcher.
func (b *Backlight) Close() error {
	b.watcher.Close()
	return b.file.Close()
}

func (b *Backlight) read() (uint64, error) {
	buf := make([]byte, 32)
	n, err := b.file.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return 0, fmt.Errorf("could not read brightness: %w", err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(buf[:n])), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse brightness: %w", err)
	}
	return v, nil
}
