/*
DESCRIPTION
  cmd.go provides an ambient light Sensor that reads the light level from the
  output of a shell command.

AUTHORS
  Scott Barnard <scott@ausocean.org>

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
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
)

// CmdCapture periodically runs a shell command and publishes its stdout,
// parsed as an unsigned integer, as a raw lux reading.
type CmdCapture struct {
	out     chan<- uint64
	command string
	log     logging.Logger
}

// NewCmdCapture returns a capture task running command via the shell.
func NewCmdCapture(out chan<- uint64, command string, l logging.Logger) *CmdCapture {
	return &CmdCapture{out: out, command: command, log: l}
}

// Run executes the command forever at the default capture cadence.
func (c *CmdCapture) Run() {
	for {
		lux, err := c.output()
		if err != nil {
			c.log.Warning(pkg+"ambient light command failed", "command", c.command, "error", err.Error())
		} else {
			select {
			case c.out <- lux:
			default:
			}
		}
		time.Sleep(defaultCaptureSleep)
	}
}

func (c *CmdCapture) output() (uint64, error) {
	out, err := exec.Command("sh", "-c", c.command).Output()
	if err != nil {
		return 0, fmt.Errorf("could not run command: %w", err)
	}
	lux, err := strconv.ParseUint(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse command output: %w", err)
	}
	return lux, nil
}

// Cmd buckets the most recent reading published by a CmdCapture task. Until
// the first reading arrives a fixed default raw value is used.
type Cmd struct {
	in         <-chan uint64
	lux        uint64
	thresholds thresholds
}

// NewCmd returns a command sensor reading from in.
func NewCmd(in <-chan uint64, t map[uint64]string) *Cmd {
	return &Cmd{in: in, lux: defaultRawLux, thresholds: newThresholds(t)}
}

// Name returns the name of the sensor kind.
func (s *Cmd) Name() string { return "cmd" }

// Bucket drains the capture channel, keeps the newest reading and buckets it.
func (s *Cmd) Bucket() (string, error) {
	for {
		select {
		case v := <-s.in:
			s.lux = v
		default:
			return s.thresholds.bucket(s.lux), nil
		}
	}
}
