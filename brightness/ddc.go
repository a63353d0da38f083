/*
DESCRIPTION
  ddc.go provides an Actuator for external monitors speaking DDC/CI over
  I²C, using VCP feature 0x10 for brightness.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Alan Noble <alan@ausocean.org>

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
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"

	"github.com/ausocean/utils/logging"
)

// The DDC/CI bus is a single critical section across every output; monitors
// misbehave when two VCP exchanges interleave, even on different buses
// behind the same GPU.
var ddcMu sync.Mutex

// DDC/CI addressing and framing.
const (
	ddcAddr  = 0x37 // Display's DDC/CI slave address.
	edidAddr = 0x50 // EDID EEPROM address.

	ddcHostAddr    = 0x51 // Host source address in DDC/CI frames.
	ddcDisplayAddr = 0x6e // Display destination (write) address for checksums.

	vcpBrightness = 0x10

	// Delay between a VCP request and reading its reply.
	vcpReplyDelay = 40 * time.Millisecond
)

var errNoDisplay = errors.New("no matching DDC display")

// periphOnce guards one-time host initialisation.
var periphOnce sync.Once

// DDC is an Actuator for a monitor controlled via DDC/CI. The display is
// found by substring match against "model serial manufacturer" from its
// EDID.
type DDC struct {
	bus i2c.BusCloser
	dev i2c.Dev

	min uint64
	max uint64

	name string
	log  logging.Logger
}

// NewDDC scans the I²C buses for a display whose EDID identity contains
// match and probes its brightness feature for the maximum level.
func NewDDC(match string, min uint64, l logging.Logger) (*DDC, error) {
	var initErr error
	periphOnce.Do(func() { _, initErr = host.Init() })
	if initErr != nil {
		return nil, errors.Wrap(initErr, "could not initialise host")
	}

	ddcMu.Lock()
	defer ddcMu.Unlock()

	for _, ref := range i2creg.All() {
		bus, err := ref.Open()
		if err != nil {
			continue
		}

		id, err := displayIdentity(bus)
		if err != nil || !strings.Contains(strings.ToLower(id), strings.ToLower(match)) {
			bus.Close()
			continue
		}

		d := &DDC{
			bus:  bus,
			dev:  i2c.Dev{Bus: bus, Addr: ddcAddr},
			min:  min,
			name: id,
			log:  l,
		}
		_, max, err := d.getVCP(vcpBrightness)
		if err != nil {
			l.Warning(pkg+"display matched but VCP probe failed", "display", id, "error", err.Error())
			bus.Close()
			continue
		}
		d.max = max
		if d.min > d.max {
			bus.Close()
			return nil, fmt.Errorf("min_brightness %d exceeds display maximum %d", min, max)
		}
		l.Info(pkg+"found DDC display", "display", id, "bus", ref.Name, "max", max)
		return d, nil
	}

	return nil, errNoDisplay
}

// Name returns the name of the actuator kind.
func (d *DDC) Name() string { return "ddcutil" }

// Max returns the maximum brightness reported by the display.
func (d *DDC) Max() uint64 { return d.max }

// Get returns the current brightness.
func (d *DDC) Get() (uint64, error) {
	ddcMu.Lock()
	defer ddcMu.Unlock()
	v, _, err := d.getVCP(vcpBrightness)
	return v, err
}

// Set writes the given brightness clamped to [min, max] and returns the
// clamped value.
func (d *DDC) Set(v uint64) (uint64, error) {
	v = clamp(v, d.min, d.max)
	ddcMu.Lock()
	defer ddcMu.Unlock()
	if err := d.setVCP(vcpBrightness, uint16(v)); err != nil {
		return 0, err
	}
	return v, nil
}

// Close releases the bus.
func (d *DDC) Close() error { return d.bus.Close() }

// getVCP reads a VCP feature, returning its present and maximum values.
func (d *DDC) getVCP(code byte) (value, max uint64, err error) {
	req := vcpGetRequest(code)
	if err := d.dev.Tx(req, nil); err != nil {
		return 0, 0, errors.Wrap(err, "could not send VCP request")
	}
	time.Sleep(vcpReplyDelay)

	reply := make([]byte, 11)
	if err := d.dev.Tx(nil, reply); err != nil {
		return 0, 0, errors.Wrap(err, "could not read VCP reply")
	}
	return parseVCPReply(reply, code)
}

// setVCP writes a VCP feature value.
func (d *DDC) setVCP(code byte, value uint16) error {
	req := vcpSetRequest(code, value)
	if err := d.dev.Tx(req, nil); err != nil {
		return errors.Wrap(err, "could not send VCP write")
	}
	time.Sleep(vcpReplyDelay)
	return nil
}

// vcpGetRequest frames a Get VCP Feature request.
func vcpGetRequest(code byte) []byte {
	req := []byte{ddcHostAddr, 0x82, 0x01, code, 0}
	req[4] = ddcChecksum(ddcDisplayAddr, req[:4])
	return req
}

// vcpSetRequest frames a Set VCP Feature request.
func vcpSetRequest(code byte, value uint16) []byte {
	req := []byte{ddcHostAddr, 0x84, 0x03, code, byte(value >> 8), byte(value), 0}
	req[6] = ddcChecksum(ddcDisplayAddr, req[:6])
	return req
}

// parseVCPReply validates a Get VCP Feature reply and extracts the maximum
// and present values.
func parseVCPReply(reply []byte, code byte) (value, max uint64, err error) {
	if len(reply) < 10 {
		return 0, 0, fmt.Errorf("short VCP reply: %d bytes", len(reply))
	}
	if reply[1]&0x80 == 0 || reply[2] != 0x02 {
		return 0, 0, fmt.Errorf("malformed VCP reply")
	}
	if reply[3] != 0 {
		return 0, 0, fmt.Errorf("VCP reply reports error code %d", reply[3])
	}
	if reply[4] != code {
		return 0, 0, fmt.Errorf("VCP reply for feature %#x, want %#x", reply[4], code)
	}
	max = uint64(reply[6])<<8 | uint64(reply[7])
	value = uint64(reply[8])<<8 | uint64(reply[9])
	return value, max, nil
}

// ddcChecksum is the XOR of the destination address and the frame bytes.
func ddcChecksum(dest byte, frame []byte) byte {
	chk := dest
	for _, b := range frame {
		chk ^= b
	}
	return chk
}

// displayIdentity reads the display's EDID and returns its
// "model serial manufacturer" identity string.
func displayIdentity(bus i2c.Bus) (string, error) {
	edid := make([]byte, 128)
	dev := i2c.Dev{Bus: bus, Addr: edidAddr}
	if err := dev.Tx([]byte{0x00}, edid); err != nil {
		return "", errors.Wrap(err, "could not read EDID")
	}
	return parseEDIDIdentity(edid)
}

// parseEDIDIdentity extracts the model name, serial and manufacturer from a
// 128-byte EDID block.
func parseEDIDIdentity(edid []byte) (string, error) {
	if len(edid) < 128 {
		return "", fmt.Errorf("short EDID: %d bytes", len(edid))
	}
	header := []byte{0x00, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00}
	for i, b := range header {
		if edid[i] != b {
			return "", fmt.Errorf("bad EDID header")
		}
	}

	// Manufacturer is three 5-bit letters packed into bytes 8-9.
	m := uint16(edid[8])<<8 | uint16(edid[9])
	manufacturer := string([]byte{
		'A' + byte(m>>10&0x1f) - 1,
		'A' + byte(m>>5&0x1f) - 1,
		'A' + byte(m&0x1f) - 1,
	})

	serial := fmt.Sprintf("%d", uint32(edid[12])|uint32(edid[13])<<8|uint32(edid[14])<<16|uint32(edid[15])<<24)
	model := ""

	// Descriptor blocks: model name (0xFC) and serial string (0xFF)
	// override the numeric fields.
	for off := 54; off <= 108; off += 18 {
		if edid[off] != 0 || edid[off+1] != 0 || edid[off+2] != 0 {
			continue
		}
		text := strings.TrimSpace(strings.TrimRight(string(edid[off+5:off+18]), "\n \x00"))
		switch edid[off+3] {
		case 0xfc:
			model = text
		case 0xff:
			serial = text
		}
	}

	return strings.TrimSpace(fmt.Sprintf("%s %s %s", model, serial, manufacturer)), nil
}
