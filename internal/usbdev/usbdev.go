// Package usbdev locates USB devices by serial number and resets them at the
// bus level. Useful when a development board wedges hard enough that adb
// cannot reach it but the USB stack still can.
package usbdev

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/devkit-labs/devkit/internal/run"
)

// usbdevfsReset is _IO('U', 20) from linux/usbdevice_fs.h.
const usbdevfsReset = 0x5514

// Device is one entry from `usb-devices` output.
type Device struct {
	Bus    int
	Dev    int
	Serial string
}

// Path returns the devfs node for the device.
func (d Device) Path() string {
	return fmt.Sprintf("/dev/bus/usb/%03d/%03d", d.Bus, d.Dev)
}

// Resetter enumerates and resets USB devices.
type Resetter struct {
	runner run.Runner
	logger *slog.Logger
}

// New returns a Resetter using the given runner.
func New(runner run.Runner, logger *slog.Logger) *Resetter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resetter{runner: runner, logger: logger}
}

var (
	topologyLine = regexp.MustCompile(`^T:\s+Bus=(\d+).*Dev#=\s*(\d+)`)
	serialLine   = regexp.MustCompile(`^S:\s+SerialNumber=(\S+)`)
)

// Devices parses `usb-devices` output into the entries that carry a serial
// number. Devices without one (hubs, mostly) are skipped.
func (r *Resetter) Devices(ctx context.Context) ([]Device, error) {
	lines, err := r.runner.Lines(ctx, "usb-devices")
	if err != nil {
		return nil, err
	}
	return ParseDevices(lines)
}

// ParseDevices extracts devices from usb-devices output lines. A T: line
// opens a device record; a following S: SerialNumber line completes it.
func ParseDevices(lines []string) ([]Device, error) {
	var devices []Device
	var cur *Device
	for _, line := range lines {
		if m := topologyLine.FindStringSubmatch(line); m != nil {
			bus, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("bad bus number in %q: %w", line, err)
			}
			dev, err := strconv.Atoi(m[2])
			if err != nil {
				return nil, fmt.Errorf("bad device number in %q: %w", line, err)
			}
			cur = &Device{Bus: bus, Dev: dev}
			continue
		}
		if m := serialLine.FindStringSubmatch(line); m != nil && cur != nil {
			cur.Serial = m[1]
			devices = append(devices, *cur)
			cur = nil
		}
	}
	return devices, nil
}

// FindBySerial returns the device with the given serial number.
func (r *Resetter) FindBySerial(ctx context.Context, serial string) (Device, error) {
	devices, err := r.Devices(ctx)
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.Serial == serial {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("no USB device with serial %s found", serial)
}

// Reset issues USBDEVFS_RESET against the device node. Needs write access to
// the node, which usually means root or a udev rule.
func (r *Resetter) Reset(ctx context.Context, serial string) (Device, error) {
	d, err := r.FindBySerial(ctx, serial)
	if err != nil {
		return Device{}, err
	}
	r.logger.Info("resetting USB device", "serial", serial, "path", d.Path())
	f, err := os.OpenFile(d.Path(), os.O_WRONLY, 0)
	if err != nil {
		return d, fmt.Errorf("unable to open %s: %w", d.Path(), err)
	}
	defer f.Close()
	if _, err := unix.IoctlRetInt(int(f.Fd()), usbdevfsReset); err != nil {
		return d, fmt.Errorf("USBDEVFS_RESET on %s failed: %w", d.Path(), err)
	}
	return d, nil
}
