// Package adb wraps the Android debug bridge for the device-oriented
// commands: device listing, dmesg capture, and tombstone collection.
package adb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devkit-labs/devkit/internal/run"
)

// Disposition values adb reports for connected devices.
const (
	DispositionDevice       = "device"
	DispositionUnauthorized = "unauthorized"
)

var validDispositions = map[string]bool{
	DispositionDevice:       true,
	DispositionUnauthorized: true,
}

// Device is one row of `adb devices` output.
type Device struct {
	Serial      string
	Disposition string
}

// Client issues adb commands through a run.Runner.
type Client struct {
	runner run.Runner
	logger *slog.Logger
}

// NewClient returns an adb client using the given runner.
func NewClient(runner run.Runner, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{runner: runner, logger: logger}
}

var (
	daemonBanner = regexp.MustCompile(`^\* daemon (not running|started).*$`)
	deviceLine   = regexp.MustCompile(`^\s*(\S+)\s+(\S+)\s*$`)
)

// Devices lists connected devices. Daemon startup banners are skipped;
// unknown dispositions are kept but flagged with a warning.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	lines, err := c.runner.Lines(ctx, "adb", "devices")
	if err != nil {
		return nil, err
	}
	var devices []Device
	for i, line := range lines {
		if i == 0 && strings.HasPrefix(line, "List of devices") {
			continue
		}
		if line == "" || daemonBanner.MatchString(line) {
			continue
		}
		m := deviceLine.FindStringSubmatch(line)
		if m == nil {
			c.logger.Warn("unable to match adb output line", "line", line)
			continue
		}
		d := Device{Serial: m[1], Disposition: m[2]}
		if !validDispositions[d.Disposition] {
			c.logger.Warn("unknown device disposition", "disposition", d.Disposition, "line", line)
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// Now returns the device wallclock time.
func (c *Client) Now(ctx context.Context) (time.Time, error) {
	lines, err := c.runner.Lines(ctx, "adb", "shell", "date", "+%Y:%m:%d:%H:%M:%S")
	if err != nil {
		return time.Time{}, err
	}
	if len(lines) == 0 {
		return time.Time{}, fmt.Errorf("empty output from adb shell date")
	}
	fields := strings.Split(strings.TrimSpace(lines[0]), ":")
	if len(fields) != 6 {
		return time.Time{}, fmt.Errorf("unable to parse device date output %q", lines[0])
	}
	nums := make([]int, 6)
	for i, f := range fields {
		n, cerr := strconv.Atoi(f)
		if cerr != nil {
			return time.Time{}, fmt.Errorf("unable to parse device date output %q", lines[0])
		}
		nums[i] = n
	}
	return time.Date(nums[0], time.Month(nums[1]), nums[2], nums[3], nums[4], nums[5], 0, time.Local), nil
}

// Uptime returns the device uptime from /proc/uptime.
func (c *Client) Uptime(ctx context.Context) (time.Duration, error) {
	lines, err := c.runner.Lines(ctx, "adb", "shell", "cat", "/proc/uptime")
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("empty output from adb shell cat /proc/uptime")
	}
	fields := strings.Fields(lines[0])
	if len(fields) == 0 {
		return 0, fmt.Errorf("unable to parse /proc/uptime output %q", lines[0])
	}
	return ParseUptime(fields[0])
}

// ParseUptime converts a "seconds.fraction" uptime field to a Duration.
func ParseUptime(field string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse uptime value %q", field)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Dmesg returns the device kernel log. Device output can arrive in odd
// encodings; anything non-ASCII is dropped rather than mangled.
func (c *Client) Dmesg(ctx context.Context) ([]string, error) {
	out, err := c.runner.Output(ctx, "adb", "shell", "dmesg")
	if err != nil {
		return nil, err
	}
	ascii := make([]byte, 0, len(out))
	for _, b := range out {
		if b < 0x80 {
			ascii = append(ascii, b)
		}
	}
	return run.SplitLines(ascii), nil
}

// Root restarts adbd with root privileges (needed for /data/tombstones).
func (c *Client) Root(ctx context.Context) error {
	return c.runner.Quiet(ctx, "adb", "root")
}

// Shell runs a command on the device and returns its output lines.
func (c *Client) Shell(ctx context.Context, args ...string) ([]string, error) {
	return c.runner.Lines(ctx, "adb", append([]string{"shell"}, args...)...)
}

// Pull copies a file from the device to a local path.
func (c *Client) Pull(ctx context.Context, remote, local string) error {
	return c.runner.Quiet(ctx, "adb", "pull", remote, local)
}
