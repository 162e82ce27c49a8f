// Package dmesglog rewrites the monotonic timestamps in kernel log output
// into human-readable wallclock dates, for both the local machine and a
// connected Android device.
package dmesglog

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"time"
)

const stampFormat = "2006-01-02 15:04:05"

// Device dmesg lines carry a priority prefix, e.g.
// <6>[  119.532141] init: starting service 'adbd'
// Host lines have only the bracketed stamp.
var (
	deviceLine = regexp.MustCompile(`^<\d+>\[\s*(\d+\.\d+)\](.*)$`)
	hostLine   = regexp.MustCompile(`^\[\s*(\d+\.\d+)\](.*)$`)
)

// Rewriter converts monotonic stamps to wallclock using the boot time
// derived from "now" and the uptime at capture.
type Rewriter struct {
	boot   time.Time
	logger *slog.Logger

	// Matched and Unmatched count processed lines; a majority of unmatched
	// lines usually means the log format changed under us.
	Matched   int
	Unmatched int
}

// NewRewriter builds a Rewriter for a log captured at now on a machine up
// for uptime.
func NewRewriter(now time.Time, uptime time.Duration, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Rewriter{boot: now.Add(-uptime), logger: logger}
}

// Line rewrites one dmesg line. Lines that do not carry a recognizable
// stamp are returned unchanged with ok=false.
func (rw *Rewriter) Line(line string) (string, bool) {
	m := deviceLine.FindStringSubmatch(line)
	if m == nil {
		m = hostLine.FindStringSubmatch(line)
	}
	if m == nil {
		rw.Unmatched++
		return line, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		rw.Unmatched++
		return line, false
	}
	rw.Matched++
	t := rw.boot.Add(time.Duration(secs * float64(time.Second)))
	return fmt.Sprintf("[%s]%s", t.Format(stampFormat), m[2]), true
}

// Rewrite processes a full log, writing rewritten lines to w. Unmatched
// non-empty lines are logged at warn level and dropped from the output,
// matching the original post-processor.
func (rw *Rewriter) Rewrite(lines []string, w io.Writer) error {
	for _, line := range lines {
		if line == "" {
			continue
		}
		out, ok := rw.Line(line)
		if !ok {
			rw.logger.Warn("unmatched dmesg line", "line", line)
			continue
		}
		if _, err := fmt.Fprintln(w, out); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
	}
	if rw.Unmatched > rw.Matched/2 {
		rw.logger.Warn("high unmatched line count", "matched", rw.Matched, "unmatched", rw.Unmatched)
	}
	return nil
}
