// Package textfilt implements the small line-oriented filters in the suite:
// line picking, whitespace trimming, line numbering, and the sort helpers
// used to post-process du/ls output.
package textfilt

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// ReadLines slurps r into a slice of lines without trailing newlines.
func ReadLines(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	s := strings.TrimRight(string(data), "\n")
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, "\n"), nil
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
	}
	return nil
}

// Pick emits lines lo through hi of r (1-based, inclusive), trimmed of
// surrounding whitespace.
func Pick(r io.Reader, w io.Writer, lo, hi int) error {
	if lo > hi {
		return fmt.Errorf("LO %d greater than HI %d", lo, hi)
	}
	if lo < 1 {
		return fmt.Errorf("LO %d must be >= 1", lo)
	}
	lines, err := ReadLines(r)
	if err != nil {
		return err
	}
	if lo > len(lines) {
		return fmt.Errorf("LO value %d greater than line count %d", lo, len(lines))
	}
	if hi > len(lines) {
		return fmt.Errorf("HI value %d greater than line count %d", hi, len(lines))
	}
	picked := make([]string, 0, hi-lo+1)
	for _, line := range lines[lo-1 : hi] {
		picked = append(picked, strings.TrimSpace(line))
	}
	return writeLines(w, picked)
}

// Trim emits each input line stripped of leading and trailing whitespace.
func Trim(r io.Reader, w io.Writer) error {
	lines, err := ReadLines(r)
	if err != nil {
		return err
	}
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return writeLines(w, lines)
}

// Number emits each input line prefixed with its 1-based line number,
// zero-padded to the width of the final line number.
func Number(r io.Reader, w io.Writer) error {
	lines, err := ReadLines(r)
	if err != nil {
		return err
	}
	width := len(fmt.Sprintf("%d", len(lines)))
	for i, line := range lines {
		if _, err := fmt.Fprintf(w, "%0*d: %s\n", width, i+1, line); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
	}
	return nil
}

// SortBySize sorts lines whose first field is a human-readable size ("5M",
// "1.2G", "340K") in ascending byte order, re-emitting the size left-aligned
// followed by the rest of the line. Lines whose first field cannot be parsed
// are dropped with a warning, matching how malformed du output was handled.
func SortBySize(r io.Reader, w io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	lines, err := ReadLines(r)
	if err != nil {
		return err
	}
	type entry struct {
		bytes uint64
		size  string
		rest  string
	}
	var entries []entry
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			logger.Warn("malformed size line", "line", line)
			continue
		}
		n, perr := humanize.ParseBytes(fields[0])
		if perr != nil {
			logger.Warn("unparseable size", "field", fields[0])
			continue
		}
		entries = append(entries, entry{bytes: n, size: fields[0], rest: strings.Join(fields[1:], " ")})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].bytes < entries[j].bytes })
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%-10s %s\n", e.size, e.rest); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
	}
	return nil
}

// SortByLen emits input lines ordered by line length, longest first by
// default, shortest first when increasing is set. Lines of equal length keep
// their input order.
func SortByLen(r io.Reader, w io.Writer, increasing bool) error {
	lines, err := ReadLines(r)
	if err != nil {
		return err
	}
	sorted := append([]string(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if increasing {
			return len(sorted[i]) < len(sorted[j])
		}
		return len(sorted[i]) > len(sorted[j])
	})
	return writeLines(w, sorted)
}

var (
	embeddedSpace = regexp.MustCompile(`\S\s+\S`)
	quoteChars    = regexp.MustCompile(`['"]`)
)

// Plain emits only lines free of embedded whitespace and quote characters.
// Used to screen file lists destined for ctags/gtags, which mishandle both.
func Plain(r io.Reader, w io.Writer) error {
	lines, err := ReadLines(r)
	if err != nil {
		return err
	}
	var kept []string
	for _, line := range lines {
		if embeddedSpace.MatchString(line) || quoteChars.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return writeLines(w, kept)
}
