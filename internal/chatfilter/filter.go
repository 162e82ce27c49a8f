// Package chatfilter strips routine channel noise from IRC logs.
//
// Development channels accumulate join/quit churn, nick changes, bot commit
// announcements, and buildbot status spam that drown out the actual
// conversation. The filter drops lines matching a fixed pattern set and
// passes everything else through unchanged.
package chatfilter

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"regexp"
)

// defaultPatterns matches the message classes that get discarded: channel
// joins, quits/parts, nick changes, commit-announcement bots, operator
// grants, and buildbot completion notices.
var defaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^.*-!-\s+\S+\s+\[[^\]]*\]\s+has joined\s+\S+\s*$`),
	regexp.MustCompile(`^.*-!-\s+\S+\s+\[[^\]]*\]\s+has quit\b.*$`),
	regexp.MustCompile(`^.*-!-\s+\S+\s+\[[^\]]*\]\s+has left\b.*$`),
	regexp.MustCompile(`^.*-!-\s+\S+\s+is now known as\s+\S+\s*$`),
	regexp.MustCompile(`^.*-!-\s+mode/\S+\s+\[\+o[^\]]*\]\s+by\s+\S+\s*$`),
	regexp.MustCompile(`^.*<\s*\S*bot\S*>\s+\[?commit\]?.*$`),
	regexp.MustCompile(`^.*<\s*\S+bb\S*>\s+build\s+#\d+\s+of\s+\S+\s+is complete\b.*$`),
	regexp.MustCompile(`^.*buildbot.*:\s*build\s+#\d+\s+of\s+\S+\s+is complete\b.*$`),
}

// Filter removes noise lines from a chat log stream.
type Filter struct {
	patterns []*regexp.Regexp
	logger   *slog.Logger
}

// New returns a Filter with the stock pattern set.
func New(logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Filter{patterns: defaultPatterns, logger: logger}
}

// Drop reports whether a line matches one of the noise patterns.
func (f *Filter) Drop(line string) bool {
	for _, re := range f.patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Apply copies r to w, discarding noise lines. Kept lines are written
// byte-for-byte; a final line without a trailing newline stays that way.
// Returns the number of dropped lines.
func (f *Filter) Apply(r io.Reader, w io.Writer) (int, error) {
	br := bufio.NewReader(r)
	dropped := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			content := line
			if n := len(content); n > 0 && content[n-1] == '\n' {
				content = content[:n-1]
			}
			if f.Drop(content) {
				dropped++
				f.logger.Debug("dropped line", "line", content)
			} else if _, werr := io.WriteString(w, line); werr != nil {
				return dropped, fmt.Errorf("write failed: %w", werr)
			}
		}
		if err == io.EOF {
			return dropped, nil
		}
		if err != nil {
			return dropped, fmt.Errorf("read failed: %w", err)
		}
	}
}
