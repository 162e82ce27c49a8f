package adb

import (
	"fmt"
	"io"
	"log/slog"
)

// DevTags maps short human-readable device tags ("bullhead", "angler") to
// serial numbers and back. Tags come from config, or from the legacy DEVTAGS
// environment variable value ("tag:serial tag:serial ...").
type DevTags struct {
	SerialToTag map[string]string
	TagToSerial map[string]string
}

// NewDevTags builds the two-way mapping from a tag->serial map. A serial
// appearing under two tags is an error; the reverse is tolerated with a
// warning, matching the original tooling.
func NewDevTags(tags map[string]string, logger *slog.Logger) (*DevTags, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dt := &DevTags{
		SerialToTag: make(map[string]string, len(tags)),
		TagToSerial: make(map[string]string, len(tags)),
	}
	for tag, serial := range tags {
		if prev, ok := dt.SerialToTag[serial]; ok {
			return nil, fmt.Errorf("malformed device tags: serial %s mapped by both %q and %q", serial, prev, tag)
		}
		if _, ok := dt.TagToSerial[tag]; ok {
			logger.Warn("more than one serial number for tag", "tag", tag)
		}
		dt.SerialToTag[serial] = tag
		dt.TagToSerial[tag] = serial
	}
	return dt, nil
}

// Tag returns the tag for a serial, or "???" when untagged.
func (dt *DevTags) Tag(serial string) string {
	if tag, ok := dt.SerialToTag[serial]; ok {
		return tag
	}
	return "???"
}
