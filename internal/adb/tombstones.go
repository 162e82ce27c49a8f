package adb

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// tombstoneLine matches `ls -l /data/tombstones` rows, e.g.
// -rw------- system system 56656 2015-05-25 03:01 tombstone_09
var tombstoneLine = regexp.MustCompile(`^\S+\s+\S+\s+\S+\s+\d+\s+(\S+)\s+(\S+)\s+(tomb\S+)\s*$`)

// Tombstone identifies one crash dump on the device.
type Tombstone struct {
	Name string
	Date string
	Time string
}

// LocalName is the filename a pulled tombstone is stored under; the date and
// time suffix keeps successive dumps with recycled names distinct.
func (t Tombstone) LocalName() string {
	return fmt.Sprintf("%s_%s_%s", t.Name, t.Date, t.Time)
}

// ListTombstones enumerates crash dumps under /data/tombstones. Requires a
// rooted adbd (see Root).
func (c *Client) ListTombstones(ctx context.Context) ([]Tombstone, error) {
	lines, err := c.Shell(ctx, "ls", "-l", "/data/tombstones")
	if err != nil {
		return nil, err
	}
	var stones []Tombstone
	for _, line := range lines {
		m := tombstoneLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		stones = append(stones, Tombstone{Name: m[3], Date: m[1], Time: m[2]})
	}
	return stones, nil
}

// PullResult describes the outcome of pulling one tombstone.
type PullResult struct {
	Tombstone Tombstone
	Path      string
	Skipped   bool // already present with identical content
}

// PullTombstones copies new tombstones into destDir. Files already pulled
// with identical content are skipped; changed files are overwritten.
func (c *Client) PullTombstones(ctx context.Context, destDir string) ([]PullResult, error) {
	if err := c.Root(ctx); err != nil {
		return nil, fmt.Errorf("adb root failed: %w", err)
	}
	stones, err := c.ListTombstones(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create %s: %w", destDir, err)
	}
	var results []PullResult
	for _, ts := range stones {
		dest := filepath.Join(destDir, ts.LocalName())
		tmp := dest + "_tmp"
		remote := "/data/tombstones/" + ts.Name
		if err := c.Pull(ctx, remote, tmp); err != nil {
			return results, fmt.Errorf("pull of %s failed: %w", remote, err)
		}
		res := PullResult{Tombstone: ts, Path: dest}
		if prev, rerr := os.ReadFile(dest); rerr == nil {
			cur, terr := os.ReadFile(tmp)
			if terr != nil {
				return results, fmt.Errorf("unable to read pulled file %s: %w", tmp, terr)
			}
			if bytes.Equal(prev, cur) {
				res.Skipped = true
				if err := os.Remove(tmp); err != nil {
					return results, fmt.Errorf("unable to remove %s: %w", tmp, err)
				}
				results = append(results, res)
				continue
			}
		}
		if err := os.Rename(tmp, dest); err != nil {
			return results, fmt.Errorf("unable to install %s: %w", dest, err)
		}
		results = append(results, res)
	}
	return results, nil
}
