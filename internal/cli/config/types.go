// Package config provides configuration management for the devkit CLI.
//
// Configuration merges four layers with the usual precedence
// (flags > environment > config file > defaults). The legacy DEVTAGS and
// ANDROID_SERIAL environment variables from the shell-script era are still
// honored when the newer keys are absent.
package config

import (
	"fmt"
	"strings"
)

// Config holds all CLI configuration options.
type Config struct {
	// OutputDir receives generated files (diff dumps, tombstones, snapshots).
	OutputDir string `koanf:"output_dir"`

	// BaseBranch is the integration branch git helpers measure against.
	BaseBranch string `koanf:"base_branch"`

	// StackScript is the default per-commit test script for `stack test`.
	StackScript string `koanf:"stack_script"`

	// AndroidSerial selects the device when several are connected.
	AndroidSerial string `koanf:"android_serial"`

	// DevTags maps human-readable device tags to adb serial numbers.
	DevTags map[string]string `koanf:"devtags"`

	// SourceRoots are the trees `devkit index` walks.
	SourceRoots []string `koanf:"source_roots"`

	// IndexSuffixes filters indexed files by extension.
	IndexSuffixes []string `koanf:"index_suffixes"`

	// Echo prints each external command before running it.
	Echo bool `koanf:"echo"`

	// DryRun prints external commands without running them.
	DryRun bool `koanf:"dry_run"`

	// Debug is the -d repeat count (0 warn, 1 info, 2+ debug).
	Debug int `koanf:"debug"`

	// OutputFormat is the renderer mode (auto|text|markdown|json).
	OutputFormat string `koanf:"output"`
}

// Default configuration values.
const (
	DefaultOutputDir   = "/tmp/devkit"
	DefaultBaseBranch  = "master"
	DefaultStackScript = "all.bash"
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// ParseDevTags parses the legacy DEVTAGS string form, "tag:serial" pairs
// separated by whitespace, into a tag->serial map. A malformed pair is an
// error: a typo'd entry that silently vanishes leaves the device untagged
// with no hint why.
func ParseDevTags(s string) (map[string]string, error) {
	tags := make(map[string]string)
	for _, pair := range strings.Fields(s) {
		tag, serial, ok := strings.Cut(pair, ":")
		if !ok || tag == "" || serial == "" {
			return nil, fmt.Errorf("malformed device tag entry %q (want tag:serial)", pair)
		}
		tags[tag] = serial
	}
	return tags, nil
}
