package config

import "fmt"

// validOutputs are the accepted renderer modes.
var validOutputs = map[string]bool{
	"":         true,
	"auto":     true,
	"text":     true,
	"markdown": true,
	"json":     true,
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !validOutputs[c.OutputFormat] {
		return fmt.Errorf("invalid output format %q (want auto|text|markdown|json)", c.OutputFormat)
	}
	// A serial may not be claimed by two tags.
	seen := make(map[string]string, len(c.DevTags))
	for tag, serial := range c.DevTags {
		if other, ok := seen[serial]; ok {
			return fmt.Errorf("serial %s tagged twice (%s and %s)", serial, other, tag)
		}
		seen[serial] = tag
	}
	return nil
}
