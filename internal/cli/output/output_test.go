package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{"auto with tty", ModeAuto, true, ModeText},
		{"auto without tty", ModeAuto, false, ModeMarkdown},
		{"explicit json", ModeJSON, true, ModeJSON},
		{"explicit text without tty", ModeText, false, ModeText},
		{"empty defaults to auto", "", false, ModeMarkdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestHeaderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithTTY(&buf, &bytes.Buffer{}, ModeMarkdown, false)
	r.Header(2, "Devices")
	assert.Equal(t, "## Devices\n", buf.String())
}

func TestStatusLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithTTY(&buf, &bytes.Buffer{}, ModeText, false)
	r.StatusLine("devkit.yaml", "success", "")
	r.StatusLine("broken", "failed", "exit 1")
	out := buf.String()
	assert.Contains(t, out, "+ devkit.yaml")
	assert.Contains(t, out, "x broken")
	assert.Contains(t, out, "exit 1")
}

func TestWarningGoesToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, ModeText, false)
	r.Warning("something odd")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Warning: something odd")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithTTY(&buf, &bytes.Buffer{}, ModeJSON, false)
	require.NoError(t, r.JSON(map[string]int{"devices": 2}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got["devices"])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Summary", FormatHeader(2, "Summary"))
	assert.Equal(t, "- **serial**: abc", FormatKeyValue("serial", "abc"))
	assert.Equal(t, "```sh\nadb devices\n```", FormatCodeBlock("sh", "adb devices\n"))
}
