package commands

import (
	"sort"

	"github.com/devkit-labs/devkit/internal/adb"
	"github.com/devkit-labs/devkit/internal/cli/output"
	"github.com/devkit-labs/devkit/internal/run"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// DevicesOptions holds options for the devices command.
type DevicesOptions struct {
	All bool
}

// NewDevicesCommand creates the devices command.
func NewDevicesCommand() *cobra.Command {
	opts := &DevicesOptions{}
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List connected Android devices with their tags",
		Long: `List devices known to adb, annotated with the human-readable tags
from the devtags configuration (or the legacy DEVTAGS environment variable).
The device selected by ANDROID_SERIAL is marked with ">>".`,
		Example: `  # Connected devices
  devkit devices

  # Include configured devices that are not connected
  devkit devices --all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDevices(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Include configured but unconnected devices")

	return cmd
}

// DeviceRow is the JSON output row for the devices command.
type DeviceRow struct {
	Selected    bool   `json:"selected"`
	Tag         string `json:"tag"`
	Serial      string `json:"serial"`
	Disposition string `json:"disposition"`
}

func runDevices(cmd *cobra.Command, opts *DevicesOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if err := run.Require("adb"); err != nil {
		return err
	}

	tags, err := adb.NewDevTags(cmdCtx.Cfg.DevTags, cmdCtx.Logger)
	if err != nil {
		return err
	}

	client := adb.NewClient(cmdCtx.Runner, cmdCtx.Logger)
	devices, err := client.Devices(cmd.Context())
	if err != nil {
		return err
	}

	rows := make([]DeviceRow, 0, len(devices))
	connected := make(map[string]bool, len(devices))
	for _, d := range devices {
		connected[d.Serial] = true
		rows = append(rows, DeviceRow{
			Selected:    d.Serial == cmdCtx.Cfg.AndroidSerial,
			Tag:         tags.Tag(d.Serial),
			Serial:      d.Serial,
			Disposition: d.Disposition,
		})
	}
	if opts.All {
		for tag, serial := range tags.TagToSerial {
			if connected[serial] {
				continue
			}
			rows = append(rows, DeviceRow{
				Selected:    serial == cmdCtx.Cfg.AndroidSerial,
				Tag:         tag,
				Serial:      serial,
				Disposition: "absent",
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Serial < rows[j].Serial })

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(rows)
	}
	return renderDeviceTable(r, rows)
}

func renderDeviceTable(r *output.Renderer, rows []DeviceRow) error {
	if len(rows) == 0 {
		r.Println("(no devices)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "Tag", "Serial", "State"})
	for _, row := range rows {
		marker := ""
		if row.Selected {
			marker = ">>"
		}
		t.AppendRow(table.Row{marker, row.Tag, row.Serial, row.Disposition})
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}
