package commands

import (
	"fmt"

	"github.com/devkit-labs/devkit/internal/run"
	"github.com/devkit-labs/devkit/internal/usbdev"
	"github.com/spf13/cobra"
)

// NewUSBResetCommand creates the usb-reset command.
func NewUSBResetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usb-reset [serial]",
		Short: "Reset a USB device by serial number",
		Long: `Issue a bus-level USB reset against the device with the given serial
number. With no argument the configured android_serial is used. This usually
needs root, since it opens the raw /dev/bus/usb node.`,
		Example: `  # Reset the configured device
  sudo devkit usb-reset

  # Reset a specific serial
  sudo devkit usb-reset 1A051FDD4003EC`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			if err := run.Require("usb-devices"); err != nil {
				return err
			}

			serial := cmdCtx.Cfg.AndroidSerial
			if len(args) > 0 {
				serial = args[0]
			}
			if serial == "" {
				return fmt.Errorf("no serial given and no android_serial configured")
			}

			d, err := usbdev.New(cmdCtx.Runner, cmdCtx.Logger).Reset(cmd.Context(), serial)
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success(fmt.Sprintf("reset %s (%s)", serial, d.Path()))
			return nil
		},
	}
	return cmd
}
