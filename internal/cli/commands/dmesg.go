package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/devkit-labs/devkit/internal/adb"
	"github.com/devkit-labs/devkit/internal/dmesglog"
	"github.com/devkit-labs/devkit/internal/run"
	"github.com/spf13/cobra"
)

// DmesgOptions holds options for the dmesg command.
type DmesgOptions struct {
	ADB bool
}

// NewDmesgCommand creates the dmesg command.
func NewDmesgCommand() *cobra.Command {
	opts := &DmesgOptions{}
	cmd := &cobra.Command{
		Use:   "dmesg",
		Short: "Print the kernel log with wallclock timestamps",
		Long: `Print the kernel log, rewriting the monotonic [seconds.micros]
timestamps into wallclock time computed from the current time and uptime.
With --adb the log, clock, and uptime are read from the connected Android
device instead of the local host.`,
		Example: `  # Local kernel log
  devkit dmesg

  # Device kernel log (runs adb root first)
  devkit dmesg --adb`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDmesg(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.ADB, "adb", false, "Read the log from the Android device")

	return cmd
}

func runDmesg(cmd *cobra.Command, opts *DmesgOptions) error {
	cmdCtx := NewCommandContext(cmd)
	ctx := cmd.Context()

	var (
		now    time.Time
		uptime time.Duration
		lines  []string
	)
	if opts.ADB {
		if err := run.Require("adb"); err != nil {
			return err
		}
		client := adb.NewClient(cmdCtx.Runner, cmdCtx.Logger)
		if err := client.Root(ctx); err != nil {
			return err
		}
		var err error
		if now, err = client.Now(ctx); err != nil {
			return err
		}
		if uptime, err = client.Uptime(ctx); err != nil {
			return err
		}
		if lines, err = client.Dmesg(ctx); err != nil {
			return err
		}
	} else {
		now = time.Now()
		var err error
		if uptime, err = hostUptime(); err != nil {
			return err
		}
		if lines, err = cmdCtx.Runner.Lines(ctx, "dmesg"); err != nil {
			return err
		}
	}

	rw := dmesglog.NewRewriter(now, uptime, cmdCtx.Logger)
	return rw.Rewrite(lines, cmd.OutOrStdout())
}

// hostUptime reads the first field of /proc/uptime.
func hostUptime() (time.Duration, error) {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, fmt.Errorf("unable to read /proc/uptime: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty /proc/uptime")
	}
	return adb.ParseUptime(fields[0])
}
