package commands

import (
	"fmt"
	"path/filepath"

	"github.com/devkit-labs/devkit/internal/adb"
	"github.com/devkit-labs/devkit/internal/run"
	"github.com/spf13/cobra"
)

// NewTombstonesCommand creates the tombstones command.
func NewTombstonesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tombstones",
		Short: "Pull crash tombstones from the Android device",
		Long: `Pull /data/tombstones from the connected device into a per-device
directory under the output directory. Files already pulled with identical
content are skipped, so repeated runs only fetch new crashes.`,
		Example: `  # Pull new tombstones
  devkit tombstones

  # Under an explicit output directory
  devkit tombstones -o /tmp/crashes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			if err := run.Require("adb"); err != nil {
				return err
			}

			tags, err := adb.NewDevTags(cmdCtx.Cfg.DevTags, cmdCtx.Logger)
			if err != nil {
				return err
			}
			tag := tags.Tag(cmdCtx.Cfg.AndroidSerial)
			dir := filepath.Join(cmdCtx.Cfg.OutputDir, "tombstones", tag)

			client := adb.NewClient(cmdCtx.Runner, cmdCtx.Logger)
			results, err := client.PullTombstones(cmd.Context(), dir)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			pulled := 0
			for _, res := range results {
				if res.Skipped {
					r.StatusLine(res.Tombstone.LocalName(), "skipped", "already pulled")
					continue
				}
				pulled++
				r.StatusLine(res.Tombstone.LocalName(), "success", "")
			}
			r.Println("")
			r.Success(fmt.Sprintf("%d pulled, %d already present, in %s", pulled, len(results)-pulled, dir))
			return nil
		},
	}
	return cmd
}
