package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the newest numbered directory",
	Long: `Print the target of the <base>-current symlink, the directory created by
the most recent 'scratchdir new'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		target, err := a.alloc.Current(a.cfg.Root, a.cfg.Base)
		if err != nil {
			return err
		}

		if jsonOutput {
			dir, err := a.alloc.Open(target)
			if err != nil {
				return err
			}
			info := newDirInfo(dir)
			info.Current = true
			return outputJSON(cmd.OutOrStdout(), info)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), target)
		return err
	},
}
