package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/scratchdir/internal/fsops"
)

var (
	retireKeep   int
	retireDryRun bool
)

var retireCmd = &cobra.Command{
	Use:   "retire",
	Short: "Remove old numbered directories",
	Long: `Remove numbered directories older than the newest --keep ones.

'scratchdir new' already retires old directories on every allocation; use this
command to shrink the series after lowering the count, or with --keep 0 to
remove the whole series.

Use --dry-run to preview what would be removed without removing anything.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		keep := retireKeep
		if keep < 0 {
			keep = a.cfg.Count
		}
		if keep > 255 {
			return fmt.Errorf("--keep must be at most 255, got %d", keep)
		}

		w := cmd.OutOrStdout()
		dirs, err := a.alloc.Existing(a.cfg.Root, a.cfg.Base)
		if err != nil && !fsops.IsNotExist(err) {
			return err
		}
		if len(dirs) == 0 {
			if jsonOutput {
				return outputJSON(w, retireResult{DryRun: retireDryRun, Removed: []string{}})
			}
			PrintSection(w, "Retire")
			PrintEmptyState(w, "No numbered directories found.")
			return nil
		}
		newest := dirs[0].Number()

		plan, err := a.alloc.PlanRetirement(a.cfg.Root, a.cfg.Base, newest, uint8(keep))
		if err != nil {
			return err
		}
		paths := make([]string, 0, len(plan))
		for _, entry := range plan {
			paths = append(paths, filepath.Join(a.cfg.Root, entry.Name))
		}

		if !retireDryRun && len(plan) > 0 {
			if err := a.alloc.Retire(a.cfg.Root, a.cfg.Base, newest, uint8(keep)); err != nil {
				return err
			}
		}

		if jsonOutput {
			return outputJSON(w, retireResult{DryRun: retireDryRun, Newest: newest, Keep: keep, Removed: paths})
		}

		if len(paths) == 0 {
			PrintSection(w, "Retire")
			PrintEmptyState(w, "Nothing to retire.")
			return nil
		}

		if retireDryRun {
			PrintSection(w, "Dry Run")
			PrintInfo(w, fmt.Sprintf("Would remove %s:", PrintCount(len(paths), "directory", "directories")))
			PrintList(w, paths, 1)
			fmt.Fprintln(w)
			PrintWarning(w, "Run without --dry-run to actually remove these directories.")
		} else {
			PrintSuccess(w, fmt.Sprintf("Removed %s", PrintCount(len(paths), "directory", "directories")))
		}
		return nil
	},
}

type retireResult struct {
	DryRun  bool     `json:"dry_run"`
	Newest  uint16   `json:"newest"`
	Keep    int      `json:"keep"`
	Removed []string `json:"removed"`
}

func init() {
	retireCmd.Flags().IntVar(&retireKeep, "keep", -1, "Directories to keep, newest first (default from config)")
	retireCmd.Flags().BoolVar(&retireDryRun, "dry-run", false, "Preview what would be removed without removing")
}
