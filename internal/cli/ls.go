package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/danieljhkim/scratchdir/internal/fsops"
)

var lsMatch string

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List numbered directories, newest first",
	Long: `List the numbered directories of the series under the root, newest first.

Use --match to filter by directory name with a glob pattern, e.g.
--match 'run-1*'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		var matcher glob.Glob
		if lsMatch != "" {
			matcher, err = glob.Compile(lsMatch)
			if err != nil {
				return fmt.Errorf("invalid --match pattern %q: %w", lsMatch, err)
			}
		}

		dirs, err := a.alloc.Existing(a.cfg.Root, a.cfg.Base)
		if err != nil && !fsops.IsNotExist(err) {
			return err
		}

		// A missing or dangling link just means nothing is marked current.
		current, _ := a.alloc.Current(a.cfg.Root, a.cfg.Base)

		infos := []dirInfo{}
		for _, d := range dirs {
			if matcher != nil && !matcher.Match(filepath.Base(d.Path())) {
				continue
			}
			info := newDirInfo(d)
			info.Current = current != "" && current == d.Path()
			infos = append(infos, info)
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), infos)
		}

		w := cmd.OutOrStdout()
		PrintSection(w, fmt.Sprintf("%s-* in %s", a.cfg.Base, a.cfg.Root))
		if len(infos) == 0 {
			PrintEmptyState(w, "No numbered directories found.")
			return nil
		}

		rows := make([][]string, 0, len(infos))
		for _, info := range infos {
			mark := ""
			if info.Current {
				mark = "*"
			}
			rows = append(rows, []string{strconv.Itoa(int(info.Number)), filepath.Base(info.Path), mark})
		}
		PrintTable(w, []string{"NUMBER", "NAME", "CURRENT"}, rows)
		return nil
	},
}

func init() {
	lsCmd.Flags().StringVar(&lsMatch, "match", "", "Only list directories whose name matches this glob")
}
