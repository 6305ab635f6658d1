package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/scratchdir/internal/session"
	"github.com/danieljhkim/scratchdir/pkg/numdir"
)

var (
	newCount   int
	newSession string
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Allocate the next numbered directory",
	Long: `Create the next numbered directory under the root and print its path.

The <base>-current symlink is pointed at the new directory and the oldest
directories beyond the retention count are removed.

With --session (or $SCRATCHDIR_SESSION) the directory is tagged with the
session token, and later calls with the same token reuse it instead of
allocating a new one:

  export SCRATCHDIR_SESSION=$(scratchdir session)
  cd "$(scratchdir new)"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		count, err := a.count(newCount)
		if err != nil {
			return err
		}

		token := newSession
		if token == "" {
			token = os.Getenv(envSession)
		}

		var (
			dir    *numdir.Dir
			reused bool
		)
		if token != "" {
			marker := session.NewMarker(session.TokenFile, a.fs)
			dir, reused, err = a.alloc.AllocateOrReuse(a.cfg.Root, a.cfg.Base, count, marker.Matches(token))
			if dir != nil && !reused {
				if werr := marker.Write(dir.Path(), token); werr != nil {
					return werr
				}
			}
		} else {
			dir, err = a.alloc.Allocate(a.cfg.Root, a.cfg.Base, count)
		}

		var retireErr *numdir.RetirementError
		switch {
		case err == nil:
		case dir != nil && errors.As(err, &retireErr):
			PrintWarning(cmd.ErrOrStderr(), retireErr.Error())
		default:
			return err
		}

		if jsonOutput {
			info := newDirInfo(dir)
			info.Reused = reused
			return outputJSON(cmd.OutOrStdout(), info)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), dir.Path())
		return err
	},
}

func init() {
	newCmd.Flags().IntVarP(&newCount, "count", "n", 0, "Directories to keep, the new one included (default from config)")
	newCmd.Flags().StringVar(&newSession, "session", "", "Reuse the directory tagged with this session token")
}
