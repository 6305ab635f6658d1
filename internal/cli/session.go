package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/scratchdir/internal/session"
)

var sessionExport bool

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Print a new session token",
	Long: `Print a fresh session token.

Pass the token to 'scratchdir new --session' (or export it as
$SCRATCHDIR_SESSION) so that every call of the same session shares one
numbered directory:

  eval "$(scratchdir session --export)"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token := session.NewToken()
		w := cmd.OutOrStdout()

		switch {
		case jsonOutput:
			return outputJSON(w, map[string]string{"token": token})
		case sessionExport:
			_, err := fmt.Fprintf(w, "export %s=%s\n", envSession, token)
			return err
		default:
			_, err := fmt.Fprintln(w, token)
			return err
		}
	},
}

func init() {
	sessionCmd.Flags().BoolVar(&sessionExport, "export", false, "Print a shell export statement")
}
