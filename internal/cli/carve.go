package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var carveDir string

var carveCmd = &cobra.Command{
	Use:   "carve <path>",
	Short: "Create a uniquely named subdirectory",
	Long: `Create <path> inside a numbered directory and print the result.

Missing parent components are created. If the last component already exists,
"-0", "-1", ... is appended until a free name is found, so repeated calls never
share a directory.

The newest directory (<base>-current) is used unless --dir names another one.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		target := carveDir
		if target == "" {
			target, err = a.alloc.Current(a.cfg.Root, a.cfg.Base)
			if err != nil {
				return fmt.Errorf("no current directory, run 'scratchdir new' first: %w", err)
			}
		}
		dir, err := a.alloc.Open(target)
		if err != nil {
			return err
		}

		path, err := dir.Carve(args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), carveResult{Dir: newDirInfo(dir), Path: path})
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
		return err
	},
}

type carveResult struct {
	Dir  dirInfo `json:"dir"`
	Path string  `json:"path"`
}

func init() {
	carveCmd.Flags().StringVar(&carveDir, "dir", "", "Numbered directory to carve into (default: the current one)")
}
