package cmd

import (
	"context"
	"io"

	"mrbox/feature/view"

	"github.com/spf13/cobra"
)

var viewLines int

// viewCmd represents the view command
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print the start or end of a synced object",
	Long: `Prints lines of a synced object. Link placeholders are read from the
remote store, so large job outputs can be inspected without copying them.`,
}

var viewHeadCmd = &cobra.Command{
	Use:   "head <path>",
	Short: "Print the first lines of an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, args[0], (*view.Viewer).Head)
	},
}

var viewTailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Print the last lines of an object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, args[0], (*view.Viewer).Tail)
	},
}

type viewFunc func(v *view.Viewer, ctx context.Context, w io.Writer, p string, n int) (view.Source, error)

func runView(cmd *cobra.Command, p string, fn viewFunc) error {
	ctx := cmd.Context()
	e, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	_, err = fn(view.New(e.ws, e.logg), ctx, cmd.OutOrStdout(), p, viewLines)
	return err
}

func init() {
	viewCmd.PersistentFlags().IntVarP(&viewLines, "lines", "n", view.DefaultLines, "number of lines")
	viewCmd.AddCommand(viewHeadCmd, viewTailCmd)
	RootCmd.AddCommand(viewCmd)
}
