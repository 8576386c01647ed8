package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// catalogueCmd represents the catalogue command
var catalogueCmd = &cobra.Command{
	Use:   "catalogue [prefix]",
	Short: "List catalogued objects",
	Long:  `Lists the catalogue rows, optionally only those under a local path prefix.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		jsonOutput, _ := cmd.Flags().GetBool("json")

		e, err := bootstrapLocal(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		prefix := ""
		if len(args) == 1 {
			prefix = e.ws.Resolve(args[0])
		}
		rows, err := e.ws.Catalogue.List(ctx, prefix)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			data, err := json.MarshalIndent(rows, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tLOCAL\tREMOTE\tLOCAL SUM\tREMOTE SUM")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Classification, r.LocalPath, r.RemotePath,
				deref(r.LocalChecksum), deref(r.RemoteChecksum))
		}
		return tw.Flush()
	},
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func init() {
	catalogueCmd.Flags().Bool("json", false, "print rows as JSON")
	RootCmd.AddCommand(catalogueCmd)
}
