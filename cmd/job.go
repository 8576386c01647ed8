package cmd

import (
	"encoding/json"
	"fmt"

	"mrbox/feature/jobs"

	"github.com/spf13/cobra"
)

// jobCmd represents the job command
var jobCmd = &cobra.Command{
	Use:   "job <descriptor>",
	Short: "Run the map-reduce job of a descriptor",
	Long: `Validates the descriptor, runs the job and materializes its output, the same
way the sync engine does when a descriptor is dropped into the tree.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		d := jobs.NewDispatcher(e.ws, jobs.NewStreamingRunner(e.cfg.Job), e.logg.Named("jobs"))
		res, err := d.Dispatch(ctx, e.ws.Resolve(args[0]))
		if res != nil {
			data, merr := json.MarshalIndent(res, "", "  ")
			if merr != nil {
				return fmt.Errorf("failed to marshal JSON: %w", merr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		}
		return err
	},
}

func init() {
	RootCmd.AddCommand(jobCmd)
}
