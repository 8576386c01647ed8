package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"mrbox/feature/verify"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verifyFix bool

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute checksums of every synced object",
	Long: `Sweeps the catalogue, recomputes the local and remote checksums and lists
the objects whose copies differ or are missing. With --fix, divergent files are
re-uploaded from their local copy.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		jsonOutput, _ := cmd.Flags().GetBool("json")

		e, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		svc := verify.NewService(e.ws, e.logg, verify.WithConcurrency(e.cfg.Verify.Concurrency))
		report, err := svc.Sweep(ctx)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}

		var fixed []string
		if verifyFix {
			fixed, err = svc.Fix(ctx, report.Findings)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			data, err := json.MarshalIndent(struct {
				*verify.Report
				Fixed []string `json:"fixed,omitempty"`
			}{report, fixed}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintln(out, "\n=== Verification ===")
		fmt.Fprintf(out, "Checked: %d\n", report.Checked)
		fmt.Fprintf(out, "Findings: %d\n", len(report.Findings))
		for _, f := range report.Findings {
			fmt.Fprintf(out, "  %-15s %s -> %s\n", f.Status, f.LocalPath, f.RemotePath)
		}
		if verifyFix {
			fmt.Fprintf(out, "Fixed: %d\n", len(fixed))
		}
		fmt.Fprintf(out, "Execution Time: %s\n", report.Duration.Round(time.Millisecond))

		e.logg.Info("Verification completed",
			zap.Int("checked", report.Checked),
			zap.Int("findings", len(report.Findings)),
			zap.Int("fixed", len(fixed)),
		)
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyFix, "fix", false, "re-upload divergent files")
	verifyCmd.Flags().Bool("json", false, "print the report as JSON")
	RootCmd.AddCommand(verifyCmd)
}
