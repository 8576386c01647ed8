package cmd

import (
	"fmt"
	"os"

	"mrbox/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configPath is the directory holding .env and mrbox.yaml.
var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "mrbox",
	Short: "Sync a local tree with a remote store and run map-reduce jobs",
	Long: `mrbox mirrors a local directory into an object store and keeps a catalogue
of every synced object. Dropping a job descriptor into the tree runs a
map-reduce job and pulls its output back, with large outputs left remote
behind read-only link placeholders.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with the development config for readable CLI errors.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding .env and mrbox.yaml")
}
