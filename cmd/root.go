package cmd

import (
	"fmt"
	"os"

	"submission-composer/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	workflowFlag string
	batchIDFlag  string
	verboseFlag  bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "dsc",
	Short: "DSpace Submission Composer",
	Long: `dsc prepares batches of items for deposit into DSpace.
It validates batches in object storage, records every item, sends submission
messages to the submission service and reconciles the ingest results.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format with the development config keeps CLI failures readable.
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
	RootCmd.PersistentFlags().StringVarP(&workflowFlag, "workflow", "w", "", "Workflow name (overrides WORKFLOW_NAME)")
	RootCmd.PersistentFlags().StringVarP(&batchIDFlag, "batch-id", "b", "", "Batch identifier")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}
