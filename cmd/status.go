package cmd

import (
	"fmt"

	"submission-composer/feature/batch"
	"submission-composer/feature/report"

	"github.com/spf13/cobra"
)

// statusCmd prints the submission records of a batch.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the submission status of every item in a batch",
	RunE:  runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := requireBatchID(); err != nil {
		return err
	}
	rt, err := newRuntime("status")
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	svc := batch.NewService(st, nil, 0, rt.logger)

	summary, err := svc.Summary(ctx, batchIDFlag)
	if err != nil {
		return err
	}
	items, err := svc.ListItems(ctx, batchIDFlag)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Status(summary, items))
	return nil
}
