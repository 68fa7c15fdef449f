package cmd

import (
	"context"
	"errors"
	"fmt"

	"submission-composer/core/lock"
	"submission-composer/feature/batch"
	"submission-composer/feature/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// createCmd validates a batch and records every item in it.
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Validate a batch and create its item submission records",
	Long: `Reconciles the bitstreams and metadata of a batch, validates every item
and, when the whole batch is valid, creates one submission record per item.
Existing records are left untouched, so the command can be re-run safely.`,
	RunE: runCreate,
}

var (
	syncDataFlag              bool
	createSyncDryRunFlag      bool
	createSyncSourceFlag      string
	createSyncDestinationFlag string
)

func init() {
	createCmd.Flags().BoolVar(&syncDataFlag, "sync-data", false, "Sync the batch into the submission assets bucket before creating records")
	createCmd.Flags().BoolVar(&createSyncDryRunFlag, "sync-dry-run", false, "Show the sync operations without performing them")
	createCmd.Flags().StringVar(&createSyncSourceFlag, "sync-source", "", "Sync source in s3://bucket/prefix form")
	createCmd.Flags().StringVar(&createSyncDestinationFlag, "sync-destination", "", "Sync destination in s3://bucket/prefix form")
	RootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	if err := requireBatchID(); err != nil {
		return err
	}
	rt, err := newRuntime("create")
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	client, err := rt.openStorage()
	if err != nil {
		return err
	}
	loader, tr, err := rt.batchLoader(client)
	if err != nil {
		return err
	}
	creator := batch.NewCreator(loader, st, rt.cfg.Workflow, tr, rt.logger)

	return rt.withLock(ctx, lock.BatchKey(batchIDFlag), func(ctx context.Context) error {
		if syncDataFlag {
			src, dst, err := rt.syncLocations(createSyncSourceFlag, createSyncDestinationFlag)
			if err != nil {
				return err
			}
			if err := rt.syncBatch(ctx, cmd, src, dst, createSyncDryRunFlag); err != nil {
				return fmt.Errorf("failed to sync data, cannot proceed with batch creation: %w", err)
			}
		}

		res, err := creator.Create(ctx, batchIDFlag)
		if res != nil {
			fmt.Fprint(cmd.OutOrStdout(), report.Create(res))
		}
		var verr *batch.ValidationError
		if errors.As(err, &verr) {
			rt.logger.Warn("Batch is not valid, no records created",
				zap.String("batch_id", batchIDFlag),
				zap.Int("invalid", len(verr.Invalid)),
			)
		}
		return err
	})
}
