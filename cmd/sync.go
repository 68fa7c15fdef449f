package cmd

import (
	"context"
	"fmt"

	"submission-composer/core/lock"
	"submission-composer/feature/report"
	batchsync "submission-composer/feature/sync"

	"github.com/spf13/cobra"
)

var (
	syncSourceFlag      string
	syncDestinationFlag string
	syncDryRunFlag      bool
)

// syncCmd mirrors a staged batch into the submission assets bucket.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror a staged batch into the submission assets bucket",
	Long: `Copies new and changed objects from the source prefix to the destination
prefix and deletes destination objects that are not in the source. Objects
under dspace_metadata/ are never copied or deleted.

Without --source and --destination the batch path of the workflow is mirrored
from STORAGE_SYNC_SOURCE_BUCKET into STORAGE_BUCKET.

Examples:
  dsc sync -w simple-csv -b b1 --dry-run
  dsc sync -s s3://staging/simple-csv/b1 -d s3://dsc/simple-csv/b1`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncSourceFlag, "source", "s", "", "Source in s3://bucket/prefix form")
	syncCmd.Flags().StringVarP(&syncDestinationFlag, "destination", "d", "", "Destination in s3://bucket/prefix form")
	syncCmd.Flags().BoolVar(&syncDryRunFlag, "dry-run", false, "Show the operations without performing them")
	RootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime("sync")
	if err != nil {
		return err
	}
	defer rt.close()

	src, dst, err := rt.syncLocations(syncSourceFlag, syncDestinationFlag)
	if err != nil {
		return err
	}
	key := lock.BatchKey(batchIDFlag)
	if batchIDFlag == "" {
		key = "dsc:sync:" + dst.String()
	}
	return rt.withLock(cmd.Context(), key, func(ctx context.Context) error {
		return rt.syncBatch(ctx, cmd, src, dst, syncDryRunFlag)
	})
}

// syncLocations resolves explicit locations, or derives both from the batch path.
func (r *runtime) syncLocations(source, destination string) (batchsync.Location, batchsync.Location, error) {
	var src, dst batchsync.Location
	switch {
	case source != "" && destination != "":
		var err error
		if src, err = batchsync.ParseLocation(source); err != nil {
			return src, dst, err
		}
		if dst, err = batchsync.ParseLocation(destination); err != nil {
			return src, dst, err
		}
		return src, dst, nil
	case source != "" || destination != "":
		return src, dst, fmt.Errorf("--source and --destination must be given together")
	case r.cfg.Storage.SyncSourceBucket == "":
		return src, dst, fmt.Errorf("either provide --source and --destination or set STORAGE_SYNC_SOURCE_BUCKET")
	}
	if err := requireBatchID(); err != nil {
		return src, dst, err
	}
	path := r.cfg.Workflow.BatchPath(batchIDFlag)
	return batchsync.NewLocation(r.cfg.Storage.SyncSourceBucket, path), batchsync.NewLocation(r.cfg.Storage.Bucket, path), nil
}

func (r *runtime) syncBatch(ctx context.Context, cmd *cobra.Command, src, dst batchsync.Location, dryRun bool) error {
	client, err := r.openStorage()
	if err != nil {
		return err
	}
	res, err := batchsync.NewSyncer(client, r.logger).Run(ctx, src, dst, dryRun)
	if res != nil {
		fmt.Fprint(cmd.OutOrStdout(), report.Sync(res))
	}
	if err != nil {
		return fmt.Errorf("failed to sync %s: %w", src, err)
	}
	return nil
}
