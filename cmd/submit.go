package cmd

import (
	"context"
	"fmt"

	"submission-composer/core/lock"
	"submission-composer/core/queue"
	"submission-composer/feature/dispatch"
	"submission-composer/feature/report"

	"github.com/spf13/cobra"
)

var collectionHandleFlag string

// submitCmd sends submission messages for every eligible item of a batch.
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Send submission messages for the eligible items of a batch",
	Long: `Writes the DSpace metadata document of every eligible item to the bucket
and sends one submission message per item to the submission queue.
Items already submitted or ingested are skipped.`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&collectionHandleFlag, "collection-handle", "c", "", "Target DSpace collection handle (overrides WORKFLOW_COLLECTION_HANDLE)")
	RootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	if err := requireBatchID(); err != nil {
		return err
	}
	rt, err := newRuntime("submit")
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
	sender, err := queue.NewSender(rt.cfg.Queue, rt.redisClient())
	if err != nil {
		return err
	}
	defer sender.Close()

	d := dispatch.NewDispatcher(dispatch.Config{
		Records:     st,
		Client:      client,
		Bucket:      rt.cfg.Storage.Bucket,
		Sender:      sender,
		Loader:      loader,
		Transformer: tr,
		Workflow:    rt.cfg.Workflow,
		OutputQueue: rt.cfg.Queue.ResultQueue,
		Logger:      rt.logger,
	})

	return rt.withLock(ctx, lock.BatchKey(batchIDFlag), func(ctx context.Context) error {
		res, err := d.Submit(ctx, dispatch.Options{
			BatchID:          batchIDFlag,
			CollectionHandle: collectionHandleFlag,
		})
		if res != nil {
			fmt.Fprint(cmd.OutOrStdout(), report.Submit(res))
		}
		return err
	})
}
