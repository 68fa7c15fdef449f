package cmd

import (
	"context"
	"fmt"

	"submission-composer/core/lock"
	"submission-composer/core/queue"
	"submission-composer/feature/finalize"
	"submission-composer/feature/report"

	"github.com/spf13/cobra"
)

const finalizeAllKey = "dsc:finalize"

var allBatchesFlag bool

// finalizeCmd applies ingest results from the result queue.
var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Apply ingest results from the result queue",
	Long: `Reads result messages from the result queue and applies each one to the
matching item submission record. A message is deleted only after its result
has been stored; anything that cannot be applied stays on the queue.`,
	RunE: runFinalize,
}

func init() {
	finalizeCmd.Flags().BoolVar(&allBatchesFlag, "all-batches", false, "Apply results of every batch instead of --batch-id")
	RootCmd.AddCommand(finalizeCmd)
}

func runFinalize(cmd *cobra.Command, args []string) error {
	key := finalizeAllKey
	if !allBatchesFlag {
		if err := requireBatchID(); err != nil {
			return fmt.Errorf("%w (or pass --all-batches)", err)
		}
		key = lock.BatchKey(batchIDFlag)
	}

	rt, err := newRuntime("finalize")
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	st, err := rt.openStore()
	if err != nil {
		return err
	}
	receiver := queue.NewResultReceiver(rt.cfg.Queue, rt.redisClient())
	defer receiver.Close()

	c := finalize.NewCorrelator(st, receiver, rt.cfg.Workflow.RetryThreshold, rt.logger)

	opts := finalize.Options{
		MaxMessages: rt.cfg.Queue.MaxMessages,
		MaxPolls:    rt.cfg.Queue.MaxPolls,
	}
	if !allBatchesFlag {
		opts.BatchID = batchIDFlag
	}

	return rt.withLock(ctx, key, func(ctx context.Context) error {
		res, err := c.Finalize(ctx, opts)
		if res != nil {
			fmt.Fprint(cmd.OutOrStdout(), report.Finalize(res))
		}
		return err
	})
}
