package cmd

import (
	"fmt"

	"submission-composer/core/reconcile"
	"submission-composer/feature/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// reconcileCmd compares the bitstreams and metadata of a batch.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compare the bitstreams and metadata of a batch",
	Long: `Lists the bitstreams of a batch and reads its metadata file, then reports
the item identifiers found in both, in bitstreams only and in metadata only.
Exits with an error when the two sides do not match.`,
	RunE: runReconcile,
}

func init() {
	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if err := requireBatchID(); err != nil {
		return err
	}
	rt, err := newRuntime("reconcile")
	if err != nil {
		return err
	}
	defer rt.close()

	client, err := rt.openStorage()
	if err != nil {
		return err
	}
	loader, _, err := rt.batchLoader(client)
	if err != nil {
		return err
	}

	// No cache: the CLI always reads the current bucket state.
	_, res, err := reconcile.Run(cmd.Context(), loader.Spec(batchIDFlag, 0))
	if err != nil {
		return fmt.Errorf("failed to reconcile batch %s: %w", batchIDFlag, err)
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Reconcile(batchIDFlag, res))

	s := res.Summary()
	rt.logger.Info("Reconciliation finished",
		zap.String("batch_id", batchIDFlag),
		zap.Int("reconciled", s.Reconciled),
		zap.Int("bitstreams_without_metadata", s.BitstreamsWithoutMetadata),
		zap.Int("metadata_without_bitstreams", s.MetadataWithoutBitstreams),
	)
	if !res.Matched() {
		return fmt.Errorf("batch %s does not reconcile", batchIDFlag)
	}
	return nil
}
