package cmd

import (
	"encoding/json"
	"fmt"

	"submission-composer/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// integrityCmd checks the bucket and the record table.
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the storage bucket and the submission table",
	Long: `Checks that the bucket exists and holds the workflow prefix, and that the
item submission table matches the expected schema. The database is optional;
without it only storage is checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime("integrity")
		if err != nil {
			return err
		}
		defer rt.close()

		client, err := rt.openStorage()
		if err != nil {
			return err
		}

		var db *gorm.DB
		if st, err := rt.openStore(); err != nil {
			rt.logger.Warn("Optional database connection failed", zap.Error(err))
		} else {
			db = st.DB()
		}

		svc := integrity.NewService(client, rt.cfg.Storage.Bucket, rt.cfg.Workflow.Name, rt.logger, db)
		data, err := json.MarshalIndent(svc.CheckAll(cmd.Context()), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
}
