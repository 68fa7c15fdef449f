package cmd

import (
	"github.com/spf13/cobra"
)

// migrateCmd creates the item submission table.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the item submission table",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime("migrate")
		if err != nil {
			return err
		}
		defer rt.close()

		st, err := rt.openStore()
		if err != nil {
			return err
		}
		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		rt.logger.Info("Item submission table is up to date")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
