package command

import (
	"reviewhub/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables, indexes and constraints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		db, err := openDatabase(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		return database.Close(db)
	},
}
