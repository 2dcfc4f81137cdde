package command

import (
	"fmt"
	"os"

	"reviewhub/database"
	"reviewhub/database/importer"

	"github.com/spf13/cobra"
)

var importDir string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the seed CSV tables into the database",
	Long: `import reads category.csv, genre.csv, titles.csv, genre_title.csv,
users.csv, review.csv and comments.csv from --dir and inserts them in a
single transaction. Either every table is loaded or nothing is.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		dir := importDir
		if dir == "" {
			dir = cfg.ImportDir
		}

		db, err := openDatabase(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close(db)

		summary, err := importer.New(db, logger).Run(cmd.Context(), os.DirFS(dir))
		if err != nil {
			return err
		}
		for _, s := range summary {
			fmt.Fprintf(cmd.OutOrStdout(), "%-13s %d rows\n", s.Table, s.Rows)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importDir, "dir", "", "directory holding the CSV files (default IMPORT_DIR)")
}
