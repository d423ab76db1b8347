package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a curated attack dataset from a CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importFile == "" {
			return fmt.Errorf("--file must be provided")
		}
		return getApp().Import(cmd.Context(), importFile)
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "Path to the CSV file to import")
}
