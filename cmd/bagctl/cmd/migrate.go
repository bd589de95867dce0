package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Samicowest/bag-bot/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if err := a.Migrate(cmd.Context()); err != nil {
				return err
			}
			printSuccess("Database schema is up to date")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
