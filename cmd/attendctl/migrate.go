package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smartattendance/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(cmd.Context(), db.Client); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
	return nil
}
