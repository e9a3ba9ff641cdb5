package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smartattendance/internal/config"
	"smartattendance/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "attendctl",
	Short: "Administration commands for the attendance backend",
	Long: `attendctl manages the attendance database directly: it applies schema
migrations and creates or resets administrator accounts.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDB connects using DATABASE_URL. The connection must be usable.
func openDB() (config.App, *store.DB, error) {
	cfg := config.Load()
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return cfg, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, nil
}
