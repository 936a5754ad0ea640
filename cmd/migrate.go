package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"PayGate/internal/config"
	"PayGate/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Create or update the schema of the configured store.

The bolt driver creates its buckets on open.

Examples:
  STORE_DRIVER=postgres paygate migrate
  STORE_DRIVER=sqlite SQLITE_PATH=./paygate.sqlite paygate migrate`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	s, err := database.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer s.Close()

	fmt.Printf("Schema ready for %s store\n", cfg.Store.Driver)
	return nil
}
