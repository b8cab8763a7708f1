package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docmakerhq/docmaker/internal/dedupe"
	"github.com/docmakerhq/docmaker/internal/docstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Ensure the database schema and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// Constructors ensure their tables.
	if _, err := docstore.NewStore(db, logger); err != nil {
		return err
	}
	if _, err := dedupe.NewTracker(db, logger); err != nil {
		return err
	}

	logger.Info("schema ready")
	return nil
}
