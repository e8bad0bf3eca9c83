package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the todos table and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dbService, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer dbService.Close()

		log.Println("Running database migration...")
		if err := dbService.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Println("Database migration complete.")
		return nil
	},
}
