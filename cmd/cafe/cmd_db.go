package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/cafe/config"
	"github.com/shashiranjanraj/cafe/database/seeders"
	"github.com/shashiranjanraj/cafe/pkg/database"
	"github.com/shashiranjanraj/cafe/pkg/migration"
)

// openDB loads config and opens the configured database.
func openDB() (*gorm.DB, func(), error) {
	if err := config.Load(); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeFn, nil
}

// cafe migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()
		fmt.Println("Running migrations…")
		_, err = migration.New(db, os.Stdout).Run()
		return err
	},
}

// cafe migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()
		fmt.Println("Rolling back last batch…")
		_, err = migration.New(db, os.Stdout).Rollback()
		return err
	},
}

// cafe migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()
		return migration.New(db, os.Stdout).Status()
	},
}

// cafe seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with the demo menu, users and orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB()
		n, err := seeders.RunAll(db)
		if err != nil {
			return err
		}
		fmt.Printf("Ran %d seeders %v\n", n, seeders.Names())
		return nil
	},
}
