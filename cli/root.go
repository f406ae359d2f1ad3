// Package cli is the yatube command line: the web server plus maintenance commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "yatube [command] [flags]",
		Short:         "Yatube: a small blogging site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadFrom(configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", configPath, err)
			}
			config.Set(c)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", filepath.Join("config", "config.json"), "path to the JSON config file")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newGroupCmd(),
		newUserCmd(),
		newCacheCmd(),
	)
	return root
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDB connects and migrates, for the maintenance commands.
func openDB() (*gorm.DB, func(), error) {
	db, err := config.OpenDatabase(config.Get())
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := config.Migrate(db, models.All()...); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, closeFn, nil
}
