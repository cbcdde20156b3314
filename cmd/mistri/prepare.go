package main

import (
	"github.com/mistriapp/mistri/server/config"
	"github.com/mistriapp/mistri/server/datastore/mysql"
	"github.com/spf13/cobra"
)

func createPrepareCmd(configManager config.Manager) *cobra.Command {
	prepareCmd := &cobra.Command{
		Use:   "prepare",
		Short: "Subcommands for initializing mistri infrastructure",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help() //nolint:errcheck
		},
	}

	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Given correct database configurations, prepare the database for use",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configManager.LoadConfig()

			ds, err := mysql.New(cfg.Mysql)
			if err != nil {
				initFatal(err, "creating db connection")
			}
			defer ds.Close()

			if err := ds.MigrateTables(cmd.Context()); err != nil {
				initFatal(err, "migrating db schema")
			}
		},
	}

	prepareCmd.AddCommand(dbCmd)
	return prepareCmd
}
