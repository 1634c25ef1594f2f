package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/academictoken/registry/storage/database"
)

var errNoDatabase = errors.New("migrations need the postgres storage")

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, down, status, ...) against the registry database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			if cli.storage.DB == nil {
				return errNoDatabase
			}
			return errors.Cause(database.Migrate(cli.storage.DB.DB, args[0], args[1:]...))
		},
	}
}
