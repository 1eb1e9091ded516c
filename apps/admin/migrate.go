package main

import (
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations // mockable

	errNoSQLDatabase = errors.New("migrations require the postgres database engine")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.sqlDB == nil {
		return errNoSQLDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(cli.sqlDB, args[0], arguments...)
}
