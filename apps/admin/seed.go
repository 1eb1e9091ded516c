package main

import (
	"github.com/pkg/errors"

	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
)

var errNotEmpty = errors.New("the database is not empty, use -force to replace its data")

func (cli *commandLine) seed(force bool) error {
	if !force && !cli.db.IsEmpty() {
		return errNotEmpty
	}
	if err := inmemdb.Seed(cli.db); err != nil {
		return err
	}
	logger.Println("seeded the demo data")
	return nil
}
