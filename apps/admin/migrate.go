package main

import (
	"errors"

	"github.com/trezcool/shule/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errors.New("migrations need the postgres driver")
	}
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
