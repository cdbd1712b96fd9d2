package main

import (
	"github.com/invigilo/invigilo/core"
	"github.com/invigilo/invigilo/storage/database"
)

// mockable
var (
	migrateFunc  = database.Migrate
	createDBFunc = database.CreateIfNotExist
)

func (cli *commandLine) migrate() error {
	return migrateFunc(cli.db)
}

func (cli *commandLine) createDB() error {
	return createDBFunc(core.Conf)
}
