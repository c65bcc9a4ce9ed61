package main

import (
	"github.com/pressly/goose/v3"

	appfs "github.com/jkazadi/kampus/fs"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(command string, args []string) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseRunFunc(command, cli.db, "migrations", args...)
}
