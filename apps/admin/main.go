package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/philosothon/philosothon/apps/shared"
	"github.com/philosothon/philosothon/core"
	logsvc "github.com/philosothon/philosothon/services/logger"
	"github.com/philosothon/philosothon/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(zerolog.ConsoleWriter{Out: os.Stderr}, conf)
	logger.Enable(!conf.Debug)
	ctx := context.Background()

	// set up DB; migrations are left to the `migrate` command
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	deps, err := shared.Build(ctx, conf, logger, db)
	if err != nil {
		_ = db.Close()
		logger.Fatal("setting up services", err)
	}

	// start CLI
	cli := commandLine{
		db:     db.DB,
		usrSvc: deps.UserSvc,
		regSvc: deps.RegSvc,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	_ = deps.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
