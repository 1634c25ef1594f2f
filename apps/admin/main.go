package main

import (
	"fmt"
	"os"

	"github.com/academictoken/registry/apps/api/di"
	"github.com/academictoken/registry/core"
	emailsvc "github.com/academictoken/registry/services/email"
	logsvc "github.com/academictoken/registry/services/logger"
)

func main() {
	conf := core.NewConfig()
	if err := conf.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logsvc.NewRollbarLogger(os.Stderr, conf)
	logger.Enable(!conf.Debug)

	// set up storage
	storage, err := di.OpenStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s storage: %v", conf.Storage, err), err)
	}
	if storage.DB == nil {
		logger.Warn("memory storage: changes are dropped when the command exits")
	}

	validate, translator := core.NewValidator()
	di.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		logger:  logger,
		storage: storage,
		services: di.New(di.Deps{
			Conf:       conf,
			Logger:     logger,
			Store:      storage.Store,
			LedgerRepo: storage.LedgerRepo,
			MailSvc:    emailsvc.New(conf, logger),
			Validate:   validate,
			Translator: translator,
		}),
	}
	err = cli.run(os.Args)
	_ = storage.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
