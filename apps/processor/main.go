package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/academictoken/registry/core"
	cachesvc "github.com/academictoken/registry/services/cache"
	logsvc "github.com/academictoken/registry/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(os.Stderr, conf)
	logger.Enable(!conf.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := commandLine{
		logger: logger,
		newCache: func(ctx context.Context) (core.Cache, func() error, error) {
			return cachesvc.New(ctx, conf.RedisAddress)
		},
	}
	if err := cli.rootCmd().ExecuteContext(ctx); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		stop()
		os.Exit(1)
	}
}
