package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/academictoken/registry/apps/api/di"
	echoapi "github.com/academictoken/registry/apps/api/echo"
	"github.com/academictoken/registry/core"
	cachesvc "github.com/academictoken/registry/services/cache"
	emailsvc "github.com/academictoken/registry/services/email"
	eventsvc "github.com/academictoken/registry/services/events"
	logsvc "github.com/academictoken/registry/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	if err := conf.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logsvc.NewRollbarLogger(os.Stdout, conf)
	logger.Enable(!conf.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up storage
	storage, err := di.OpenStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up %s storage: %v", conf.Storage, err), err)
	}
	defer func() {
		if err = storage.Close(); err != nil {
			logger.Error("failed to close storage", err)
		}
	}()

	// set up services
	cache, closeCache, err := cachesvc.New(ctx, conf.RedisAddress)
	if err != nil {
		logger.Warn(fmt.Sprintf("redis unavailable, caching in memory: %v", err))
		cache, closeCache = cachesvc.NewMemoryCache(), func() error { return nil }
	}
	defer func() { _ = closeCache() }()

	validate, translator := core.NewValidator()
	di.InitValidators(validate, translator)

	services := di.New(di.Deps{
		Conf:       conf,
		Logger:     logger,
		Store:      storage.Store,
		LedgerRepo: storage.LedgerRepo,
		Cache:      cache,
		MailSvc:    emailsvc.New(conf, logger),
		Validate:   validate,
		Translator: translator,
	})

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if len(conf.KafkaBrokers) > 0 {
		publisher, err := eventsvc.NewKafkaPublisher(conf.KafkaBrokers, conf.KafkaTopic, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up kafka publisher: %v", err), err)
		}
		defer func() { _ = publisher.Close() }()
		go publisher.Run(ctx, services.Ledger.Hub())
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics of the API.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	debugMux := http.NewServeMux()
	debugMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	debugMux.Handle("/", http.DefaultServeMux)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, debugMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:     conf,
		Logger:   logger,
		Services: services,
		Metrics:  registry,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer scancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
