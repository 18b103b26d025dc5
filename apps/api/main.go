package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	echoapi "github.com/trezcool/academy/apps/api/echo"
	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/analytics"
	"github.com/trezcool/academy/core/assessment"
	"github.com/trezcool/academy/core/catalog"
	"github.com/trezcool/academy/core/certification"
	"github.com/trezcool/academy/core/notify"
	"github.com/trezcool/academy/core/progress"
	"github.com/trezcool/academy/core/user"
	appfs "github.com/trezcool/academy/fs"
	cachesvc "github.com/trezcool/academy/services/cache"
	emailsvc "github.com/trezcool/academy/services/email"
	eventsvc "github.com/trezcool/academy/services/events"
	logsvc "github.com/trezcool/academy/services/logger"
	metricsvc "github.com/trezcool/academy/services/metrics"
	"github.com/trezcool/academy/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, err := storage.Open(conf, true /* migrate */)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf.FrontendBaseURL, !conf.Debug)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, tmpls, log.New(os.Stdout, "EMAIL : ", log.LstdFlags))
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, tmpls, logger)
	}

	usrSvc := user.NewService(repos.Users)
	catalogSvc := catalog.NewService(repos.Catalog, validate, translator)

	registry := prometheus.NewRegistry()
	metricsSink := metricsvc.NewSink(registry)
	sinks := []notify.Sink{
		notify.NewLogSink(logger),
		metricsSink,
		emailsvc.NewCertifiedSink(mailSvc, usrSvc, repos.Attempts, catalogSvc),
	}
	if conf.RabbitMQ.URL != "" {
		publisher, pErr := eventsvc.NewPublisher(conf.RabbitMQ, logger)
		if pErr != nil {
			logger.Fatal(fmt.Sprintf("connecting to rabbitmq: %v", pErr), pErr)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	dispatcher := notify.NewDispatcher(logger, conf.Server.ShutdownTimeout, sinks...)
	defer dispatcher.Wait()

	var certCache certification.Cache
	if conf.Redis.Address != "" {
		client := cachesvc.NewRedisClient(conf.Redis)
		defer func() { _ = client.Close() }()
		certCache = cachesvc.NewCertificationCache(client, conf.Redis.CacheTTL)
	}

	certSvc := certification.NewService(repos.Certifications, certCache, dispatcher, logger)
	progressSvc := progress.NewService(repos.Progress, catalogSvc, dispatcher)
	assessmentSvc := assessment.NewService(repos.Attempts, catalogSvc, certSvc, progressSvc, dispatcher)
	analyticsSvc := analytics.NewService(repos.Analytics)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			UserSvc:       usrSvc,
			CatalogSvc:    catalogSvc,
			ProgressSvc:   progressSvc,
			AssessmentSvc: assessmentSvc,
			CertSvc:       certSvc,
			AnalyticsSvc:  analyticsSvc,
			Metrics:       metricsSink.Handler(),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
