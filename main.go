package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"social-gateway/infrastructure/cache"
	"social-gateway/infrastructure/configuration"
	"social-gateway/infrastructure/jobqueue"
	"social-gateway/infrastructure/logger"
	"social-gateway/infrastructure/persistence"
	"social-gateway/infrastructure/recorder"
	"social-gateway/infrastructure/request"
	httpHandler "social-gateway/interfaces/http"
	"social-gateway/provider"
	"social-gateway/provider/facebridge"
	"social-gateway/provider/loopback"
	"social-gateway/provider/twister"
	"social-gateway/scheduler"
	"social-gateway/server"
	"social-gateway/usecase"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	configuration.LoadEnvFromFile("config.env", ".env")
	app := configuration.C.App
	gateway := configuration.C.Gateway

	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Cannot connect to PostgreSQL")
		os.Exit(1)
	}
	if err := persistence.EnsureGatewaySchema(db); err != nil {
		logger.GetLogger().WithField("error", err).Error("Schema migration failed")
		os.Exit(1)
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not reachable at startup; scheduler will retry")
	}

	// Provider traffic goes through the recorder transport so integration runs
	// can be captured and replayed deterministically.
	transport := recorder.New(
		recorder.Mode(configuration.C.Recorder.Mode),
		nil,
		configuration.C.Recorder.IndexPath,
	)
	transport.SetFaults(recorder.FaultConfig{
		DelayMean:        configuration.C.Recorder.DelayMean,
		DelayStdDev:      configuration.C.Recorder.DelayStdDev,
		ErrorProbability: configuration.C.Recorder.ErrorProbability,
		ErrorStatus:      configuration.C.Recorder.ErrorStatus,
	})

	engine := request.NewEngine(
		&http.Client{Transport: transport, Timeout: 30 * time.Second},
		request.NewGate(gateway.MaxConcurrent),
		request.NewKeyedLimiter(
			cache.NewRateLimitStore(redisClient),
			gateway.RateLimitMax,
			request.UnitFromString(gateway.RateLimitUnit),
		),
	)

	registry := provider.NewRegistry()
	registry.Register(loopback.New("loopback"))
	registry.Register(loopback.New("loopback2"))
	registry.Register(twister.New())
	registry.Register(facebridge.New())
	for clientName, mapping := range configuration.C.ServiceAliases {
		for externalName, providerName := range mapping {
			registry.Alias(clientName, externalName, providerName)
		}
	}

	authzRepo := persistence.NewAuthorizationRepository(db)
	datapointRepo := persistence.NewDatapointRepository(db)
	granularRepo := persistence.NewGranularRepository(db)
	viewRepo := persistence.NewViewRepository(db)
	streamCacheRepo := persistence.NewStreamCacheRepository(db)
	queue := jobqueue.NewRedisQueue(redisClient)

	authUsecase := usecase.NewAuthUsecase(registry, authzRepo, engine)
	methodUsecase := usecase.NewMethodUsecase(registry, authzRepo, datapointRepo, granularRepo, streamCacheRepo, engine, authUsecase)
	viewUsecase := usecase.NewViewUsecase(viewRepo, authzRepo, methodUsecase)
	streamUsecase := usecase.NewStreamUsecase(registry, authzRepo, streamCacheRepo, engine)
	statusUsecase := usecase.NewStatusUsecase(registry, authzRepo, engine)
	performUsecase := usecase.NewPerformUsecase(registry, authzRepo, datapointRepo, granularRepo, streamCacheRepo, queue, engine, authUsecase)

	router := server.InitiateRouter(
		httpHandler.NewAPIHandler(methodUsecase),
		httpHandler.NewDataHandler(methodUsecase),
		httpHandler.NewAuthHandler(authUsecase),
		httpHandler.NewViewHandler(viewUsecase),
		httpHandler.NewStreamHandler(streamUsecase),
		httpHandler.NewStatusHandler(statusUsecase),
		httpHandler.NewHealthHandler(db, redisClient),
	)

	sched := scheduler.New(registry, authzRepo, queue, performUsecase)
	g.Go(func() error { return sched.RunWorker(ctx) })
	g.Go(func() error { return sched.RunPromoter(ctx, 15*time.Second) })
	g.Go(func() error {
		return sched.RunSeeder(ctx, time.Duration(gateway.SeedIntervalMinutes)*time.Minute)
	})

	logger.GetLogger().
		WithField("port", app.Port).
		WithField("tls", app.TLSEnabled).
		WithField("environment", gateway.Environment).
		Info("Starting gateway")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", app.Port),
			Handler: router,
		}
		var err error
		if app.TLSEnabled && app.TLSCertFile != "" && app.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(app.TLSCertFile, app.TLSKeyFile)
		} else {
			if app.TLSEnabled {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if recorder.Mode(configuration.C.Recorder.Mode) == recorder.ModeRecord {
		if err := transport.Save(); err != nil {
			logger.GetLogger().WithField("error", err).Error("Recorder index save failed")
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Gateway exited with error")
		os.Exit(2)
	}
}
