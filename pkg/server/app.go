package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ToneFX/internal/domain/repository"
	"ToneFX/internal/handler/api"
	"ToneFX/internal/usecase"
	pkgch "ToneFX/pkg/clickhouse"
	"ToneFX/pkg/config"
	xhttp "ToneFX/pkg/http"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg          *config.Config
	logger       *applogger.Logger
	handler      *api.ResearchHandler
	hub          *api.WSHub
	collector    *usecase.Collector
	builder      *usecase.DatasetBuilder
	signals      *usecase.SignalBuilder
	publisher    repository.SignalPublisher
	featureStore repository.FeatureStore
	chClient     *pkgch.Client
	httpServer   *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler *api.ResearchHandler,
	hub *api.WSHub,
	collector *usecase.Collector,
	builder *usecase.DatasetBuilder,
	signals *usecase.SignalBuilder,
	publisher repository.SignalPublisher,
	featureStore repository.FeatureStore,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:          cfg,
		logger:       logger,
		handler:      handler,
		hub:          hub,
		collector:    collector,
		builder:      builder,
		signals:      signals,
		publisher:    publisher,
		featureStore: featureStore,
		chClient:     chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.hub.Run()
	a.collector.SetProgressFunc(func(p usecase.Progress) {
		a.hub.Broadcast(api.WSMessage{Type: "progress", Data: p})
	})

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	a.hub.RegisterWS(a.httpServer.Echo())

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	if a.cfg.Pipeline.RunOnStart {
		go a.runPipeline(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// runPipeline builds the dataset for the configured window once at boot.
func (a *App) runPipeline(ctx context.Context) {
	start, ok := util.ParseTime(a.cfg.Pipeline.Start)
	if !ok {
		a.logger.Error("invalid pipeline.start", applogger.String("value", a.cfg.Pipeline.Start))
		return
	}
	end, ok := util.ParseTime(a.cfg.Pipeline.End)
	if !ok {
		a.logger.Error("invalid pipeline.end", applogger.String("value", a.cfg.Pipeline.End))
		return
	}
	if a.cfg.Pipeline.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Pipeline.BuildTimeout)
		defer cancel()
	}

	frame, err := a.builder.Build(ctx, start, end)
	if err != nil {
		a.logger.Error("startup dataset build failed", applogger.Error(err))
		a.hub.Broadcast(api.WSMessage{Type: "error", Data: err.Error()})
		return
	}
	a.hub.Broadcast(api.WSMessage{Type: "dataset_ready", Data: map[string]int{
		"rows":    frame.NumRows(),
		"columns": len(frame.Columns),
	}})

	if err := a.signals.TrainModel(ctx, frame); err != nil {
		a.logger.Error("startup model fit failed", applogger.Error(err))
		return
	}
	long, short, err := a.signals.BuildSignalsFromFeatures(ctx, frame, a.cfg.Model.TopN)
	if err != nil {
		a.logger.Error("startup signal build failed", applogger.Error(err))
		return
	}
	if err := a.signals.Publish(ctx, long, short); err != nil {
		a.logger.Warn("startup signal publish failed", applogger.Error(err))
	}
	a.hub.Broadcast(api.WSMessage{Type: "signals_ready", Data: map[string]int{
		"dates": len(long.Dates),
	}})
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.shutdownTimeout())
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.featureStore != nil {
		if err := a.featureStore.Close(); err != nil {
			a.logger.Warn("feature store close error", applogger.Error(err))
		}
	} else if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
