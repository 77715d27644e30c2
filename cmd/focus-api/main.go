// focus-api — HTTP API задач и Task Source для планировщика напоминаний.
//
// focus-api:
//   - CRUD задач поверх PostgreSQL или JSON-файла
//   - После каждого изменения отправляет SET_REMINDERS (reminders.snapshots)
//   - Раз в liveness-интервал повторяет snapshot
//   - Отвечает на REQUEST_SNAPSHOT (reminders.requests)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/shaiso/FocusTasks/internal/api"
	"github.com/shaiso/FocusTasks/internal/config"
	"github.com/shaiso/FocusTasks/internal/mq"
	"github.com/shaiso/FocusTasks/internal/repo"
	"github.com/shaiso/FocusTasks/internal/source"
	"github.com/shaiso/FocusTasks/internal/telemetry"
)

var startTime = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting focus-api", "store", cfg.Store.Driver)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Хранилище задач
	var store repo.TaskStore
	switch cfg.Store.Driver {
	case config.StoreFile:
		store = repo.NewFileRepo(afero.NewOsFs(), cfg.Store.Path)
		logger.Info("using file store", "path", cfg.Store.Path)
	default:
		pool, err := repo.NewPool(ctx, cfg.Store.DSN)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := repo.Migrate(ctx, pool); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")
		store = repo.NewTaskRepo(pool)
	}

	handlerCfg := api.Config{
		Store:  store,
		Logger: logger,
	}

	// RabbitMQ
	var src *source.Source
	mqConn, err := mq.Dial(mq.ConnectionConfig{URL: cfg.RabbitMQURL, Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, reminders will not be scheduled", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher := mq.NewPublisher(mqConn, logger).WithStaleAfter(cfg.Policy.LivenessInterval)
		src = source.New(source.Config{
			Store:     store,
			Publisher: publisher,
			Conn:      mqConn,
			Horizon:   cfg.Source.Horizon,
			Policy:    cfg.Policy,
			Logger:    logger,
		})
		if err := src.Start(ctx); err != nil {
			logger.Error("failed to start task source", "error", err)
			os.Exit(1)
		}

		handlerCfg.Pusher = src
		handlerCfg.Publisher = publisher
	}

	handler := api.NewHandler(handlerCfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		telemetry.APIRequestsTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux, cfg.API.CORSOrigins...)

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    cfg.API.Addr(),
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	if src != nil {
		src.Stop()
	}

	logger.Info("stopped")
}
