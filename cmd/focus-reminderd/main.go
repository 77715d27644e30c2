// focus-reminderd — планировщик напоминаний о сроках задач.
//
// focus-reminderd:
//   - Получает snapshot'ы задач (RabbitMQ reminders.snapshots и WebSocket /ws)
//   - Взводит таймеры due-soon и heartbeat напоминаний
//   - Показывает уведомления в подключённых окнах (NOTIFY)
//   - Обрабатывает open/snooze (WebSocket и reminders.actions)
//
// Состояние только в памяти: после рестарта планировщик запрашивает
// свежий snapshot (REQUEST_SNAPSHOT) и пересобирает таймеры.
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
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/FocusTasks/internal/config"
	"github.com/shaiso/FocusTasks/internal/gateway"
	"github.com/shaiso/FocusTasks/internal/mq"
	"github.com/shaiso/FocusTasks/internal/protocol"
	"github.com/shaiso/FocusTasks/internal/reminder"
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
	logger.Info("starting focus-reminderd")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Scheduler и Service создаются после Hub, а Hub отдаёт им кадры клиентов
	var (
		sched *reminder.Scheduler
		svc   *reminder.Service
	)
	hub := gateway.NewHub(gateway.Config{
		Sink: func(ctx context.Context, f protocol.Frame) error {
			return svc.HandleFrame(ctx, f)
		},
		// Без RabbitMQ стартовый REQUEST_SNAPSHOT некому получить:
		// первое окно после HELLO пришлёт snapshot само
		NeedSnapshot: func() bool {
			return !sched.HasSnapshot()
		},
		Logger:         logger,
		OriginPatterns: cfg.Gateway.Origins,
		WriteTimeout:   cfg.Gateway.WriteTimeout,
	})

	var host reminder.Host = hub

	// RabbitMQ
	mqConn, err := mq.Dial(mq.ConnectionConfig{URL: cfg.RabbitMQURL, Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, running in gateway-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		// Hub первым: FOCUS умеет только он, REQUEST_SNAPSHOT уходит в оба канала
		publisher := mq.NewPublisher(mqConn, logger).WithStaleAfter(cfg.Policy.LivenessInterval)
		host = reminder.Hosts{hub, mq.NewBridge(publisher)}
	}

	caps := cfg.ReminderCapabilities()
	caps.Permission = hub.Permission

	sched, err = reminder.New(reminder.Config{
		Policy:       cfg.Policy,
		Notifier:     hub,
		Host:         host,
		Capabilities: caps,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("invalid reminder policy", "error", err)
		os.Exit(1)
	}

	svc = reminder.NewService(reminder.ServiceConfig{
		Scheduler: sched,
		Logger:    logger,
	})
	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start reminder service", "error", err)
		os.Exit(1)
	}

	// Consumers snapshot'ов и действий
	var consumers []*mq.Consumer
	if mqConn != nil {
		for _, queue := range []mq.Queue{mq.QueueSnapshots, mq.QueueActions} {
			c := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
				Queue:    queue,
				Handler:  mq.FrameHandler(svc.HandleFrame),
				Prefetch: 1,
			})
			consumers = append(consumers, c)

			go func() {
				if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("consumer error", "queue", queue, "error", err)
				}
			}()
		}
	}

	// HTTP mux: /ws + /healthz + /metrics + /debug/reminders
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/reminders", gateway.DebugHandler(sched.Armed, hub))

	server := &http.Server{
		Addr:    cfg.Reminderd.Addr(),
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	for _, c := range consumers {
		c.Stop()
	}
	svc.Stop()

	logger.Info("focus-reminderd stopped")
}
