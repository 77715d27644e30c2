package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/FocusTasks/internal/mq"
	"github.com/shaiso/FocusTasks/internal/protocol"
	"github.com/shaiso/FocusTasks/internal/reminder"
	"github.com/shaiso/FocusTasks/internal/repo"
	"github.com/shaiso/FocusTasks/internal/telemetry"
)

// Default configuration values.
const (
	defaultPushTimeout = 5 * time.Second
	defaultPrefetch    = 5
)

// Publisher — куда уходят snapshot'ы (mq.Publisher в проде).
type Publisher interface {
	PublishSnapshot(ctx context.Context, f protocol.Frame) error
}

// Source — серверная сторона Task Source.
//
// Source отвечает за три способа доставки snapshot'а планировщику:
//   - Push после каждого изменения задачи (вызывает API);
//   - liveness-цикл раз в Interval, пока процесс жив;
//   - ответ на REQUEST_SNAPSHOT из очереди reminders.requests.
//
// Snapshot'ы идемпотентны, поэтому лишняя отправка безопасна, а
// потерянная восполнится следующей.
type Source struct {
	store     repo.TaskStore
	publisher Publisher
	conn      *mq.Connection
	consumer  *mq.Consumer

	horizon  time.Duration
	interval time.Duration
	now      func() time.Time

	// pushMu упорядочивает чтение задач и публикацию: snapshot,
	// прочитанный раньше, не может уйти позже более свежего
	pushMu sync.Mutex

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Source.
type Config struct {
	Store     repo.TaskStore
	Publisher Publisher
	Conn      *mq.Connection // опционально: без него нет ответа на REQUEST_SNAPSHOT

	// Horizon — задачи со сроком дальше now+Horizon в snapshot не попадают.
	// Default: Policy.Threshold + Policy.LivenessInterval, чтобы задача
	// оказалась у планировщика раньше, чем наступит её due-soon момент.
	Horizon time.Duration

	// Interval — период liveness-отправки (default: Policy.LivenessInterval).
	Interval time.Duration

	// Policy — источник значений по умолчанию для Horizon и Interval.
	Policy reminder.Policy

	Logger *slog.Logger
	Now    func() time.Time
}

// New создаёт новый Source.
func New(cfg Config) *Source {
	policy := cfg.Policy
	if policy.Threshold <= 0 {
		policy = reminder.DefaultPolicy()
	}

	horizon := cfg.Horizon
	if horizon <= 0 {
		horizon = policy.Threshold + policy.LivenessInterval
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = policy.LivenessInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Source{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		conn:      cfg.Conn,
		horizon:   horizon,
		interval:  interval,
		now:       now,
		logger:    telemetry.WithComponent(logger, "source"),
	}
}

// Snapshot строит SET_REMINDERS из предстоящих задач.
func (s *Source) Snapshot(ctx context.Context, trigger reminder.Trigger) (protocol.Frame, int, error) {
	tasks, err := s.store.ListUpcoming(ctx, s.now(), s.horizon)
	if err != nil {
		return protocol.Frame{}, 0, fmt.Errorf("list upcoming tasks: %w", err)
	}

	f, err := protocol.NewSetReminders(tasks)
	if err != nil {
		return protocol.Frame{}, 0, fmt.Errorf("build snapshot: %w", err)
	}
	f.Trigger = string(trigger)

	return f, len(tasks), nil
}

// Push отправляет планировщику полный snapshot предстоящих задач.
// Возвращает число задач в snapshot'е.
//
// Отправки выполняются по одной: у планировщика побеждает последний
// доставленный snapshot, и он должен быть прочитан последним.
func (s *Source) Push(ctx context.Context, trigger reminder.Trigger) (int, error) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	f, n, err := s.Snapshot(ctx, trigger)
	if err != nil {
		return 0, err
	}

	if err := s.publisher.PublishSnapshot(ctx, f); err != nil {
		return 0, fmt.Errorf("publish snapshot: %w", err)
	}

	telemetry.SnapshotsPublishedTotal.WithLabelValues(string(trigger)).Inc()
	s.logger.Debug("snapshot pushed", "trigger", trigger, "tasks", n)

	return n, nil
}

// PushAsync — Push в фоне с таймаутом. Ошибки только логируются:
// изменение задачи уже сохранено, а следующий tick всё восполнит.
func (s *Source) PushAsync(trigger reminder.Trigger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), defaultPushTimeout)
		defer cancel()

		if _, err := s.Push(ctx, trigger); err != nil {
			s.logger.Warn("snapshot push failed", "trigger", trigger, "error", err)
		}
	}()
}

// Start запускает liveness-цикл и consumer REQUEST_SNAPSHOT.
func (s *Source) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting task source",
		"interval", s.interval,
		"horizon", s.horizon,
	)

	if s.conn != nil {
		s.consumer = mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
			Queue:    mq.QueueRequests,
			Handler:  mq.FrameHandler(s.handleFrame),
			Prefetch: defaultPrefetch,
		})

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("request consumer error", "error", err)
			}
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.livenessLoop(ctx)
	}()

	return nil
}

// Stop останавливает Source и ждёт фоновые отправки.
func (s *Source) Stop() {
	s.logger.Info("stopping task source...")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.consumer != nil {
		s.consumer.Stop()
	}

	s.wg.Wait()
	s.logger.Info("task source stopped")
}

// handleFrame отвечает на REQUEST_SNAPSHOT.
func (s *Source) handleFrame(ctx context.Context, f protocol.Frame) error {
	if f.Type != protocol.TypeRequestSnapshot {
		return mq.Permanent(fmt.Errorf("unexpected frame %s on requests queue", f.Type))
	}

	_, err := s.Push(ctx, reminder.TriggerReply)
	return err
}

// livenessLoop периодически отправляет snapshot.
func (s *Source) livenessLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Первый push сразу: планировщик мог рестартовать, пока нас не было
	s.pushLogged(ctx, reminder.TriggerTick)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pushLogged(ctx, reminder.TriggerTick)
		}
	}
}

func (s *Source) pushLogged(ctx context.Context, trigger reminder.Trigger) {
	if _, err := s.Push(ctx, trigger); err != nil && ctx.Err() == nil {
		s.logger.Warn("liveness push failed", "error", err)
	}
}
