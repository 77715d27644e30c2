package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/FocusTasks/internal/domain"
	"github.com/shaiso/FocusTasks/internal/protocol"
	"github.com/shaiso/FocusTasks/internal/telemetry"
)

const defaultQueueSize = 64

// EventKind — тип события для Service.
type EventKind string

const (
	EventSnapshot    EventKind = "snapshot"
	EventInteraction EventKind = "interaction"
	EventTick        EventKind = "tick"
	EventWake        EventKind = "wake"
)

// Event — входящее событие Scheduler'а.
type Event struct {
	Kind        EventKind
	Tasks       []domain.Task      // EventSnapshot
	Trigger     Trigger            // EventSnapshot
	Interaction domain.Interaction // EventInteraction

	done chan error
}

// Service — реактивный процесс вокруг Scheduler.
//
// Все события (snapshot'ы, действия пользователя, tick'и) проходят через
// одну FIFO-очередь и обрабатываются одной горутиной по очереди:
// snapshot, пришедший во время обработки предыдущего, ждёт за ним.
// Если у хоста нет periodic background sync, Service сам генерирует
// liveness tick через robfig/cron, пока процесс жив.
type Service struct {
	sched  *Scheduler
	logger *slog.Logger
	events chan Event

	cron       *cron.Cron
	cancelFunc context.CancelFunc
	stopped    chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// ServiceConfig — конфигурация Service.
type ServiceConfig struct {
	Scheduler *Scheduler
	Logger    *slog.Logger
	QueueSize int // размер очереди событий (default: 64)
}

// NewService создаёт новый Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	return &Service{
		sched:   cfg.Scheduler,
		logger:  logger,
		events:  make(chan Event, size),
		stopped: make(chan struct{}),
	}
}

// Start запускает цикл обработки событий и liveness tick.
// Первым событием идёт wake: без snapshot'а Scheduler запросит его.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	policy := s.sched.Policy()

	if !s.sched.caps.PeriodicSync {
		s.cron = cron.New()
		_, err := s.cron.AddFunc(livenessSpec(policy.LivenessInterval), func() {
			if err := s.TrySubmit(Event{Kind: EventTick}); err != nil {
				s.logger.Warn("liveness tick dropped", "error", err)
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("schedule liveness tick: %w", err)
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()

	if s.cron != nil {
		s.cron.Start()
	}

	s.logger.Info("reminder service started",
		"periodic_sync", s.sched.caps.PeriodicSync,
		"liveness_interval", policy.LivenessInterval,
		"threshold", policy.Threshold,
		"heartbeats", policy.Heartbeats,
	)

	return s.TrySubmit(Event{Kind: EventWake})
}

// Stop останавливает цикл и отменяет все таймеры.
// После Stop процесс ничего не помнит: следующий запуск начнёт с нуля.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)

		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		if s.cancelFunc != nil {
			s.cancelFunc()
		}
		s.wg.Wait()

		cancelled := s.sched.CancelAll()
		s.logger.Info("reminder service stopped", "cancelled", cancelled)
	})
}

// Submit ставит событие в очередь, ожидая места.
func (s *Service) Submit(ctx context.Context, ev Event) error {
	select {
	case <-s.stopped:
		return ErrServiceStopped
	default:
	}

	select {
	case s.events <- ev:
		return nil
	case <-s.stopped:
		return ErrServiceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit ставит событие в очередь без ожидания.
func (s *Service) TrySubmit(ev Event) error {
	select {
	case <-s.stopped:
		return ErrServiceStopped
	default:
	}

	select {
	case s.events <- ev:
		return nil
	default:
		return errors.New("event queue is full")
	}
}

// Do ставит событие в очередь и ждёт окончания его обработки.
func (s *Service) Do(ctx context.Context, ev Event) error {
	ev.done = make(chan error, 1)
	if err := s.Submit(ctx, ev); err != nil {
		return err
	}

	select {
	case err := <-ev.done:
		return err
	case <-s.stopped:
		return ErrServiceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleFrame переводит сообщение протокола в событие и ставит в очередь.
// Битые задачи в snapshot'е пропускаются по одной.
func (s *Service) HandleFrame(ctx context.Context, f protocol.Frame) error {
	ev, err := s.FrameEvent(f)
	if err != nil {
		return err
	}
	if ev == nil {
		return nil
	}
	return s.Submit(ctx, *ev)
}

// FrameEvent переводит сообщение протокола в событие.
// PING и HELLO возвращают nil: Scheduler'у в них ничего нет.
func (s *Service) FrameEvent(f protocol.Frame) (*Event, error) {
	switch f.Type {
	case protocol.TypeSetReminders, protocol.TypeTasksSnapshot:
		tasks, skipped, err := protocol.DecodeTasks(f.Tasks)
		if err != nil {
			return nil, err
		}
		for _, e := range skipped {
			s.logger.Warn("skipping malformed task", "error", e)
		}
		telemetry.SnapshotTasksSkippedTotal.Add(float64(len(skipped)))

		def := TriggerPush
		if f.Type == protocol.TypeTasksSnapshot {
			def = TriggerReply
		}
		return &Event{
			Kind:    EventSnapshot,
			Tasks:   tasks,
			Trigger: ParseTrigger(f.Trigger, def),
		}, nil

	case protocol.TypeNotificationAction:
		in, err := f.Interaction()
		if err != nil {
			return nil, err
		}
		return &Event{Kind: EventInteraction, Interaction: in}, nil

	case protocol.TypeTick:
		return &Event{Kind: EventTick}, nil

	case protocol.TypePing, protocol.TypeHello:
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFrame, f.Type)
	}
}

// loop — единственная горутина, обрабатывающая события.
func (s *Service) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			err := s.dispatch(ctx, ev)
			if err != nil {
				s.logger.Warn("reminder event failed", "kind", ev.Kind, "error", err)
			}
			if ev.done != nil {
				ev.done <- err
			}
		}
	}
}

// dispatch обрабатывает одно событие. Паника изолирована.
func (s *Service) dispatch(ctx context.Context, ev Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("reminder event panicked",
				"kind", ev.Kind,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("event %s panicked: %v", ev.Kind, p)
		}
	}()

	switch ev.Kind {
	case EventSnapshot:
		s.sched.Ingest(ev.Tasks, ev.Trigger)
		return nil
	case EventInteraction:
		return s.sched.HandleInteraction(ctx, ev.Interaction)
	case EventTick:
		return s.sched.Tick(ctx)
	case EventWake:
		return s.sched.Wake(ctx)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

// Scheduler возвращает обслуживаемый Scheduler.
func (s *Service) Scheduler() *Scheduler {
	return s.sched
}
