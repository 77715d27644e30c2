package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
	"github.com/shaiso/FocusTasks/internal/telemetry"
)

const defaultEmitTimeout = 5 * time.Second

// Trigger — источник snapshot'а.
type Trigger string

const (
	// TriggerPush — явная отправка после изменения задачи.
	TriggerPush Trigger = "push"

	// TriggerTick — периодический liveness tick.
	TriggerTick Trigger = "tick"

	// TriggerReply — ответ на REQUEST_SNAPSHOT.
	TriggerReply Trigger = "reply"
)

// ParseTrigger парсит строку в Trigger. Пустое или неизвестное значение — def.
func ParseTrigger(s string, def Trigger) Trigger {
	switch Trigger(s) {
	case TriggerPush, TriggerTick, TriggerReply:
		return Trigger(s)
	default:
		return def
	}
}

// Scheduler — планировщик напоминаний.
//
// Scheduler не хранит ничего на диске: всё состояние пересобирается из
// последнего snapshot'а. Каждый Ingest сначала отменяет устаревшие
// таймеры, потом взводит новые, так что ключ, пропавший и вернувшийся
// между двумя snapshot'ами, не оставляет двух живых таймеров.
type Scheduler struct {
	planner     *Planner
	policy      Policy
	clock       Clock
	timers      *TimerSet
	notifier    Notifier
	host        Host
	caps        Capabilities
	logger      *slog.Logger
	emitTimeout time.Duration

	mu          sync.Mutex
	snoozes     map[domain.ReminderKey]string // ключ → ID задачи
	known       map[string]domain.TaskSnapshot
	hasSnapshot bool
}

// Config — конфигурация Scheduler.
type Config struct {
	Policy       Policy
	Clock        Clock    // default: RealClock()
	Notifier     Notifier // опционально
	Host         Host     // опционально
	Capabilities Capabilities
	Logger       *slog.Logger
	EmitTimeout  time.Duration // таймаут одного вызова Notifier (default: 5s)
}

// New создаёт новый Scheduler.
func New(cfg Config) (*Scheduler, error) {
	planner, err := NewPlanner(cfg.Policy)
	if err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = RealClock()
	}

	notifier := cfg.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	host := cfg.Host
	if host == nil {
		host = nopHost{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	emitTimeout := cfg.EmitTimeout
	if emitTimeout <= 0 {
		emitTimeout = defaultEmitTimeout
	}

	return &Scheduler{
		planner:     planner,
		policy:      cfg.Policy,
		clock:       clock,
		timers:      NewTimerSet(clock),
		notifier:    notifier,
		host:        host,
		caps:        cfg.Capabilities,
		logger:      logger,
		emitTimeout: emitTimeout,
		snoozes:     make(map[domain.ReminderKey]string),
		known:       make(map[string]domain.TaskSnapshot),
	}, nil
}

// IngestResult — итог обработки одного snapshot'а.
type IngestResult struct {
	Tasks     int // задач в snapshot'е
	Valid     int // ключей в вычисленном наборе (включая snooze)
	Armed     int // взведено новых таймеров
	Cancelled int // отменено устаревших
}

// Ingest принимает полный snapshot задач.
//
// 1. Вычисляет набор напоминаний (Planner.Plan)
// 2. Добавляет snooze-напоминания, чья задача всё ещё активна
// 3. Отменяет таймеры вне набора (Reconcile)
// 4. Взводит недостающие (ArmOnce)
//
// Пустой snapshot отменяет все таймеры.
func (s *Scheduler) Ingest(tasks []domain.Task, trigger Trigger) IngestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	planned := s.planner.Plan(tasks, now)

	active := make(map[string]domain.TaskSnapshot, len(tasks))
	for i := range tasks {
		if tasks[i].ID == "" || tasks[i].Completed {
			continue
		}
		active[tasks[i].ID] = tasks[i].Snapshot()
	}

	valid := make(map[domain.ReminderKey]struct{}, len(planned)+len(s.snoozes))
	for _, r := range planned {
		valid[r.Key] = struct{}{}
	}

	// snooze переживает reconcile, пока задача активна
	for key, taskID := range s.snoozes {
		_, fireAt, err := key.Parse()
		if _, ok := active[taskID]; ok && err == nil && fireAt.After(now) {
			valid[key] = struct{}{}
			continue
		}
		delete(s.snoozes, key)
	}

	// Сначала отмена, потом взвод
	cancelled := s.timers.Reconcile(valid)

	// now мог устареть, пока шёл пересчёт: задержку считаем заново,
	// а уже сработавшие ключи TimerSet не взводит
	armed := 0
	for _, r := range planned {
		delay := r.FireAt.Sub(s.clock.Now())
		if delay <= 0 {
			continue
		}
		if s.timers.ArmOnce(r, delay, s.fire) {
			armed++
		}
	}

	s.known = active
	s.hasSnapshot = true

	telemetry.SnapshotsIngestedTotal.WithLabelValues(string(trigger)).Inc()
	telemetry.RemindersArmedTotal.Add(float64(armed))
	telemetry.RemindersCancelledTotal.Add(float64(cancelled))
	telemetry.RemindersArmed.Set(float64(s.timers.Len()))

	result := IngestResult{
		Tasks:     len(tasks),
		Valid:     len(valid),
		Armed:     armed,
		Cancelled: cancelled,
	}

	s.logger.Info("snapshot ingested",
		"trigger", trigger,
		"tasks", result.Tasks,
		"reminders", result.Valid,
		"armed", result.Armed,
		"cancelled", result.Cancelled,
	)

	return result
}

// Snooze взводит однократное напоминание через SnoozeDuration для задачи.
//
// Напоминание добавляется напрямую, минуя полный пересчёт, и не
// отменяется следующими snapshot'ами, пока задача в них активна.
// Предыдущий snooze той же задачи отменяется.
func (s *Scheduler) Snooze(taskID string, dueAt time.Time) (domain.Reminder, error) {
	if taskID == "" {
		return domain.Reminder{}, ErrMissingTaskID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	fireAt := now.Add(s.policy.SnoozeDuration)

	snap, ok := s.known[taskID]
	if !ok {
		snap = domain.TaskSnapshot{ID: taskID, Title: "Task", DueAt: dueAt}
	}

	r := domain.Reminder{
		Key:    domain.NewReminderKey(taskID, fireAt),
		Kind:   domain.ReminderKindSnooze,
		FireAt: fireAt,
		Task:   snap,
	}

	// повторный snooze заменяет предыдущий: у задачи один отложенный таймер
	for key, id := range s.snoozes {
		if id == taskID && key != r.Key {
			s.timers.Cancel(key)
			delete(s.snoozes, key)
		}
	}

	if s.timers.ArmOnce(r, s.policy.SnoozeDuration, s.fire) {
		s.snoozes[r.Key] = taskID
		telemetry.RemindersArmedTotal.Inc()
		telemetry.RemindersArmed.Set(float64(s.timers.Len()))
	}

	telemetry.WithReminderKey(s.logger, string(r.Key)).Info("reminder snoozed",
		"task_id", taskID,
		"fire_at", fireAt,
	)

	return r, nil
}

// HandleInteraction обрабатывает действие пользователя над уведомлением.
//
//   - open / клик по уведомлению — сфокусировать окно клиента или
//     открыть новое; терминальное действие, таймеры не трогает;
//   - snooze — одно новое напоминание через SnoozeDuration.
func (s *Scheduler) HandleInteraction(ctx context.Context, in domain.Interaction) error {
	action := in.Action
	if action != domain.ActionSnooze {
		action = domain.ActionOpen
	}
	telemetry.InteractionsTotal.WithLabelValues(string(action)).Inc()

	if action == domain.ActionSnooze {
		_, err := s.Snooze(in.TaskID, in.DueAt)
		return err
	}

	if err := s.host.FocusOrOpen(ctx, in.TaskID); err != nil {
		return fmt.Errorf("focus or open client: %w", err)
	}
	return nil
}

// Wake вызывается при старте процесса. Если snapshot'а ещё нет,
// просит Task Source прислать его.
func (s *Scheduler) Wake(ctx context.Context) error {
	s.mu.Lock()
	has := s.hasSnapshot
	s.mu.Unlock()

	if has {
		return nil
	}
	return s.requestSnapshot(ctx, "wake")
}

// Tick — liveness tick: запрашивает свежий snapshot.
func (s *Scheduler) Tick(ctx context.Context) error {
	return s.requestSnapshot(ctx, "tick")
}

func (s *Scheduler) requestSnapshot(ctx context.Context, reason string) error {
	s.logger.Debug("requesting task snapshot", "reason", reason)

	if err := s.host.RequestSnapshot(ctx); err != nil {
		return fmt.Errorf("request snapshot: %w", err)
	}
	return nil
}

// CancelAll отменяет все таймеры и отложенные напоминания.
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := s.timers.CancelAll()
	clear(s.snoozes)

	telemetry.RemindersCancelledTotal.Add(float64(cancelled))
	telemetry.RemindersArmed.Set(0)
	return cancelled
}

// Armed возвращает копию взведённых напоминаний.
func (s *Scheduler) Armed() []domain.Reminder {
	return s.timers.Armed()
}

// HasSnapshot сообщает, получен ли хотя бы один snapshot.
func (s *Scheduler) HasSnapshot() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSnapshot
}

// Policy возвращает политику напоминаний.
func (s *Scheduler) Policy() Policy {
	return s.policy
}

// fire — callback сработавшего таймера. Запись в TimerSet к этому
// моменту уже удалена. Паника в callback'е не роняет процесс.
func (s *Scheduler) fire(r domain.Reminder) {
	logger := telemetry.WithReminderKey(s.logger, string(r.Key))

	defer func() {
		if p := recover(); p != nil {
			logger.Error("reminder callback panicked",
				"panic", p,
				"stack", string(debug.Stack()),
			)
		}
	}()

	s.mu.Lock()
	delete(s.snoozes, r.Key)
	s.mu.Unlock()

	telemetry.RemindersFiredTotal.WithLabelValues(string(r.Kind)).Inc()
	telemetry.RemindersArmed.Set(float64(s.timers.Len()))

	logger.Info("reminder fired",
		"task_id", r.Task.ID,
		"kind", r.Kind,
		"fire_at", r.FireAt,
	)

	s.emit(logger, r)
}

// emit показывает уведомление. Без разрешения — no-op: таймеры всё
// равно срабатывают, и после выдачи разрешения следующие дойдут.
func (s *Scheduler) emit(logger *slog.Logger, r domain.Reminder) {
	if perm := s.caps.permission(); perm != domain.PermissionGranted {
		telemetry.NotificationsTotal.WithLabelValues("suppressed").Inc()
		logger.Debug("notification suppressed", "permission", perm)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.emitTimeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, s.planner.Notification(r)); err != nil {
		telemetry.NotificationsTotal.WithLabelValues("failed").Inc()
		logger.Warn("failed to show notification", "error", err)
		return
	}

	telemetry.NotificationsTotal.WithLabelValues("sent").Inc()
}
