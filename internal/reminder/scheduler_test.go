package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
)

type recordingNotifier struct {
	mu    sync.Mutex
	shown []domain.Notification
	err   error
	panic bool
}

func (n *recordingNotifier) Notify(_ context.Context, notification domain.Notification) error {
	if n.panic {
		panic("notification surface crashed")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.shown = append(n.shown, notification)
	return nil
}

func (n *recordingNotifier) Shown() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.shown...)
}

type stubHost struct {
	mu        sync.Mutex
	requests  int
	focused   []string
	focusErr  error
	requestFn func() error
}

func (h *stubHost) RequestSnapshot(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests++
	if h.requestFn != nil {
		return h.requestFn()
	}
	return nil
}

func (h *stubHost) FocusOrOpen(_ context.Context, taskID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.focusErr != nil {
		return h.focusErr
	}
	h.focused = append(h.focused, taskID)
	return nil
}

func (h *stubHost) Requests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

type fixture struct {
	clock    *fakeClock
	notifier *recordingNotifier
	host     *stubHost
	sched    *Scheduler
}

func newFixture(t *testing.T, caps Capabilities) *fixture {
	t.Helper()

	f := &fixture{
		clock:    newFakeClock(testNow),
		notifier: &recordingNotifier{},
		host:     &stubHost{},
	}

	sched, err := New(Config{
		Policy:       testPolicy(),
		Clock:        f.clock,
		Notifier:     f.notifier,
		Host:         f.host,
		Capabilities: caps,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.sched = sched
	return f
}

func armedKeys(rs []domain.Reminder) map[domain.ReminderKey]bool {
	out := make(map[domain.ReminderKey]bool, len(rs))
	for _, r := range rs {
		out[r.Key] = true
	}
	return out
}

func TestScheduler_NoDuplicateTimers(t *testing.T) {
	f := newFixture(t, Capabilities{})
	tasks := []domain.Task{{ID: "t1", Title: "Essay", DueAt: testNow.Add(48 * time.Hour)}}

	first := f.sched.Ingest(tasks, TriggerPush)
	second := f.sched.Ingest(tasks, TriggerTick)

	if first.Armed != 4 {
		t.Errorf("expected 4 armed on first ingest, got %d", first.Armed)
	}
	if second.Armed != 0 || second.Cancelled != 0 {
		t.Errorf("identical snapshot should be a no-op, got %+v", second)
	}
	if f.clock.Pending() != 4 {
		t.Errorf("expected 4 live timers, got %d", f.clock.Pending())
	}
}

func TestScheduler_IdempotentIngestKeepsHandles(t *testing.T) {
	f := newFixture(t, Capabilities{})
	tasks := []domain.Task{{ID: "t1", DueAt: testNow.Add(5 * 24 * time.Hour)}}

	f.sched.Ingest(tasks, TriggerPush)
	before := map[domain.ReminderKey]uint64{}
	for _, r := range f.sched.Armed() {
		h, _ := f.sched.timers.Handle(r.Key)
		before[r.Key] = h
	}

	f.sched.Ingest(tasks, TriggerPush)

	for key, h := range before {
		got, ok := f.sched.timers.Handle(key)
		if !ok || got != h {
			t.Errorf("timer %s was replaced", key)
		}
	}
}

func TestScheduler_StaleRemindersCancelled(t *testing.T) {
	f := newFixture(t, Capabilities{})

	f.sched.Ingest([]domain.Task{
		{ID: "a", DueAt: testNow.Add(48 * time.Hour)},
		{ID: "b", DueAt: testNow.Add(48 * time.Hour)},
	}, TriggerPush)
	k1 := armedKeys(f.sched.Armed())

	f.sched.Ingest([]domain.Task{
		{ID: "a", DueAt: testNow.Add(48 * time.Hour)},
	}, TriggerPush)
	k2 := armedKeys(f.sched.Armed())

	for key := range k1 {
		if key.TaskID() == "b" && k2[key] {
			t.Errorf("reminder %s for removed task still armed", key)
		}
		if key.TaskID() == "a" && !k2[key] {
			t.Errorf("reminder %s for kept task was cancelled", key)
		}
	}

	f.clock.Advance(72 * time.Hour)
	for _, n := range f.notifier.Shown() {
		if n.Data.TaskID == "b" {
			t.Errorf("cancelled reminder for b fired: %+v", n)
		}
	}
}

func TestScheduler_CompletedTaskCancelsReminders(t *testing.T) {
	f := newFixture(t, Capabilities{})
	task := domain.Task{ID: "t1", DueAt: testNow.Add(48 * time.Hour)}

	f.sched.Ingest([]domain.Task{task}, TriggerPush)
	task.Completed = true
	res := f.sched.Ingest([]domain.Task{task}, TriggerPush)

	if res.Cancelled != 4 {
		t.Errorf("expected all 4 reminders cancelled, got %d", res.Cancelled)
	}
	if len(f.sched.Armed()) != 0 {
		t.Errorf("expected no armed reminders, got %v", f.sched.Armed())
	}

	f.clock.Advance(72 * time.Hour)
	if shown := f.notifier.Shown(); len(shown) != 0 {
		t.Errorf("completed task must not notify, got %d", len(shown))
	}
}

func TestScheduler_DueMovedEarlier(t *testing.T) {
	f := newFixture(t, Capabilities{})

	f.sched.Ingest([]domain.Task{{ID: "t1", DueAt: testNow.Add(5 * 24 * time.Hour)}}, TriggerPush)
	f.sched.Ingest([]domain.Task{{ID: "t1", DueAt: testNow.Add(48 * time.Hour)}}, TriggerPush)

	armed := f.sched.Armed()
	assertTimes(t, fireTimes(armed), []time.Time{
		utc(3, 10, 12),
		utc(3, 11, 0),
		utc(3, 11, 12),
		utc(3, 12, 0),
	})
	for _, r := range armed {
		if r.Kind != domain.ReminderKindHeartbeat {
			t.Errorf("old due-soon reminder still armed: %s", r.Key)
		}
	}
}

func TestScheduler_FiresNotification(t *testing.T) {
	f := newFixture(t, Capabilities{})
	due := testNow.Add(5 * 24 * time.Hour)
	f.sched.Ingest([]domain.Task{{ID: "t1", Title: "Exam", DueAt: due}}, TriggerPush)

	f.clock.Advance(48 * time.Hour) // ровно dueAt − 3d

	shown := f.notifier.Shown()
	if len(shown) != 1 {
		t.Fatalf("expected one notification, got %d", len(shown))
	}
	n := shown[0]
	if n.Title != "Task due soon" || n.Tag != "due-t1" || n.Data.DueAt != due.UnixMilli() {
		t.Errorf("unexpected notification %+v", n)
	}
	if len(f.sched.Armed()) != 2 {
		t.Errorf("fired reminder should leave the set, armed=%d", len(f.sched.Armed()))
	}
}

func TestScheduler_SnoozeSurvivesUnrelatedSnapshot(t *testing.T) {
	f := newFixture(t, Capabilities{})
	tasks := []domain.Task{
		{ID: "t1", Title: "Essay", DueAt: testNow.Add(48 * time.Hour)},
		{ID: "t2", Title: "Quiz", DueAt: testNow.Add(10 * 24 * time.Hour)},
	}
	f.sched.Ingest(tasks, TriggerPush)

	err := f.sched.HandleInteraction(context.Background(), domain.Interaction{
		Action: domain.ActionSnooze,
		TaskID: "t1",
		DueAt:  tasks[0].DueAt,
	})
	if err != nil {
		t.Fatalf("snooze: %v", err)
	}

	f.clock.Advance(30 * time.Minute)
	f.sched.Ingest(tasks, TriggerTick)

	f.clock.Advance(30 * time.Minute)

	var snoozed int
	for _, n := range f.notifier.Shown() {
		if n.Data.TaskID == "t1" && n.Title == "Task due soon" {
			snoozed++
		}
	}
	if snoozed != 1 {
		t.Errorf("expected the snoozed reminder to fire once at now+1h, got %d", snoozed)
	}
}

func TestScheduler_SnoozeCancelledWhenTaskCompleted(t *testing.T) {
	f := newFixture(t, Capabilities{})
	task := domain.Task{ID: "t1", DueAt: testNow.Add(48 * time.Hour)}
	f.sched.Ingest([]domain.Task{task}, TriggerPush)

	r, err := f.sched.Snooze("t1", task.DueAt)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if !r.FireAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("snooze should fire at now+1h, got %v", r.FireAt)
	}

	task.Completed = true
	f.sched.Ingest([]domain.Task{task}, TriggerPush)

	if _, ok := f.sched.timers.Handle(r.Key); ok {
		t.Error("snooze for completed task should be cancelled")
	}
	f.clock.Advance(2 * time.Hour)
	if len(f.notifier.Shown()) != 0 {
		t.Error("no notification expected after completion")
	}
}

func TestScheduler_SnoozeUnknownTask(t *testing.T) {
	f := newFixture(t, Capabilities{})

	r, err := f.sched.Snooze("ghost", testNow.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}
	if r.Task.Title != "Task" {
		t.Errorf("unknown task should get a placeholder title, got %q", r.Task.Title)
	}

	if _, err := f.sched.Snooze("", testNow); !errors.Is(err, ErrMissingTaskID) {
		t.Errorf("expected ErrMissingTaskID, got %v", err)
	}
}

func TestScheduler_OpenFocusesClient(t *testing.T) {
	f := newFixture(t, Capabilities{})

	for _, action := range []domain.Action{domain.ActionOpen, domain.ActionDefault} {
		err := f.sched.HandleInteraction(context.Background(), domain.Interaction{Action: action, TaskID: "t1"})
		if err != nil {
			t.Fatalf("HandleInteraction(%q): %v", action, err)
		}
	}

	if len(f.host.focused) != 2 {
		t.Errorf("expected 2 focus requests, got %v", f.host.focused)
	}
	if f.clock.Pending() != 0 {
		t.Error("open must not arm timers")
	}

	f.host.focusErr = errors.New("no window")
	err := f.sched.HandleInteraction(context.Background(), domain.Interaction{Action: domain.ActionOpen, TaskID: "t1"})
	if err == nil {
		t.Error("expected host error to propagate")
	}
}

func TestScheduler_PermissionDeniedSuppressesEmission(t *testing.T) {
	perm := domain.PermissionDenied
	var mu sync.Mutex
	f := newFixture(t, Capabilities{Permission: func() domain.Permission {
		mu.Lock()
		defer mu.Unlock()
		return perm
	}})

	f.sched.Ingest([]domain.Task{{ID: "t1", DueAt: testNow.Add(48 * time.Hour)}}, TriggerPush)

	f.clock.Advance(3 * time.Hour) // 12:00
	if len(f.notifier.Shown()) != 0 {
		t.Error("notification shown without permission")
	}
	if len(f.sched.Armed()) != 3 {
		t.Errorf("timer should still fire and leave the set, armed=%d", len(f.sched.Armed()))
	}

	mu.Lock()
	perm = domain.PermissionGranted
	mu.Unlock()

	f.clock.Advance(12 * time.Hour)
	if len(f.notifier.Shown()) != 1 {
		t.Errorf("expected one notification after grant, got %d", len(f.notifier.Shown()))
	}
}

func TestScheduler_NotifierFailureIsolated(t *testing.T) {
	f := newFixture(t, Capabilities{})
	f.notifier.err = errors.New("surface unavailable")

	f.sched.Ingest([]domain.Task{{ID: "t1", DueAt: testNow.Add(48 * time.Hour)}}, TriggerPush)
	f.clock.Advance(3 * time.Hour)

	if len(f.sched.Armed()) != 3 {
		t.Errorf("other timers must survive a failing notifier, armed=%d", len(f.sched.Armed()))
	}

	f.notifier.panic = true
	f.clock.Advance(12 * time.Hour)

	if len(f.sched.Armed()) != 2 {
		t.Errorf("other timers must survive a panicking notifier, armed=%d", len(f.sched.Armed()))
	}

	// после паники планировщик продолжает работать
	res := f.sched.Ingest([]domain.Task{{ID: "t2", DueAt: testNow.Add(5 * 24 * time.Hour)}}, TriggerPush)
	if res.Cancelled != 2 {
		t.Errorf("expected 2 cancelled, got %+v", res)
	}
}

func TestScheduler_EmptySnapshotCancelsAll(t *testing.T) {
	f := newFixture(t, Capabilities{})
	f.sched.Ingest([]domain.Task{
		{ID: "a", DueAt: testNow.Add(48 * time.Hour)},
		{ID: "b", DueAt: testNow.Add(5 * 24 * time.Hour)},
	}, TriggerPush)
	f.sched.Snooze("a", testNow.Add(48*time.Hour))

	res := f.sched.Ingest(nil, TriggerPush)

	if len(f.sched.Armed()) != 0 {
		t.Errorf("expected nothing armed, got %d (result %+v)", len(f.sched.Armed()), res)
	}
	if f.clock.Pending() != 0 {
		t.Errorf("expected no live timers, got %d", f.clock.Pending())
	}
}

func TestScheduler_WakeRequestsSnapshotOnlyWhenEmpty(t *testing.T) {
	f := newFixture(t, Capabilities{})
	ctx := context.Background()

	if err := f.sched.Wake(ctx); err != nil {
		t.Fatalf("Wake: %v", err)
	}
	if f.host.Requests() != 1 {
		t.Errorf("expected a snapshot request on cold wake, got %d", f.host.Requests())
	}

	f.sched.Ingest(nil, TriggerReply)
	if err := f.sched.Wake(ctx); err != nil {
		t.Fatalf("Wake: %v", err)
	}
	if f.host.Requests() != 1 {
		t.Errorf("wake after a snapshot must not request again, got %d", f.host.Requests())
	}

	if err := f.sched.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if f.host.Requests() != 2 {
		t.Errorf("tick should always request a snapshot, got %d", f.host.Requests())
	}
}

func TestScheduler_TickPropagatesHostError(t *testing.T) {
	f := newFixture(t, Capabilities{})
	f.host.requestFn = func() error { return errors.New("offline") }

	if err := f.sched.Tick(context.Background()); err == nil {
		t.Error("expected error from host")
	}
}

func TestNew_InvalidPolicy(t *testing.T) {
	p := testPolicy()
	p.Threshold = 0

	if _, err := New(Config{Policy: p}); !errors.Is(err, ErrInvalidPolicy) {
		t.Errorf("expected ErrInvalidPolicy, got %v", err)
	}
}

// laggingClock отдаёт замороженное время, пока frozen задан: так
// выглядит Ingest, прочитавший now до срабатывания таймера.
type laggingClock struct {
	*fakeClock

	lagMu  sync.Mutex
	frozen time.Time
}

func (c *laggingClock) Now() time.Time {
	c.lagMu.Lock()
	frozen := c.frozen
	c.lagMu.Unlock()
	if !frozen.IsZero() {
		return frozen
	}
	return c.fakeClock.Now()
}

func (c *laggingClock) Freeze(at time.Time) {
	c.lagMu.Lock()
	defer c.lagMu.Unlock()
	c.frozen = at
}

func TestScheduler_FiredKeyNotRearmedWithStaleNow(t *testing.T) {
	clock := &laggingClock{fakeClock: newFakeClock(testNow)}
	notifier := &recordingNotifier{}
	sched, err := New(Config{
		Policy:   testPolicy(),
		Clock:    clock,
		Notifier: notifier,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tasks := []domain.Task{{ID: "t1", Title: "Essay", DueAt: testNow.Add(48 * time.Hour)}}
	sched.Ingest(tasks, TriggerPush)

	// первый heartbeat в 12:00 срабатывает
	clock.Advance(3 * time.Hour)
	if n := len(notifier.Shown()); n != 1 {
		t.Fatalf("expected first heartbeat shown, got %d", n)
	}

	// тот же snapshot с now, прочитанным до срабатывания
	clock.Freeze(testNow)
	res := sched.Ingest(tasks, TriggerTick)
	clock.Freeze(time.Time{})

	if res.Armed != 0 {
		t.Errorf("fired reminder must not be re-armed, armed=%d", res.Armed)
	}

	clock.Advance(6 * time.Hour)
	if n := len(notifier.Shown()); n != 1 {
		t.Errorf("expected one notification for the fired key, got %d", n)
	}
	if len(sched.Armed()) != 3 {
		t.Errorf("remaining heartbeats should stay armed, got %d", len(sched.Armed()))
	}
}

func TestScheduler_SnoozeReplacesPrevious(t *testing.T) {
	f := newFixture(t, Capabilities{})
	task := domain.Task{ID: "t1", DueAt: testNow.Add(10 * 24 * time.Hour)}
	f.sched.Ingest([]domain.Task{task}, TriggerPush)

	first, err := f.sched.Snooze("t1", task.DueAt)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}

	f.clock.Advance(20 * time.Minute)
	second, err := f.sched.Snooze("t1", task.DueAt)
	if err != nil {
		t.Fatalf("Snooze: %v", err)
	}

	if _, ok := f.sched.timers.Handle(first.Key); ok {
		t.Error("previous snooze should be cancelled")
	}
	if _, ok := f.sched.timers.Handle(second.Key); !ok {
		t.Error("new snooze should be armed")
	}

	f.clock.Advance(2 * time.Hour)
	if n := len(f.notifier.Shown()); n != 1 {
		t.Errorf("expected exactly one snoozed notification, got %d", n)
	}
}
