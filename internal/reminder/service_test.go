package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
	"github.com/shaiso/FocusTasks/internal/protocol"
)

func startService(t *testing.T, caps Capabilities) (*fixture, *Service) {
	t.Helper()

	f := newFixture(t, caps)
	svc := NewService(ServiceConfig{
		Scheduler: f.sched,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return f, svc
}

func snapshotFrame(t *testing.T, typ protocol.MessageType, tasks string) protocol.Frame {
	t.Helper()
	return protocol.Frame{Type: typ, Tasks: json.RawMessage(tasks)}
}

func TestService_WakeThenSnapshot(t *testing.T) {
	f, svc := startService(t, Capabilities{PeriodicSync: true})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	due := testNow.Add(48 * time.Hour).UnixMilli()
	frame := snapshotFrame(t, protocol.TypeSetReminders,
		`[{"id":"t1","title":"Essay","dueAt":`+jsonInt(due)+`},{"id":"bad"}]`)

	ev, err := svc.FrameEvent(frame)
	if err != nil {
		t.Fatalf("FrameEvent: %v", err)
	}
	if ev.Trigger != TriggerPush {
		t.Errorf("expected push trigger, got %s", ev.Trigger)
	}
	if len(ev.Tasks) != 1 {
		t.Fatalf("malformed task should be skipped, got %d tasks", len(ev.Tasks))
	}

	if err := svc.Do(ctx, *ev); err != nil {
		t.Fatalf("Do: %v", err)
	}

	// wake стоял в очереди первым и успел запросить snapshot
	if f.host.Requests() != 1 {
		t.Errorf("expected one snapshot request from wake, got %d", f.host.Requests())
	}
	if got := len(f.sched.Armed()); got != 4 {
		t.Errorf("expected 4 armed reminders, got %d", got)
	}
}

func TestService_TasksSnapshotDefaultsToReply(t *testing.T) {
	_, svc := startService(t, Capabilities{PeriodicSync: true})

	ev, err := svc.FrameEvent(snapshotFrame(t, protocol.TypeTasksSnapshot, `[]`))
	if err != nil {
		t.Fatalf("FrameEvent: %v", err)
	}
	if ev.Trigger != TriggerReply {
		t.Errorf("expected reply trigger, got %s", ev.Trigger)
	}

	frame := snapshotFrame(t, protocol.TypeSetReminders, `[]`)
	frame.Trigger = "tick"
	ev, _ = svc.FrameEvent(frame)
	if ev.Trigger != TriggerTick {
		t.Errorf("explicit trigger should win, got %s", ev.Trigger)
	}
}

func TestService_FrameEventKinds(t *testing.T) {
	_, svc := startService(t, Capabilities{PeriodicSync: true})

	ev, err := svc.FrameEvent(protocol.Frame{
		Type:   protocol.TypeNotificationAction,
		Action: "snooze",
		Data:   &protocol.ActionData{TaskID: "t1", DueAt: testNow.UnixMilli()},
	})
	if err != nil {
		t.Fatalf("FrameEvent(action): %v", err)
	}
	if ev.Kind != EventInteraction || ev.Interaction.Action != domain.ActionSnooze {
		t.Errorf("unexpected interaction event %+v", ev)
	}

	if _, err := svc.FrameEvent(protocol.Frame{Type: protocol.TypeNotificationAction}); err == nil {
		t.Error("action without data should fail")
	}

	if ev, _ := svc.FrameEvent(protocol.Frame{Type: protocol.TypeTick}); ev == nil || ev.Kind != EventTick {
		t.Errorf("expected tick event, got %+v", ev)
	}

	for _, typ := range []protocol.MessageType{protocol.TypePing, protocol.TypeHello} {
		ev, err := svc.FrameEvent(protocol.Frame{Type: typ})
		if err != nil || ev != nil {
			t.Errorf("%s should be ignored, got %+v, %v", typ, ev, err)
		}
	}

	if _, err := svc.FrameEvent(protocol.Frame{Type: "BOGUS"}); !errors.Is(err, ErrUnsupportedFrame) {
		t.Errorf("expected ErrUnsupportedFrame, got %v", err)
	}
}

func TestService_InteractionThroughQueue(t *testing.T) {
	f, svc := startService(t, Capabilities{PeriodicSync: true})
	ctx := context.Background()

	err := svc.Do(ctx, Event{
		Kind:        EventInteraction,
		Interaction: domain.Interaction{Action: domain.ActionSnooze, TaskID: "t1"},
	})
	if err != nil {
		t.Fatalf("Do(snooze): %v", err)
	}
	if len(f.sched.Armed()) != 1 {
		t.Errorf("expected snooze to arm one reminder, got %d", len(f.sched.Armed()))
	}

	f.host.focusErr = errors.New("no window")
	err = svc.Do(ctx, Event{
		Kind:        EventInteraction,
		Interaction: domain.Interaction{Action: domain.ActionOpen, TaskID: "t1"},
	})
	if err == nil {
		t.Error("expected focus error to be reported through Do")
	}
}

func TestService_HandleFrameQueuesInOrder(t *testing.T) {
	f, svc := startService(t, Capabilities{PeriodicSync: true})
	ctx := context.Background()

	due := jsonInt(testNow.Add(48 * time.Hour).UnixMilli())
	if err := svc.HandleFrame(ctx, snapshotFrame(t, protocol.TypeSetReminders,
		`[{"id":"a","dueAt":`+due+`},{"id":"b","dueAt":`+due+`}]`)); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}
	if err := svc.HandleFrame(ctx, snapshotFrame(t, protocol.TypeSetReminders,
		`[{"id":"a","dueAt":`+due+`}]`)); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}

	// барьер: tick обрабатывается после обоих snapshot'ов
	if err := svc.Do(ctx, Event{Kind: EventTick}); err != nil {
		t.Fatalf("Do(tick): %v", err)
	}

	for _, r := range f.sched.Armed() {
		if r.Task.ID != "a" {
			t.Errorf("later snapshot should win, found %s", r.Key)
		}
	}
	if len(f.sched.Armed()) != 4 {
		t.Errorf("expected 4 reminders for a, got %d", len(f.sched.Armed()))
	}
}

func TestService_LivenessTickScheduled(t *testing.T) {
	_, svc := startService(t, Capabilities{PeriodicSync: false})

	if svc.cron == nil {
		t.Fatal("cron should be configured without periodic sync")
	}
	if entries := svc.cron.Entries(); len(entries) != 1 {
		t.Errorf("expected one liveness entry, got %d", len(entries))
	}
}

func TestService_StopCancelsTimers(t *testing.T) {
	f, svc := startService(t, Capabilities{PeriodicSync: true})
	ctx := context.Background()

	err := svc.Do(ctx, Event{
		Kind:    EventSnapshot,
		Tasks:   []domain.Task{{ID: "t1", DueAt: testNow.Add(48 * time.Hour)}},
		Trigger: TriggerPush,
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	svc.Stop()

	if f.clock.Pending() != 0 {
		t.Errorf("expected all timers cancelled, got %d", f.clock.Pending())
	}
	if err := svc.Submit(ctx, Event{Kind: EventTick}); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
