package domain

import (
	"testing"
	"time"
)

func TestReminderKey_RoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	key := NewReminderKey("task@with@ats", at)

	id, fireAt, err := key.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id != "task@with@ats" {
		t.Errorf("unexpected task id %q", id)
	}
	if !fireAt.Equal(at) {
		t.Errorf("unexpected fire time %v", fireAt)
	}
	if key.Tag() != "due-task@with@ats" {
		t.Errorf("unexpected tag %q", key.Tag())
	}
}

func TestReminderKey_SameInstantSameKey(t *testing.T) {
	utc := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	msk := utc.In(time.FixedZone("MSK", 3*3600))

	if NewReminderKey("t", utc) != NewReminderKey("t", msk) {
		t.Error("key must not depend on the time zone")
	}
	if NewReminderKey("t", utc) == NewReminderKey("t", utc.Add(time.Millisecond)) {
		t.Error("different instants must give different keys")
	}
}

func TestReminderKey_ParseInvalid(t *testing.T) {
	for _, key := range []ReminderKey{"", "nofiretime", "@123", "t@abc"} {
		if _, _, err := key.Parse(); err == nil {
			t.Errorf("expected error for %q", key)
		}
		if key.TaskID() != "" {
			t.Errorf("TaskID of %q should be empty", key)
		}
	}
}

func TestTask_IsUpcoming(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	horizon := 72 * time.Hour
	deleted := now

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"within horizon", Task{DueAt: now.Add(48 * time.Hour)}, true},
		{"at horizon", Task{DueAt: now.Add(horizon)}, true},
		{"beyond horizon", Task{DueAt: now.Add(horizon + time.Minute)}, false},
		{"due now", Task{DueAt: now}, false},
		{"overdue", Task{DueAt: now.Add(-time.Hour)}, false},
		{"completed", Task{DueAt: now.Add(time.Hour), Completed: true}, false},
		{"deleted", Task{DueAt: now.Add(time.Hour), DeletedAt: &deleted}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.IsUpcoming(now, horizon); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTask_Lifecycle(t *testing.T) {
	task := Task{ID: "t1"}

	task.MarkCompleted()
	if task.IsActive() {
		t.Error("completed task should not be active")
	}
	task.Reopen()
	if !task.IsActive() {
		t.Error("reopened task should be active")
	}

	task.SoftDelete()
	if !task.IsDeleted() || task.IsActive() {
		t.Error("deleted task should not be active")
	}
	task.Restore()
	if task.IsDeleted() {
		t.Error("restored task should not be deleted")
	}
}

func TestClampImportance(t *testing.T) {
	cases := map[int]int{0: 5, -3: 1, 1: 1, 7: 7, 10: 10, 42: 10}
	for in, want := range cases {
		if got := ClampImportance(in); got != want {
			t.Errorf("ClampImportance(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParsePermission(t *testing.T) {
	cases := map[string]Permission{
		"granted": PermissionGranted,
		"denied":  PermissionDenied,
		"default": PermissionDefault,
		"":        PermissionDefault,
		"weird":   PermissionDefault,
	}
	for in, want := range cases {
		if got := ParsePermission(in); got != want {
			t.Errorf("ParsePermission(%q) = %q, want %q", in, got, want)
		}
	}
}
