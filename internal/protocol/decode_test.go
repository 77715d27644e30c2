package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
)

func TestDecodeTasks_SkipsMalformedEntries(t *testing.T) {
	raw := json.RawMessage(`[
		{"id": "a", "title": "Essay", "dueAt": 1700000000000},
		{"title": "no id", "dueAt": 1700000000000},
		{"id": "b", "title": "no due"},
		{"id": "c", "title": "bad due", "dueAt": "tomorrow"},
		{"id": 42, "title": "numeric id", "due": 1700000000500},
		"not an object",
		{"id": "d", "dueAt": "1700000001000", "completed": true}
	]`)

	tasks, skipped, err := DecodeTasks(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d: %+v", len(tasks), tasks)
	}
	if len(skipped) != 4 {
		t.Fatalf("expected 4 skipped entries, got %d: %v", len(skipped), skipped)
	}
	for _, e := range skipped {
		if !errors.Is(e, ErrMalformedTask) {
			t.Errorf("skipped error should wrap ErrMalformedTask: %v", e)
		}
	}

	if tasks[0].ID != "a" || tasks[0].Title != "Essay" {
		t.Errorf("unexpected first task: %+v", tasks[0])
	}
	if !tasks[0].DueAt.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("unexpected due: %v", tasks[0].DueAt)
	}
	if tasks[1].ID != "42" {
		t.Errorf("numeric id should be stringified, got %q", tasks[1].ID)
	}
	if tasks[1].DueAt.UnixMilli() != 1700000000500 {
		t.Errorf("legacy due field should be accepted, got %d", tasks[1].DueAt.UnixMilli())
	}
	if !tasks[2].Completed {
		t.Error("completed flag should be decoded")
	}
}

func TestDecodeTasks_EmptyAndAbsent(t *testing.T) {
	for _, raw := range []string{"", "null", "[]", "  "} {
		tasks, skipped, err := DecodeTasks(json.RawMessage(raw))
		if err != nil {
			t.Errorf("%q: unexpected error: %v", raw, err)
		}
		if len(tasks) != 0 || len(skipped) != 0 {
			t.Errorf("%q: expected empty result, got %v / %v", raw, tasks, skipped)
		}
	}
}

func TestDecodeTasks_NotAnArray(t *testing.T) {
	if _, _, err := DecodeTasks(json.RawMessage(`{"id":"a"}`)); err == nil {
		t.Error("expected error for non-array tasks")
	}
}

func TestNewSetReminders_RoundTripsThroughDecode(t *testing.T) {
	due := time.UnixMilli(1700000000000)
	frame, err := NewSetReminders([]domain.Task{{ID: "x", Title: "Lab report", DueAt: due}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Type != TypeSetReminders {
		t.Errorf("expected SET_REMINDERS, got %s", frame.Type)
	}

	tasks, skipped, err := DecodeTasks(frame.Tasks)
	if err != nil || len(skipped) != 0 {
		t.Fatalf("decode failed: %v %v", err, skipped)
	}
	if len(tasks) != 1 || tasks[0].ID != "x" || !tasks[0].DueAt.Equal(due) {
		t.Errorf("unexpected tasks: %+v", tasks)
	}
}

func TestFrame_Interaction(t *testing.T) {
	var f Frame
	if err := json.Unmarshal([]byte(`{"type":"NOTIFICATION_ACTION","action":"snooze","data":{"taskId":"t1","dueAt":1700000000000}}`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	in, err := f.Interaction()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Action != domain.ActionSnooze || in.TaskID != "t1" {
		t.Errorf("unexpected interaction: %+v", in)
	}

	empty := Frame{Type: TypeNotificationAction}
	if _, err := empty.Interaction(); !errors.Is(err, ErrMissingActionData) {
		t.Errorf("expected ErrMissingActionData, got %v", err)
	}
}
