package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestParseDue(t *testing.T) {
	loc := time.FixedZone("TEST", 3*60*60)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"+48h", now.Add(48 * time.Hour)},
		{"+90m", now.Add(90 * time.Minute)},
		{"2026-03-12T18:00:00Z", time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)},
		{"2026-03-12 18:00", time.Date(2026, 3, 12, 18, 0, 0, 0, loc)},
		{"2026-03-12", time.Date(2026, 3, 12, 23, 59, 0, 0, loc)},
	}

	for _, tt := range tests {
		got, err := parseDue(tt.in, now)
		if err != nil {
			t.Errorf("parseDue(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "tomorrow", "+soon", "12/03/2026"} {
		if _, err := parseDue(bad, now); err == nil {
			t.Errorf("parseDue(%q): expected error", bad)
		}
	}
}

func TestShortDuration(t *testing.T) {
	tests := map[time.Duration]string{
		57*time.Hour + 10*time.Minute: "2d9h",
		3*time.Hour + 5*time.Minute:   "3h5m",
		12 * time.Minute:              "12m",
		0:                             "0m",
	}
	for d, want := range tests {
		if got := shortDuration(d); got != want {
			t.Errorf("shortDuration(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestClient_ListTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/tasks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("completed"); got != "false" {
			t.Errorf("expected completed=false, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"t1","title":"Essay","dueAt":1773306000000,"importance":5}],"total":1}`))
	}))
	defer srv.Close()

	completed := false
	tasks, err := NewClient(srv.URL).ListTasks(ListTasksOpts{Completed: &completed})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "t1" || tasks[0].Due().UnixMilli() != 1773306000000 {
		t.Errorf("unexpected tasks %+v", tasks)
	}
}

func TestClient_CreateTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if r.Method != http.MethodPost || req.Title != "Essay" || req.DueAt == nil {
			t.Errorf("unexpected request %s %+v", r.Method, req)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"id": "t1", "title": req.Title, "dueAt": *req.DueAt, "importance": 5,
		}})
	}))
	defer srv.Close()

	due := int64(1773306000000)
	task, err := NewClient(srv.URL).CreateTask(CreateTaskRequest{Title: "Essay", DueAt: &due})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.ID != "t1" || task.DueAt != due {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestClient_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"task not found"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetTask("missing")
	if err == nil || err.Error() != "NOT_FOUND: task not found" {
		t.Errorf("unexpected error %v", err)
	}

	if err := NewClient(srv.URL).DeleteTask("missing"); err == nil {
		t.Error("expected delete error")
	}
}

func TestOutput_Table(t *testing.T) {
	var stdout, stderr bytes.Buffer
	out := newOutputTo(false, &stdout, &stderr)

	out.Print([]string{"ID", "TITLE"}, [][]string{{"t1", "Essay"}}, nil)
	out.Success("done")

	want := "ID  TITLE\n--  -----\nt1  Essay\n"
	if stdout.String() != want {
		t.Errorf("unexpected table:\n%s", stdout.String())
	}
	if stderr.String() != "done\n" {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestWatcher(t *testing.T) {
	resynced := make(chan struct{}, 1)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/reminders/resync" {
			resynced <- struct{}{}
		}
		w.Write([]byte(`{"data":{"tasks":2}}`))
	}))
	defer api.Close()

	hello := make(chan watchFrame, 1)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		var f watchFrame
		if err := wsjson.Read(r.Context(), conn, &f); err != nil {
			return
		}
		hello <- f

		n := &notification{Title: "Task due soon", Body: `"Essay" is due soon`}
		n.Data.TaskID = "t1"
		wsjson.Write(r.Context(), conn, watchFrame{Type: "NOTIFY", Notification: n})
		wsjson.Write(r.Context(), conn, watchFrame{Type: "REQUEST_SNAPSHOT"})

		// держим соединение, пока клиент не уйдёт
		conn.Read(r.Context())
	}))
	defer gw.Close()

	var stdout, stderr bytes.Buffer
	w := &watcher{client: NewClient(api.URL), out: newOutputTo(false, &stdout, &stderr)}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.run(ctx, "ws"+strings.TrimPrefix(gw.URL, "http")) }()

	select {
	case f := <-hello:
		if f.Type != "HELLO" || f.Permission != "granted" {
			t.Errorf("unexpected hello %+v", f)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for hello")
	}

	select {
	case <-resynced:
	case <-ctx.Done():
		t.Fatal("timeout waiting for resync")
	}

	cancel()
	<-done

	if !strings.Contains(stdout.String(), `"Essay" is due soon`) {
		t.Errorf("notification not printed: %q", stdout.String())
	}
}

func TestConfigCmd(t *testing.T) {
	var checked string
	check := func(path string) error {
		checked = path
		if path == "bad.yaml" {
			return errors.New("invalid config")
		}
		return nil
	}
	var errOut bytes.Buffer
	outputFn := func() *Output { return newOutputTo(false, &bytes.Buffer{}, &errOut) }

	cmd := NewConfigCmd(func() string { return "policy:\n  threshold: 72h\n" }, check, outputFn)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})

	cmd.SetArgs([]string{"example"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("example: %v", err)
	}
	if !strings.Contains(stdout.String(), "threshold: 72h") {
		t.Errorf("example not printed: %q", stdout.String())
	}

	cmd.SetArgs([]string{"check", "focus.yaml"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("check: %v", err)
	}
	if checked != "focus.yaml" || !strings.Contains(errOut.String(), "is valid") {
		t.Errorf("unexpected check result: path=%q out=%q", checked, errOut.String())
	}

	cmd.SetArgs([]string{"check", "bad.yaml"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for invalid config")
	}
}
