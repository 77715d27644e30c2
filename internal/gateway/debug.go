package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
)

// ArmedReminder — взведённое напоминание в ответе /debug/reminders.
type ArmedReminder struct {
	Key    domain.ReminderKey  `json:"key"`
	TaskID string              `json:"task_id"`
	Title  string              `json:"title"`
	Kind   domain.ReminderKind `json:"kind"`
	FireAt time.Time           `json:"fire_at"`
	DueAt  time.Time           `json:"due_at"`
}

// DebugResponse — ответ /debug/reminders.
type DebugResponse struct {
	Armed   []ArmedReminder `json:"armed"`
	Clients []ClientInfo    `json:"clients"`
}

// DebugHandler отдаёт взведённые напоминания и подключённые окна.
// armed должен возвращать копию, а не внутреннее состояние планировщика.
func DebugHandler(armed func() []domain.Reminder, hub *Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		reminders := armed()
		resp := DebugResponse{
			Armed:   make([]ArmedReminder, 0, len(reminders)),
			Clients: []ClientInfo{},
		}
		for _, rem := range reminders {
			resp.Armed = append(resp.Armed, ArmedReminder{
				Key:    rem.Key,
				TaskID: rem.Task.ID,
				Title:  rem.Task.Title,
				Kind:   rem.Kind,
				FireAt: rem.FireAt,
				DueAt:  rem.Task.DueAt,
			})
		}
		if hub != nil {
			resp.Clients = hub.Clients()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})
}
