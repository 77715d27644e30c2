package reminder

import (
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/FocusTasks/internal/domain"
)

// Planner вычисляет набор напоминаний для snapshot'а задач.
//
// Planner не хранит состояния: каждый вызов Plan строит набор с нуля,
// старые кандидаты никогда не патчатся инкрементально.
type Planner struct {
	policy    Policy
	loc       *time.Location
	heartbeat cron.Schedule
}

// NewPlanner создаёт Planner для политики.
func NewPlanner(policy Policy) (*Planner, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	loc, err := policy.Location()
	if err != nil {
		return nil, err
	}

	p := &Planner{policy: policy, loc: loc}
	if policy.Heartbeats {
		p.heartbeat, err = heartbeatSchedule(policy.HeartbeatInterval)
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Plan возвращает напоминания, которые должны быть взведены на момент now.
//
//  1. Выполненные задачи отбрасываются.
//  2. Due-soon: dueAt − threshold, если это время и сам dueAt в будущем.
//  3. Heartbeat: каждая граница интервала в окне
//     (max(now, dueAt − threshold), min(dueAt, now + threshold)].
//  4. Кандидаты с firingTime <= now не попадают в результат.
//
// Результат отсортирован по времени срабатывания, ключи уникальны.
func (p *Planner) Plan(tasks []domain.Task, now time.Time) []domain.Reminder {
	seen := make(map[domain.ReminderKey]struct{})
	var out []domain.Reminder

	add := func(task *domain.Task, kind domain.ReminderKind, at time.Time) {
		if !at.After(now) {
			return
		}
		key := domain.NewReminderKey(task.ID, at)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, domain.Reminder{
			Key:    key,
			Kind:   kind,
			FireAt: at,
			Task:   task.Snapshot(),
		})
	}

	for i := range tasks {
		task := &tasks[i]
		if task.ID == "" || task.Completed || !task.DueAt.After(now) {
			continue
		}

		add(task, domain.ReminderKindDueSoon, task.DueAt.Add(-p.policy.Threshold))

		for _, at := range p.heartbeats(task.DueAt, now) {
			add(task, domain.ReminderKindHeartbeat, at)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].Key < out[j].Key
	})

	return out
}

// heartbeats возвращает границы heartbeat для задачи со сроком due.
func (p *Planner) heartbeats(due, now time.Time) []time.Time {
	if p.heartbeat == nil {
		return nil
	}

	start := now
	if ws := due.Add(-p.policy.Threshold); ws.After(start) {
		start = ws
	}
	end := due
	if horizon := now.Add(p.policy.Threshold); horizon.Before(end) {
		end = horizon
	}

	// верхняя граница числа итераций: окно не шире threshold
	limit := int(p.policy.Threshold/p.policy.HeartbeatInterval) + 2

	var out []time.Time
	for t := p.heartbeat.Next(start.In(p.loc)); !t.IsZero() && !t.After(end); t = p.heartbeat.Next(t) {
		out = append(out, t)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Notification строит уведомление для напоминания.
func (p *Planner) Notification(r domain.Reminder) domain.Notification {
	title := r.Task.Title
	if title == "" {
		title = "Task"
	}

	return domain.Notification{
		Title: r.Kind.Title(),
		Body:  fmt.Sprintf("%s is due on %s", title, r.Task.DueAt.In(p.loc).Format("Mon, Jan 2 2006 15:04")),
		Tag:   domain.NotificationTag(r.Task.ID),
		Data: domain.NotificationData{
			TaskID: r.Task.ID,
			DueAt:  r.Task.DueAt.UnixMilli(),
		},
	}
}

// Policy возвращает политику Planner'а.
func (p *Planner) Policy() Policy {
	return p.policy
}
