package reminder

import (
	"sort"
	"sync"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
)

// TimerSet владеет отображением ключ напоминания → взведённый таймер.
//
// Инварианты:
//   - на один ключ не больше одного взведённого таймера;
//   - сработавший таймер удаляет свою запись до вызова callback'а;
//   - отменённый или заменённый таймер никогда не вызывает callback;
//   - сработавший ключ не взводится повторно, пока он остаётся в
//     наборе Reconcile.
//
// Само отображение наружу не отдаётся: только ArmOnce, Reconcile,
// CancelAll и read-only копии.
type TimerSet struct {
	clock Clock

	mu      sync.Mutex
	seq     uint64
	entries map[domain.ReminderKey]*armedTimer
	fired   map[domain.ReminderKey]struct{}
}

// armedTimer — запись о взведённом таймере.
type armedTimer struct {
	id       uint64
	reminder domain.Reminder
	timer    Timer
}

// NewTimerSet создаёт пустой TimerSet.
func NewTimerSet(clock Clock) *TimerSet {
	if clock == nil {
		clock = RealClock()
	}
	return &TimerSet{
		clock:   clock,
		entries: make(map[domain.ReminderKey]*armedTimer),
		fired:   make(map[domain.ReminderKey]struct{}),
	}
}

// ArmOnce взводит однократный таймер для r.Key через delay.
// Если таймер с таким ключом уже взведён или уже сработал — no-op,
// возвращает false.
func (s *TimerSet) ArmOnce(r domain.Reminder, delay time.Duration, fn func(domain.Reminder)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[r.Key]; ok {
		return false
	}
	if _, ok := s.fired[r.Key]; ok {
		return false
	}

	s.seq++
	entry := &armedTimer{id: s.seq, reminder: r}
	entry.timer = s.clock.AfterFunc(delay, func() {
		if !s.release(r.Key, entry.id) {
			return
		}
		fn(r)
	})
	s.entries[r.Key] = entry

	return true
}

// release удаляет запись, если она всё ещё принадлежит таймеру id.
func (s *TimerSet) release(key domain.ReminderKey, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.id != id {
		return false
	}
	delete(s.entries, key)
	s.fired[key] = struct{}{}
	return true
}

// Reconcile отменяет все таймеры, ключей которых нет в valid.
// Совпадающие записи не трогает. Возвращает число отменённых.
// Отметки о сработавших ключах вне valid забываются.
func (s *TimerSet) Reconcile(valid map[domain.ReminderKey]struct{}) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.fired {
		if _, ok := valid[key]; !ok {
			delete(s.fired, key)
		}
	}

	cancelled := 0
	for key, entry := range s.entries {
		if _, ok := valid[key]; ok {
			continue
		}
		entry.timer.Stop()
		delete(s.entries, key)
		cancelled++
	}
	return cancelled
}

// CancelAll отменяет все таймеры. Возвращает число отменённых.
func (s *TimerSet) CancelAll() int {
	return s.Reconcile(nil)
}

// Cancel отменяет таймер по ключу.
func (s *TimerSet) Cancel(key domain.ReminderKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.entries, key)
	return true
}

// Len возвращает число взведённых таймеров.
func (s *TimerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Handle возвращает идентификатор таймера для ключа.
// Один и тот же идентификатор означает, что таймер не перевзводился.
func (s *TimerSet) Handle(key domain.ReminderKey) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return entry.id, true
}

// Armed возвращает копию взведённых напоминаний, отсортированную по времени.
func (s *TimerSet) Armed() []domain.Reminder {
	s.mu.Lock()
	out := make([]domain.Reminder, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.reminder)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].FireAt.Before(out[j].FireAt)
		}
		return out[i].Key < out[j].Key
	})
	return out
}
