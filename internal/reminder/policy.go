package reminder

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Policy — настраиваемые константы политики напоминаний.
type Policy struct {
	// Threshold — за сколько до срока приходит due-soon напоминание.
	// Это же ширина окна, в котором идут heartbeat-напоминания.
	Threshold time.Duration `yaml:"threshold"`

	// HeartbeatInterval — шаг heartbeat-напоминаний. Границы выровнены
	// по локальной полуночи: при 12h это 00:00 и 12:00.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// Heartbeats включает heartbeat-напоминания. Если false, остаётся
	// только одно due-soon напоминание на задачу.
	Heartbeats bool `yaml:"heartbeats"`

	// SnoozeDuration — на сколько откладывается напоминание по "snooze".
	SnoozeDuration time.Duration `yaml:"snooze_duration"`

	// LivenessInterval — период liveness tick (запрос свежего snapshot'а).
	LivenessInterval time.Duration `yaml:"liveness_interval"`

	// Timezone — часовой пояс для выравнивания heartbeat и форматирования
	// срока в тексте уведомления. Пусто или "Local" — локальный пояс процесса.
	Timezone string `yaml:"timezone"`
}

// DefaultPolicy возвращает политику по умолчанию:
// 3 дня, 12 часов, 1 час, 6 часов.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:         72 * time.Hour,
		HeartbeatInterval: 12 * time.Hour,
		Heartbeats:        true,
		SnoozeDuration:    time.Hour,
		LivenessInterval:  6 * time.Hour,
	}
}

// Validate проверяет политику.
func (p Policy) Validate() error {
	if p.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be positive", ErrInvalidPolicy)
	}
	if p.SnoozeDuration <= 0 {
		return fmt.Errorf("%w: snooze_duration must be positive", ErrInvalidPolicy)
	}
	if p.LivenessInterval <= 0 {
		return fmt.Errorf("%w: liveness_interval must be positive", ErrInvalidPolicy)
	}
	if _, err := p.Location(); err != nil {
		return err
	}
	if p.Heartbeats {
		if _, err := HeartbeatSpec(p.HeartbeatInterval); err != nil {
			return err
		}
	}
	return nil
}

// Location возвращает часовой пояс политики.
func (p Policy) Location() (*time.Location, error) {
	if p.Timezone == "" || p.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidPolicy, p.Timezone, err)
	}
	return loc, nil
}

// HeartbeatSpec строит cron-выражение для границ heartbeat.
//
// Интервал должен делить сутки нацело: часы — "0 */H * * *",
// минуты (меньше часа) — "*/M * * * *". 12h даёт полдень и полночь.
func HeartbeatSpec(interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("%w: heartbeat_interval must be positive", ErrInvalidPolicy)
	}
	if interval%time.Minute != 0 || (24*time.Hour)%interval != 0 {
		return "", fmt.Errorf("%w: heartbeat_interval %s must evenly divide a day", ErrInvalidPolicy, interval)
	}

	switch {
	case interval == 24*time.Hour:
		return "0 0 * * *", nil
	case interval >= time.Hour:
		if interval%time.Hour != 0 {
			return "", fmt.Errorf("%w: heartbeat_interval %s must be whole hours", ErrInvalidPolicy, interval)
		}
		return fmt.Sprintf("0 */%d * * *", int(interval/time.Hour)), nil
	default:
		// меньше часа: должен делить и час
		if time.Hour%interval != 0 {
			return "", fmt.Errorf("%w: heartbeat_interval %s must evenly divide an hour", ErrInvalidPolicy, interval)
		}
		return fmt.Sprintf("*/%d * * * *", int(interval/time.Minute)), nil
	}
}

// heartbeatSchedule парсит cron-расписание границ heartbeat.
func heartbeatSchedule(interval time.Duration) (cron.Schedule, error) {
	spec, err := HeartbeatSpec(interval)
	if err != nil {
		return nil, err
	}

	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse heartbeat spec %q: %w", spec, err)
	}
	return schedule, nil
}

// livenessSpec возвращает дескриптор robfig/cron для liveness tick.
func livenessSpec(interval time.Duration) string {
	return "@every " + interval.String()
}
