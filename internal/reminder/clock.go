package reminder

import "time"

// Clock — источник времени и отложенных вызовов.
// В тестах подменяется ручными часами.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer — handle отложенного вызова; используется только для отмены.
type Timer interface {
	Stop() bool
}

// RealClock возвращает часы на основе пакета time.
func RealClock() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
