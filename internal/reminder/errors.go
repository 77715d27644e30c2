package reminder

import "errors"

// Ошибки планировщика напоминаний.
var (
	// ErrInvalidPolicy — политика напоминаний некорректна.
	ErrInvalidPolicy = errors.New("invalid reminder policy")

	// ErrMissingTaskID — действие или snooze без ID задачи.
	ErrMissingTaskID = errors.New("missing task id")

	// ErrServiceStopped — Service остановлен, события не принимаются.
	ErrServiceStopped = errors.New("reminder service stopped")

	// ErrUnsupportedFrame — сообщение протокола не предназначено Scheduler'у.
	ErrUnsupportedFrame = errors.New("unsupported frame")
)
