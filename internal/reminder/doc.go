// Package reminder реализует планировщик напоминаний о задачах.
//
// Scheduler принимает snapshot'ы задач, вычисляет моменты уведомлений,
// дедуплицирует их по ключу (taskID, firingTime), взводит таймеры и
// показывает уведомление, когда таймер срабатывает.
//
// Структура:
//   - policy.go    — Policy (threshold, heartbeat, snooze, liveness) и cron-выражения
//   - planner.go   — вычисление набора напоминаний для snapshot'а
//   - timers.go    — TimerSet: ключ → таймер, ArmOnce / Reconcile / CancelAll
//   - scheduler.go — Scheduler: Ingest, Snooze, HandleInteraction, Wake, Tick
//   - host.go      — Notifier, Host, Capabilities
//   - service.go   — Service: очередь событий и liveness tick
//
// Использование:
//
//	sched, err := reminder.New(reminder.Config{
//	    Policy:       reminder.DefaultPolicy(),
//	    Notifier:     hub,
//	    Host:         reminder.Hosts{hub, bridge},
//	    Capabilities: reminder.Capabilities{Permission: hub.Permission},
//	    Logger:       logger,
//	})
//
//	svc := reminder.NewService(reminder.ServiceConfig{Scheduler: sched, Logger: logger})
//	if err := svc.Start(ctx); err != nil {
//	    logger.Error("reminder service failed", "error", err)
//	}
//	defer svc.Stop()
//
// Процесс может быть остановлен в любой момент между сообщениями: таймеры
// живут только в памяти. После рестарта Scheduler пуст и ждёт следующего
// snapshot'а (wake → REQUEST_SNAPSHOT или liveness tick). Напоминание,
// чьё время прошло, пока процесс не работал, теряется.
package reminder
