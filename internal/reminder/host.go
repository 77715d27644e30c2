package reminder

import (
	"context"
	"errors"

	"github.com/shaiso/FocusTasks/internal/domain"
)

// Notifier — поверхность показа уведомлений платформы.
// Вызов односторонний: результат ядру не нужен, ошибки только логируются.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Host — обратный канал к Task Source и клиентским окнам.
type Host interface {
	// RequestSnapshot просит Task Source прислать SET_REMINDERS.
	RequestSnapshot(ctx context.Context) error

	// FocusOrOpen выводит существующее окно клиента на передний план
	// или просит открыть новое.
	FocusOrOpen(ctx context.Context, taskID string) error
}

// Capabilities — описание возможностей хоста, передаётся при создании.
type Capabilities struct {
	// PeriodicSync — хост сам будит Scheduler liveness tick'ами
	// (periodic background sync). Если false, Service эмулирует tick
	// собственным таймером, пока процесс жив.
	PeriodicSync bool

	// Permission сообщает текущее состояние разрешения на уведомления.
	// nil — разрешение считается выданным.
	Permission func() domain.Permission
}

// permission возвращает текущее состояние разрешения.
func (c Capabilities) permission() domain.Permission {
	if c.Permission == nil {
		return domain.PermissionGranted
	}
	return c.Permission()
}

// Notifiers рассылает уведомление всем поверхностям.
// Ошибка возвращается, только если не сработала ни одна.
type Notifiers []Notifier

// Notify реализует Notifier.
func (ns Notifiers) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, notifier := range ns {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(ns) {
		return errors.Join(errs...)
	}
	return nil
}

// Hosts объединяет несколько обратных каналов.
//
// RequestSnapshot отправляется во все каналы; FocusOrOpen пробует
// каналы по порядку до первого успешного.
type Hosts []Host

// RequestSnapshot реализует Host.
func (hs Hosts) RequestSnapshot(ctx context.Context) error {
	var errs []error
	for _, host := range hs {
		if err := host.RequestSnapshot(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(hs) {
		return errors.Join(errs...)
	}
	return nil
}

// FocusOrOpen реализует Host.
func (hs Hosts) FocusOrOpen(ctx context.Context, taskID string) error {
	var errs []error
	for _, host := range hs {
		err := host.FocusOrOpen(ctx, taskID)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// nopHost и nopNotifier используются, когда канал не настроен.
type nopHost struct{}

func (nopHost) RequestSnapshot(context.Context) error     { return nil }
func (nopHost) FocusOrOpen(context.Context, string) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Notification) error { return nil }
