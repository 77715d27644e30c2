// Package cli реализует инструмент командной строки focus.
//
// # Обзор
//
// CLI — клиентская утилита для focus-api и focus-reminderd.
// Работает через HTTP и WebSocket, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для focus-api. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	tasks, err := client.ListTasks(cli.ListTasksOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: focus task list --json | jq .
//
// ## Commands
//
//   - task: list, add, show, edit, complete, reopen, restore, delete, snooze
//   - reminders: resync, watch
//   - config: example, check (загрузка конфигурации передаётся из cmd/focus-cli)
//
// reminders watch подключается к /ws шлюза focus-reminderd как обычный
// клиент: сообщает разрешение granted, печатает NOTIFY и на
// REQUEST_SNAPSHOT просит focus-api отправить свежий snapshot.
//
// Каждая группа создаётся через фабричную функцию (NewTaskCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
