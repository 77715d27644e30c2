package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
)

// Ошибки протокола.
var (
	// ErrMalformedTask — запись задачи в snapshot'е не удалось разобрать.
	ErrMalformedTask = errors.New("malformed task")

	// ErrMissingActionData — в NOTIFICATION_ACTION нет taskId.
	ErrMissingActionData = errors.New("notification action without task data")
)

// DecodeTasks разбирает список задач из snapshot'а.
//
// Каждая запись разбирается отдельно: записи без id, без dueAt или с
// нечисловым dueAt пропускаются, их ошибки возвращаются в skipped.
// Пустой или отсутствующий список — валидный пустой snapshot.
// Ошибка возвращается, только если tasks вообще не является массивом.
func DecodeTasks(raw json.RawMessage) (tasks []domain.Task, skipped []error, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks = make([]domain.Task, 0, len(items))
	for i, item := range items {
		task, err := decodeTask(item)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("task #%d: %w", i, err))
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, skipped, nil
}

// decodeTask разбирает одну задачу.
// Поле срока принимается как "dueAt" и как "due" (старые клиенты).
func decodeTask(item json.RawMessage) (domain.Task, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return domain.Task{}, fmt.Errorf("%w: not an object", ErrMalformedTask)
	}

	id, err := decodeID(fields["id"])
	if err != nil {
		return domain.Task{}, err
	}

	dueRaw, ok := fields["dueAt"]
	if !ok {
		dueRaw, ok = fields["due"]
	}
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: missing dueAt", ErrMalformedTask)
	}
	dueMs, err := decodeMillis(dueRaw)
	if err != nil {
		return domain.Task{}, err
	}

	task := domain.Task{
		ID:    id,
		DueAt: time.UnixMilli(dueMs),
	}

	// title и completed необязательны: битые значения игнорируем
	if raw, ok := fields["title"]; ok {
		_ = json.Unmarshal(raw, &task.Title)
	}
	if raw, ok := fields["completed"]; ok {
		_ = json.Unmarshal(raw, &task.Completed)
	}

	return task, nil
}

// decodeID принимает строковый или числовой id.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: missing id", ErrMalformedTask)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("%w: empty id", ErrMalformedTask)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}

	return "", fmt.Errorf("%w: id must be a string or number", ErrMalformedTask)
}

// decodeMillis принимает число (в том числе дробное) или числовую строку.
func decodeMillis(raw json.RawMessage) (int64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, fmt.Errorf("%w: dueAt is not numeric", ErrMalformedTask)
		}
		f, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: dueAt is not numeric", ErrMalformedTask)
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: dueAt is not finite", ErrMalformedTask)
	}

	return int64(f), nil
}
