package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"
)

// watchFrame — кадр протокола focus-reminderd в объёме, нужном CLI.
type watchFrame struct {
	Type         string        `json:"type"`
	TaskID       string        `json:"taskId,omitempty"`
	Permission   string        `json:"permission,omitempty"`
	Notification *notification `json:"notification,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
	Data  struct {
		TaskID string `json:"taskId"`
		DueAt  int64  `json:"dueAt"`
	} `json:"data"`
}

// NewRemindersCmd создаёт группу команд для планировщика напоминаний.
func NewRemindersCmd(clientFn func() *Client, outputFn func() *Output, gatewayURL *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Interact with the reminder scheduler",
	}

	cmd.AddCommand(
		newRemindersResyncCmd(clientFn, outputFn),
		newRemindersWatchCmd(clientFn, outputFn, gatewayURL),
	)

	return cmd
}

func newRemindersResyncCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Push a fresh task snapshot to the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			resp, err := client.Resync()
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Snapshot sent: %d upcoming tasks", resp.Tasks))
			return nil
		},
	}
}

func newRemindersWatchCmd(clientFn func() *Client, outputFn func() *Output, gatewayURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Connect to focus-reminderd and print notifications as they fire",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			w := &watcher{client: clientFn(), out: out}

			out.Success(fmt.Sprintf("Watching reminders at %s (Ctrl+C to stop)", *gatewayURL))
			err := w.run(cmd.Context(), *gatewayURL)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// watcher — терминальный клиент шлюза: показывает уведомления и
// отвечает на REQUEST_SNAPSHOT через focus-api.
type watcher struct {
	client *Client
	out    *Output
}

func (w *watcher) run(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}
	defer conn.CloseNow()

	if err := wsjson.Write(ctx, conn, watchFrame{Type: "HELLO", Permission: "granted"}); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	for {
		var f watchFrame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return ctx.Err()
			}
			return fmt.Errorf("read frame: %w", err)
		}
		w.handle(f)
	}
}

func (w *watcher) handle(f watchFrame) {
	switch f.Type {
	case "NOTIFY":
		if f.Notification == nil {
			return
		}
		n := f.Notification
		if w.out.jsonMode {
			w.out.JSON(n)
			return
		}
		w.out.Table(
			[]string{"TIME", "TITLE", "BODY", "TASK"},
			[][]string{{time.Now().Format("15:04:05"), n.Title, n.Body, n.Data.TaskID}},
		)

	case "REQUEST_SNAPSHOT":
		resp, err := w.client.Resync()
		if err != nil {
			w.out.Error(fmt.Sprintf("snapshot requested, resync failed: %v", err))
			return
		}
		w.out.Success(fmt.Sprintf("Snapshot requested, sent %d tasks", resp.Tasks))

	case "FOCUS", "OPEN_CLIENT":
		w.out.Success(fmt.Sprintf("Open task %s", f.TaskID))
	}
}
