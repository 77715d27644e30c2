package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var taskHeaders = []string{"ID", "TITLE", "DUE", "IMPORTANCE", "DONE"}

func taskRow(t TaskResponse) []string {
	return []string{
		t.ID,
		t.Title,
		formatDue(t.Due()),
		strconv.Itoa(t.Importance),
		strconv.FormatBool(t.Completed),
	}
}

// parseDue разбирает срок задачи: RFC 3339, "2006-01-02 15:04",
// "2006-01-02" (конец дня) или смещение от now ("+48h", "+90m").
func parseDue(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "+") {
		d, err := time.ParseDuration(s[1:])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid due offset %q: %w", s, err)
		}
		return now.Add(d), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t.Add(23*time.Hour + 59*time.Minute), nil
	}

	return time.Time{}, fmt.Errorf("invalid due %q: use RFC 3339, \"YYYY-MM-DD HH:MM\", \"YYYY-MM-DD\" or +DURATION", s)
}

// NewTaskCmd создаёт группу команд для управления задачами.
func NewTaskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	cmd.AddCommand(
		newTaskListCmd(clientFn, outputFn),
		newTaskAddCmd(clientFn, outputFn),
		newTaskShowCmd(clientFn, outputFn),
		newTaskEditCmd(clientFn, outputFn),
		newTaskStateCmd(clientFn, outputFn, "complete", "Mark a task as completed", (*Client).CompleteTask),
		newTaskStateCmd(clientFn, outputFn, "reopen", "Mark a completed task as not done", (*Client).ReopenTask),
		newTaskStateCmd(clientFn, outputFn, "restore", "Undo deletion of a task", (*Client).RestoreTask),
		newTaskDeleteCmd(clientFn, outputFn),
		newTaskSnoozeCmd(clientFn, outputFn),
	)

	return cmd
}

func newTaskListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var pending, done, deleted bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if pending && done {
				return fmt.Errorf("--pending and --done are mutually exclusive")
			}

			opts := ListTasksOpts{Deleted: deleted, Limit: limit}
			if pending || done {
				completed := done
				opts.Completed = &completed
			}

			tasks, err := client.ListTasks(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = taskRow(t)
			}

			out.Print(taskHeaders, rows, tasks)
			return nil
		},
	}

	cmd.Flags().BoolVar(&pending, "pending", false, "Only tasks that are not completed")
	cmd.Flags().BoolVar(&done, "done", false, "Only completed tasks")
	cmd.Flags().BoolVar(&deleted, "deleted", false, "Show deleted tasks instead")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max number of tasks")

	return cmd
}

func newTaskAddCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var due, notes string
	var importance int

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a new task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			dueAt, err := parseDue(due, time.Now())
			if err != nil {
				return err
			}
			ms := dueAt.UnixMilli()

			task, err := client.CreateTask(CreateTaskRequest{
				Title:      strings.Join(args, " "),
				Notes:      notes,
				DueAt:      &ms,
				Importance: importance,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task created: %s", task.ID))
			out.Print(taskHeaders, [][]string{taskRow(*task)}, task)
			return nil
		},
	}

	cmd.Flags().StringVar(&due, "due", "", "Due date (required), e.g. 2026-03-12 18:00 or +48h")
	cmd.Flags().StringVar(&notes, "notes", "", "Task notes")
	cmd.Flags().IntVar(&importance, "importance", 0, "Importance 1-10 (default 5)")
	cmd.MarkFlagRequired("due")

	return cmd
}

func newTaskShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			task, err := client.GetTask(args[0])
			if err != nil {
				return err
			}

			out.Print(
				append(taskHeaders, "NOTES", "UPDATED"),
				[][]string{append(taskRow(*task), task.Notes, task.UpdatedAt)},
				task,
			)
			return nil
		},
	}
}

func newTaskEditCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var title, due, notes string
	var importance int

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := UpdateTaskRequest{}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("notes") {
				req.Notes = &notes
			}
			if cmd.Flags().Changed("importance") {
				req.Importance = &importance
			}
			if cmd.Flags().Changed("due") {
				dueAt, err := parseDue(due, time.Now())
				if err != nil {
					return err
				}
				ms := dueAt.UnixMilli()
				req.DueAt = &ms
			}

			task, err := client.UpdateTask(args[0], req)
			if err != nil {
				return err
			}

			out.Success("Task updated")
			out.Print(taskHeaders, [][]string{taskRow(*task)}, task)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&due, "due", "", "New due date")
	cmd.Flags().StringVar(&notes, "notes", "", "New notes")
	cmd.Flags().IntVar(&importance, "importance", 0, "New importance 1-10")

	return cmd
}

// newTaskStateCmd — команды, меняющие состояние задачи одним вызовом API.
func newTaskStateCmd(
	clientFn func() *Client,
	outputFn func() *Output,
	use, short string,
	call func(*Client, string) (*TaskResponse, error),
) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			task, err := call(clientFn(), args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task %s: %s", use, task.ID))
			out.Print(taskHeaders, [][]string{taskRow(*task)}, task)
			return nil
		},
	}
}

func newTaskDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task (can be undone with restore)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteTask(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Task deleted: %s (undo: task restore %s)", args[0], args[0]))
			return nil
		},
	}
}

func newTaskSnoozeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "snooze ID",
		Short: "Snooze the reminder for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			action, err := client.SnoozeTask(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Reminder snoozed: %s", action.TaskID))
			return nil
		},
	}
}
