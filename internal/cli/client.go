package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TaskResponse — задача из API.
type TaskResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Notes      string `json:"notes,omitempty"`
	DueAt      int64  `json:"dueAt"`
	Importance int    `json:"importance"`
	Completed  bool   `json:"completed"`
	DeletedAt  string `json:"deleted_at,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// Due возвращает срок задачи как time.Time.
func (t TaskResponse) Due() time.Time {
	return time.UnixMilli(t.DueAt)
}

// ActionResponse — действие, переданное планировщику.
type ActionResponse struct {
	TaskID string `json:"taskId"`
	DueAt  int64  `json:"dueAt"`
}

// ResyncResponse — результат resync.
type ResyncResponse struct {
	Tasks int `json:"tasks"`
}

// --- Request types ---

// CreateTaskRequest — создание задачи.
type CreateTaskRequest struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title"`
	Notes      string `json:"notes,omitempty"`
	DueAt      *int64 `json:"dueAt"`
	Importance int    `json:"importance,omitempty"`
}

// UpdateTaskRequest — обновление задачи.
type UpdateTaskRequest struct {
	Title      *string `json:"title,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	DueAt      *int64  `json:"dueAt,omitempty"`
	Importance *int    `json:"importance,omitempty"`
}

// ListTasksOpts — параметры фильтрации задач.
type ListTasksOpts struct {
	Completed *bool
	Deleted   bool
	Limit     int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для focus-api.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Tasks ---

// ListTasks возвращает список задач с фильтрацией.
func (c *Client) ListTasks(opts ListTasksOpts) ([]TaskResponse, error) {
	params := url.Values{}
	if opts.Completed != nil {
		params.Set("completed", strconv.FormatBool(*opts.Completed))
	}
	if opts.Deleted {
		params.Set("deleted", "true")
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var tasks []TaskResponse
	err := c.list("/api/v1/tasks", params, &tasks)
	return tasks, err
}

// CreateTask создаёт задачу.
func (c *Client) CreateTask(req CreateTaskRequest) (*TaskResponse, error) {
	var task TaskResponse
	err := c.post("/api/v1/tasks", req, &task)
	return &task, err
}

// GetTask возвращает задачу по ID.
func (c *Client) GetTask(id string) (*TaskResponse, error) {
	var task TaskResponse
	err := c.get(taskPath(id), &task)
	return &task, err
}

// UpdateTask обновляет задачу.
func (c *Client) UpdateTask(id string, req UpdateTaskRequest) (*TaskResponse, error) {
	var task TaskResponse
	err := c.put(taskPath(id), req, &task)
	return &task, err
}

// DeleteTask мягко удаляет задачу.
func (c *Client) DeleteTask(id string) error {
	return c.delete(taskPath(id))
}

// CompleteTask отмечает задачу выполненной.
func (c *Client) CompleteTask(id string) (*TaskResponse, error) {
	var task TaskResponse
	err := c.post(taskPath(id)+"/complete", nil, &task)
	return &task, err
}

// ReopenTask снимает отметку о выполнении.
func (c *Client) ReopenTask(id string) (*TaskResponse, error) {
	var task TaskResponse
	err := c.post(taskPath(id)+"/reopen", nil, &task)
	return &task, err
}

// RestoreTask восстанавливает удалённую задачу.
func (c *Client) RestoreTask(id string) (*TaskResponse, error) {
	var task TaskResponse
	err := c.post(taskPath(id)+"/restore", nil, &task)
	return &task, err
}

// --- Reminders ---

// SnoozeTask откладывает напоминание по задаче.
func (c *Client) SnoozeTask(id string) (*ActionResponse, error) {
	var action ActionResponse
	err := c.post(taskPath(id)+"/snooze", nil, &action)
	return &action, err
}

// Resync просит focus-api немедленно отправить snapshot планировщику.
func (c *Client) Resync() (*ResyncResponse, error) {
	var resp ResyncResponse
	err := c.post("/api/v1/reminders/resync", nil, &resp)
	return &resp, err
}

func taskPath(id string) string {
	return "/api/v1/tasks/" + url.PathEscape(id)
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
