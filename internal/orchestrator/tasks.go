package orchestrator

import (
	"context"
	"time"

	"github.com/shaiso/Replay/internal/domain"
)

// CreateTask регистрирует task на сервере (локальный запуск без allocate).
func (c *Client) CreateTask(ctx context.Context, task *domain.Task) error {
	createdAt := time.Now().UTC()
	if task.CreatedAt != nil {
		createdAt = *task.CreatedAt
	}

	body := map[string]any{
		"task_id":           task.TaskID,
		"recording_id":      task.RecordingID,
		"input_parameters":  task.InputParameters,
		"unique_parameters": task.UniqueParameters(),
		"created_at":        createdAt,
	}
	return c.postJSON(ctx, c.endpoints.CreateTask, task.APIKey, body, nil)
}

// StartTask сообщает о начале выполнения.
func (c *Client) StartTask(ctx context.Context, apiKey string, mem *domain.Memory) error {
	startedAt := time.Now().UTC()
	if mem.StartedAt != nil {
		startedAt = *mem.StartedAt
	}

	body := map[string]any{
		"task_id":    mem.TaskID,
		"started_at": startedAt,
	}
	return c.postJSON(ctx, c.endpoints.StartTask, apiKey, body, nil)
}

// CompleteTask сообщает итог выполнения. Сервер знает только success и failed.
func (c *Client) CompleteTask(ctx context.Context, apiKey string, mem *domain.Memory) error {
	completedAt := time.Now().UTC()
	if mem.CompletedAt != nil {
		completedAt = *mem.CompletedAt
	}

	status := domain.TaskStatusFailed
	if mem.Status == domain.TaskStatusSuccess {
		status = domain.TaskStatusSuccess
	}

	var errMsg *string
	if mem.Error != "" {
		errMsg = &mem.Error
	}

	body := map[string]any{
		"task_id":      mem.TaskID,
		"completed_at": completedAt,
		"status":       status,
		"error":        errMsg,
		"token_usage":  mem.TokenUsage,
	}
	return c.postJSON(ctx, c.endpoints.CompleteTask, apiKey, body, nil)
}

// outputDataItem — OutputData без скриншота: скриншоты уходят в архиве trajectory.
type outputDataItem struct {
	UniqueIdentifier string         `json:"unique_identifier,omitempty"`
	JSONData         map[string]any `json:"json_data,omitempty"`
	Text             string         `json:"text,omitempty"`
}

// SaveOutputData отправляет выходные данные. Пропускается, если данных нет.
func (c *Client) SaveOutputData(ctx context.Context, apiKey string, mem *domain.Memory) error {
	if len(mem.Variables.OutputData) == 0 && mem.FinalScreenshot == "" {
		return nil
	}

	items := make([]outputDataItem, 0, len(mem.Variables.OutputData))
	for _, o := range mem.Variables.OutputData {
		items = append(items, outputDataItem{
			UniqueIdentifier: o.UniqueIdentifier,
			JSONData:         o.JSONData,
			Text:             o.Text,
		})
	}

	var finalScreenshot *string
	if mem.FinalScreenshot != "" {
		finalScreenshot = &mem.FinalScreenshot
	}

	body := map[string]any{
		"task_id":          mem.TaskID,
		"output_data":      items,
		"final_screenshot": finalScreenshot,
	}
	return c.postJSON(ctx, c.endpoints.SaveOutputData, apiKey, body, nil)
}
