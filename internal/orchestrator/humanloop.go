package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const statusPollTimeout = 5 * time.Second

// NotifyHumanInLoop просит сервер позвать оператора.
func (c *Client) NotifyHumanInLoop(ctx context.Context, apiKey, taskID, uniqueChildARN string) error {
	body := map[string]string{
		"unique_child_arn": uniqueChildARN,
		"task_id":          taskID,
	}
	return c.postJSON(ctx, c.endpoints.HumanInLoop, apiKey, body, nil)
}

// HumanInLoop связывает интерпретатор с оператором: уведомление через
// сервер оркестрации, статус через локальный endpoint.
type HumanInLoop struct {
	Client         *Client
	StatusURL      string
	APIKey         string
	UniqueChildARN string
}

// Notify уведомляет сервер о ручном шаге.
func (h *HumanInLoop) Notify(ctx context.Context, taskID string) error {
	h.Client.logger.Info("calling human in loop endpoint",
		"task_id", taskID,
		"unique_child_arn", h.UniqueChildARN,
	)
	return h.Client.NotifyHumanInLoop(ctx, h.APIKey, taskID, h.UniqueChildARN)
}

// IsCompleted опрашивает статус ручного шага.
func (h *HumanInLoop) IsCompleted(ctx context.Context, taskID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, statusPollTimeout)
	defer cancel()

	u, err := url.Parse(h.StatusURL)
	if err != nil {
		return false, fmt.Errorf("parse status url: %w", err)
	}
	q := u.Query()
	q.Set("unique_child_arn", h.UniqueChildARN)
	q.Set("task_id", taskID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	var status struct {
		Completed bool `json:"completed"`
	}
	if err := h.Client.do(req, "", &status); err != nil {
		return false, err
	}
	return status.Completed, nil
}
