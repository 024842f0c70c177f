package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shaiso/Replay/internal/domain"
)

type inferenceResponse struct {
	// Task приходит либо объектом, либо JSON-строкой с объектом.
	Task  json.RawMessage `json:"task"`
	Error string          `json:"error,omitempty"`
}

// Inference просит сервер построить task для endpoint'а.
// IsDedicated запроса в тело не входит.
func (c *Client) Inference(ctx context.Context, req domain.InferenceRequest) (*domain.Task, error) {
	body := map[string]any{
		"endpoint_name":          req.EndpointName,
		"input_parameters":       req.InputParameters,
		"unique_parameter_names": req.UniqueParameterNames,
	}

	var resp inferenceResponse
	if err := c.postJSON(ctx, c.endpoints.Inference, "", body, &resp); err != nil {
		return nil, err
	}
	return decodeTask(resp.Task)
}

func decodeTask(raw json.RawMessage) (*domain.Task, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrNoTask
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode task string: %w", err)
		}
		raw = []byte(s)
	}

	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

// ServerMessage возвращает поле error из JSON-тела ответа, если оно есть.
func ServerMessage(err error) (string, bool) {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return "", false
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(httpErr.Body), &body) != nil || body.Error == "" {
		return "", false
	}
	return body.Error, true
}
