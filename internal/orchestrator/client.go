package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout = 30 * time.Second

	// maxErrorBody — сколько байт тела ошибки сохранять в HTTPError.
	maxErrorBody = 4 << 10

	apiKeyHeader = "x-api-key"
)

// Endpoints — пути API сервера оркестрации относительно BaseURL.
type Endpoints struct {
	CreateTask     string
	StartTask      string
	CompleteTask   string
	SaveOutputData string
	SaveDownloads  string
	SaveTrajectory string
	Inference      string
	HumanInLoop    string
	RegisterChild  string
}

// Client — HTTP-клиент сервера оркестрации.
type Client struct {
	baseURL   *url.URL
	apiKey    string
	endpoints Endpoints
	http      *http.Client
	logger    *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес сервера (обязательно).
	BaseURL string

	// APIKey — ключ по умолчанию для x-api-key.
	APIKey string

	Endpoints Endpoints

	// Timeout запроса без загрузки файлов (default: 30s).
	Timeout time.Duration

	// HTTPClient (опционально).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// New создаёт Client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:   base,
		apiKey:    cfg.APIKey,
		endpoints: cfg.Endpoints,
		http:      httpClient,
		logger:    logger,
	}, nil
}

// resolve склеивает BaseURL и путь endpoint'а.
func (c *Client) resolve(endpoint string) string {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return c.baseURL.String() + endpoint
	}
	return c.baseURL.ResolveReference(ref).String()
}

// postJSON отправляет body как JSON и декодирует ответ в out (если не nil).
func (c *Client) postJSON(ctx context.Context, endpoint, apiKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(endpoint), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, c.keyOr(apiKey), out)
}

// keyOr возвращает apiKey или ключ клиента по умолчанию.
func (c *Client) keyOr(apiKey string) string {
	if apiKey != "" {
		return apiKey
	}
	return c.apiKey
}

// do выполняет запрос. Непустой apiKey уходит в x-api-key.
// Ответ вне 2xx превращается в *HTTPError.
func (c *Client) do(req *http.Request, apiKey string, out any) error {
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			Method: req.Method,
			URL:    req.URL.String(),
			Status: resp.StatusCode,
			Body:   string(body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}
