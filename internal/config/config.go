package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Server — сервер оркестрации и его endpoints.
type Server struct {
	URL    string `yaml:"url" env:"SERVER_URL" env-default:"http://localhost:8080"`
	APIKey string `yaml:"api_key" env:"API_KEY"`

	CreateTaskEndpoint     string `yaml:"create_task_endpoint" env:"CREATE_TASK_ENDPOINT" env-default:"/api/v1/create_task"`
	StartTaskEndpoint      string `yaml:"start_task_endpoint" env:"START_TASK_ENDPOINT" env-default:"/api/v1/start_task"`
	CompleteTaskEndpoint   string `yaml:"complete_task_endpoint" env:"COMPLETE_TASK_ENDPOINT" env-default:"/api/v1/complete_task"`
	SaveOutputDataEndpoint string `yaml:"save_output_data_endpoint" env:"SAVE_OUTPUT_DATA_ENDPOINT" env-default:"/api/v1/save_output_data"`
	SaveDownloadsEndpoint  string `yaml:"save_downloads_endpoint" env:"SAVE_DOWNLOADS_ENDPOINT" env-default:"/api/v1/save_downloads"`
	SaveTrajectoryEndpoint string `yaml:"save_trajectory_endpoint" env:"SAVE_TRAJECTORY_ENDPOINT" env-default:"/api/v1/save_trajectory"`
	InferenceEndpoint      string `yaml:"inference_endpoint" env:"INFERENCE_ENDPOINT" env-default:"/api/v1/inference"`
	HumanInLoopEndpoint    string `yaml:"human_in_loop_endpoint" env:"HUMAN_IN_LOOP_ENDPOINT" env-default:"/api/v1/human_in_loop"`
	RegisterChildEndpoint  string `yaml:"register_child_endpoint" env:"REGISTER_CHILD_ENDPOINT" env-default:"/register_child"`

	Timeout time.Duration `yaml:"timeout" env:"SERVER_TIMEOUT" env-default:"30s"`
}

// Worker — параметры воркера и дочерних процессов.
type Worker struct {
	ChildPortOffset int           `yaml:"child_port_offset" env:"CHILD_PORT_OFFSET" env-default:"8000"`
	SaveDirectory   string        `yaml:"save_directory" env:"SAVE_DIRECTORY" env-default:"/tmp/replay"`
	TaskTimeout     time.Duration `yaml:"task_timeout" env:"TASK_TIMEOUT" env-default:"600s"`
	UnhealthyAfter  time.Duration `yaml:"unhealthy_after" env:"UNHEALTHY_AFTER" env-default:"15m"`
	ProxyURL        string        `yaml:"proxy_url" env:"PROXY_URL"`

	// ECSMetadataURL — метаданные задачи ECS для регистрации (--aws).
	ECSMetadataURL string `yaml:"ecs_metadata_url" env:"ECS_METADATA_URL" env-default:"http://169.254.170.2/v3/task"`

	// HumanInLoopStatusURL — локальный endpoint статуса ручного шага.
	// Пусто — http://localhost:<CHILD_PORT_OFFSET>/human_in_loop_status.
	HumanInLoopStatusURL string `yaml:"human_in_loop_status_url" env:"HUMAN_IN_LOOP_STATUS_URL"`
}

// Browser — запуск Chromium.
type Browser struct {
	BasePort int      `yaml:"base_port" env:"BROWSER_BASE_PORT" env-default:"9222"`
	Headless bool     `yaml:"headless" env:"HEADLESS" env-default:"false"`
	Channel  string   `yaml:"channel" env:"BROWSER_CHANNEL" env-default:"chrome"`
	Args     []string `yaml:"args" env:"BROWSER_ARGS" env-separator:","`
}

// LLM — языковая модель.
type LLM struct {
	Provider        string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Model           string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	OpenAIAPIKey    string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	OllamaHost      string `yaml:"ollama_host" env:"OLLAMA_HOST" env-default:"http://localhost:11434"`

	// SnapshotTokenBudget — максимум токенов снимка страницы в промпте.
	SnapshotTokenBudget int `yaml:"snapshot_token_budget" env:"LLM_SNAPSHOT_TOKEN_BUDGET" env-default:"20000"`
}

// Integrations — опциональные внешние системы. Пустой URL отключает интеграцию.
type Integrations struct {
	DatabaseURL      string        `yaml:"db_url" env:"DB_URL"`
	RabbitMQURL      string        `yaml:"rabbitmq_url" env:"RABBITMQ_URL"`
	JanitorSchedule  string        `yaml:"janitor_schedule" env:"JANITOR_SCHEDULE" env-default:"@hourly"`
	JanitorRetention time.Duration `yaml:"janitor_retention" env:"JANITOR_RETENTION" env-default:"24h"`
}

// Config — конфигурация воркера. Источники: YAML-файл (опционально) и
// переменные окружения; окружение имеет приоритет.
type Config struct {
	Server       Server       `yaml:"server"`
	Worker       Worker       `yaml:"worker"`
	Browser      Browser      `yaml:"browser"`
	LLM          LLM          `yaml:"llm"`
	Integrations Integrations `yaml:"integrations"`
}

// Load читает конфигурацию. path может быть пустым: тогда только окружение.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.URL == "" {
		errs = append(errs, errors.New("SERVER_URL is required"))
	}
	if c.Worker.TaskTimeout <= 0 {
		errs = append(errs, errors.New("TASK_TIMEOUT must be positive"))
	}
	if c.Worker.UnhealthyAfter <= 0 {
		errs = append(errs, errors.New("UNHEALTHY_AFTER must be positive"))
	}
	if c.Browser.BasePort <= 0 || c.Browser.BasePort > 65535 {
		errs = append(errs, fmt.Errorf("BROWSER_BASE_PORT %d out of range", c.Browser.BasePort))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HumanInLoopStatusURL возвращает URL статуса ручного шага.
func (c *Config) HumanInLoopStatusURL() string {
	if c.Worker.HumanInLoopStatusURL != "" {
		return c.Worker.HumanInLoopStatusURL
	}
	return fmt.Sprintf("http://localhost:%d/human_in_loop_status", c.Worker.ChildPortOffset)
}

// Usage возвращает описание переменных окружения для --help.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}
