package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 600*time.Second, cfg.Worker.TaskTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Worker.UnhealthyAfter)
	assert.Equal(t, 9222, cfg.Browser.BasePort)
	assert.Equal(t, "/tmp/replay", cfg.Worker.SaveDirectory)
	assert.Equal(t, "http://localhost:8000/human_in_loop_status", cfg.HumanInLoopStatusURL())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_URL", "https://orchestrator.example.com")
	t.Setenv("TASK_TIMEOUT", "90s")
	t.Setenv("PROXY_URL", "http://proxy:3128")
	t.Setenv("BROWSER_ARGS", "--disable-gpu,--no-sandbox")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://orchestrator.example.com", cfg.Server.URL)
	assert.Equal(t, 90*time.Second, cfg.Worker.TaskTimeout)
	assert.Equal(t, "http://proxy:3128", cfg.Worker.ProxyURL)
	assert.Equal(t, []string{"--disable-gpu", "--no-sandbox"}, cfg.Browser.Args)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  url: http://server:9000
  api_key: secret
worker:
  child_port_offset: 7000
llm:
  provider: anthropic
  model: claude-sonnet
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://server:9000", cfg.Server.URL)
	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "/api/v1/complete_task", cfg.Server.CompleteTaskEndpoint)
	assert.Equal(t, "http://localhost:7000/human_in_loop_status", cfg.HumanInLoopStatusURL())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Worker.TaskTimeout = 0
	cfg.Browser.BasePort = 70000
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TASK_TIMEOUT")
	assert.Contains(t, err.Error(), "BROWSER_BASE_PORT")
}
