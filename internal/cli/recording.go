package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Replay/internal/domain"
)

// LoadRecording читает automation из YAML (или JSON) файла.
//
// YAML переводится в JSON, чтобы узлы прошли ту же валидацию, что и
// task'и от сервера оркестрации.
func LoadRecording(path string) (*domain.Automation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse recording %s: %w", path, err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert recording %s: %w", path, err)
	}

	var automation domain.Automation
	if err := json.Unmarshal(data, &automation); err != nil {
		return nil, fmt.Errorf("decode recording %s: %w", path, err)
	}
	if err := automation.Validate(); err != nil {
		return nil, err
	}
	return &automation, nil
}

// ParseParams разбирает KEY=VALUE. Повтор ключа добавляет значение в список.
func ParseParams(pairs []string) (map[string][]string, error) {
	params := make(map[string][]string, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param format %q, expected KEY=VALUE", kv)
		}
		params[key] = append(params[key], value)
	}
	return params, nil
}
