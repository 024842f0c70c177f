// Package config загружает конфигурацию воркера из YAML-файла и окружения.
package config
