package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ExtractionFormat — описание структуры, которую LLM должна вернуть при extraction.
//
// Значения:
//   - "str", "int", "float", "bool" — примитив
//   - "list[str]" / "List[int]" — список примитивов
//   - вложенный map — объект
//   - список из одного элемента: ["str"] или [{...}] — список примитивов или объектов
//
// Все поля необязательные: модель может вернуть null, если значение не найдено.
type ExtractionFormat map[string]any

// primitiveTypes — соответствие имён типов формата типам JSON Schema.
var primitiveTypes = map[string]string{
	"str":   "string",
	"int":   "integer",
	"float": "number",
	"bool":  "boolean",
}

// Validate проверяет, что формат можно превратить в схему.
func (f ExtractionFormat) Validate() error {
	if len(f) == 0 {
		return fmt.Errorf("%w: empty format", ErrInvalidFormat)
	}
	_, err := f.JSONSchema()
	return err
}

// JSONSchema строит JSON Schema объекта по формату.
//
// Схема строгая (additionalProperties=false, все ключи в required),
// необязательность выражается через nullable-тип.
func (f ExtractionFormat) JSONSchema() (map[string]any, error) {
	return objectSchema(f, "")
}

func objectSchema(fields map[string]any, path string) (map[string]any, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make(map[string]any, len(fields))
	for _, key := range keys {
		s, err := valueSchema(fields[key], path+key)
		if err != nil {
			return nil, err
		}
		props[key] = s
	}

	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             keys,
		"additionalProperties": false,
	}, nil
}

func valueSchema(v any, path string) (map[string]any, error) {
	switch t := v.(type) {
	case string:
		name := strings.TrimSpace(t)
		if inner, ok := listElement(name); ok {
			item, err := primitiveSchema(inner, path)
			if err != nil {
				return nil, err
			}
			return map[string]any{"type": []string{"array", "null"}, "items": item}, nil
		}
		return primitiveSchema(name, path)

	case map[string]any:
		obj, err := objectSchema(t, path+".")
		if err != nil {
			return nil, err
		}
		obj["type"] = []string{"object", "null"}
		return obj, nil

	case []any:
		if len(t) == 0 {
			return nil, fmt.Errorf("%w: %s: list must declare its element type", ErrInvalidFormat, path)
		}
		item, err := valueSchema(t[0], path+"[]")
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": []string{"array", "null"}, "items": item}, nil

	default:
		return nil, fmt.Errorf("%w: %s: unsupported value %T", ErrInvalidFormat, path, v)
	}
}

func primitiveSchema(name, path string) (map[string]any, error) {
	jsonType, ok := primitiveTypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s: unknown type %q", ErrInvalidFormat, path, name)
	}
	return map[string]any{"type": []string{jsonType, "null"}}, nil
}

// listElement разбирает "list[T]" и "List[T]".
func listElement(name string) (string, bool) {
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, "list[") || !strings.HasSuffix(lower, "]") {
		return "", false
	}
	return strings.TrimSpace(name[len("list[") : len(name)-1]), true
}
