package engine

import (
	"regexp"
	"strconv"
)

// placeholderRe — {name} или {name[i]}.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_\-]*)(?:\[(\d+)\])?\}`)

// LookupFunc возвращает значения переменной.
type LookupFunc func(name string) ([]string, bool)

// Substitute подставляет значения переменных в строку действия.
//
//   - {name[i]} — i-е значение переменной
//   - {name}    — первое значение
//
// Неизвестные переменные и индексы вне диапазона остаются как есть:
// фигурные скобки встречаются и в обычном тексте.
func Substitute(s string, lookup LookupFunc) string {
	if s == "" || lookup == nil {
		return s
	}
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		values, ok := lookup(sub[1])
		if !ok {
			return match
		}
		index := 0
		if sub[2] != "" {
			i, err := strconv.Atoi(sub[2])
			if err != nil {
				return match
			}
			index = i
		}
		if index >= len(values) {
			return match
		}
		return values[index]
	})
}

// SubstituteAll применяет Substitute к каждой строке и возвращает новый срез.
func SubstituteAll(values []string, lookup LookupFunc) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Substitute(v, lookup)
	}
	return out
}
