package domain

import (
	"errors"
	"fmt"
)

// Ошибки валидации automation и task.
var (
	// ErrInvalidAction — действие не прошло валидацию при декодировании.
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidAutomation — automation не прошла валидацию.
	ErrInvalidAutomation = errors.New("invalid automation")

	// ErrInvalidTask — task не прошёл валидацию.
	ErrInvalidTask = errors.New("invalid task")

	// ErrInvalidFormat — некорректный extraction_format.
	ErrInvalidFormat = errors.New("invalid extraction format")
)

// exactlyOne проверяет, что из набора вариантов задан ровно один.
// names и set идут параллельно.
func exactlyOne(family string, names []string, set []bool) error {
	var chosen []string
	for i, ok := range set {
		if ok {
			chosen = append(chosen, names[i])
		}
	}
	switch len(chosen) {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: %s requires exactly one of %v, got none", ErrInvalidAction, family, names)
	default:
		return fmt.Errorf("%w: %s requires exactly one of %v, got %v", ErrInvalidAction, family, names, chosen)
	}
}
