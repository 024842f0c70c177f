package browser

import "errors"

var (
	// ErrNoContext возвращается, если у подключённого браузера нет контекста.
	ErrNoContext = errors.New("browser has no context")

	// ErrUnknownIndex возвращается, если элемента с таким номером нет в последнем снимке.
	ErrUnknownIndex = errors.New("no element with this index")

	// ErrInvalidProxy возвращается для URL прокси без схемы или хоста.
	ErrInvalidProxy = errors.New("invalid proxy url")
)
