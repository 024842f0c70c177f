package twofa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/shaiso/Replay/internal/engine"
)

// TOTP генерирует код по секрету из действия.
type TOTP struct {
	// Period — шаг кода, по умолчанию 30 секунд.
	Period uint

	// Now подменяется в тестах.
	Now func() time.Time
}

var _ engine.CodeSource = (*TOTP)(nil)

// FetchCode вычисляет текущий код.
func (t *TOTP) FetchCode(ctx context.Context, req engine.CodeRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Action == nil || req.Action.TOTP == nil {
		return "", ErrNoTOTPSource
	}

	digits, err := toDigits(req.Action.TOTP.Digits)
	if err != nil {
		return "", err
	}

	period := t.Period
	if period == 0 {
		period = 30
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	// Секреты часто копируют с пробелами и в нижнем регистре.
	secret := strings.ToUpper(strings.ReplaceAll(req.Action.TOTP.Secret, " ", ""))

	code, err := totp.GenerateCodeCustom(secret, now(), totp.ValidateOpts{
		Period:    period,
		Digits:    digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp: %w", err)
	}
	return code, nil
}

func toDigits(n int) (otp.Digits, error) {
	switch n {
	case 0, 6:
		return otp.DigitsSix, nil
	case 8:
		return otp.DigitsEight, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrBadDigits, n)
	}
}
