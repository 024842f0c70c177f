package twofa

import "errors"

var (
	// ErrNoTOTPSource возвращается, если в действии нет блока totp.
	ErrNoTOTPSource = errors.New("action has no totp source")

	// ErrBadDigits возвращается для длины кода, которую не поддерживает otp.
	ErrBadDigits = errors.New("unsupported totp digits")
)
