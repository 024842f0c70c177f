package twofa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/engine"
)

// Секрет "12345678901234567890" из RFC 6238 в base32.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func request(secret string, digits int) engine.CodeRequest {
	return engine.CodeRequest{
		Action: &domain.Fetch2FAAction{
			OutputVariableName: "code",
			TOTP:               &domain.TOTP2FASource{Secret: secret, Digits: digits},
		},
	}
}

func TestTOTP_RFCVectors(t *testing.T) {
	src := &TOTP{Now: func() time.Time { return time.Unix(59, 0).UTC() }}

	code, err := src.FetchCode(context.Background(), request(rfcSecret, 8))
	require.NoError(t, err)
	assert.Equal(t, "94287082", code)

	src.Now = func() time.Time { return time.Unix(1111111109, 0).UTC() }
	code, err = src.FetchCode(context.Background(), request(rfcSecret, 8))
	require.NoError(t, err)
	assert.Equal(t, "07081804", code)
}

func TestTOTP_NormalizesSecret(t *testing.T) {
	src := &TOTP{Now: func() time.Time { return time.Unix(59, 0).UTC() }}

	code, err := src.FetchCode(context.Background(), request("gezd gnbv gy3t qojq gezd gnbv gy3t qojq", 6))
	require.NoError(t, err)
	assert.Equal(t, "287082", code)
}

func TestTOTP_Errors(t *testing.T) {
	src := &TOTP{}

	_, err := src.FetchCode(context.Background(), engine.CodeRequest{Action: &domain.Fetch2FAAction{}})
	assert.ErrorIs(t, err, ErrNoTOTPSource)

	_, err = src.FetchCode(context.Background(), request(rfcSecret, 7))
	assert.ErrorIs(t, err, ErrBadDigits)

	_, err = src.FetchCode(context.Background(), request("not base32 !!", 6))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.FetchCode(ctx, request(rfcSecret, 6))
	assert.ErrorIs(t, err, context.Canceled)
}
