package engine

import (
	"context"
	"fmt"

	"github.com/shaiso/Replay/internal/domain"
)

// runFetch2FA получает 2FA-код и сохраняет его в сгенерированную переменную.
//
// Состояния: idle → timer-armed (click с start_2fa_timer) → code-fetched → injected.
// Таймер сбрасывается после попытки получения, даже неудачной.
func (it *Interpreter) runFetch2FA(ctx context.Context, node *nodeState, a *domain.Fetch2FAAction) error {
	defer node.mem.Clear2FATimer()

	kind := a.Source()
	if kind == domain.TwoFAKindAPICall {
		return fmt.Errorf("%w: 2FA source %s", ErrNotSupported, kind)
	}

	source, ok := it.codes[kind]
	if !ok || source == nil {
		return fmt.Errorf("%w: 2FA source %s is not configured", ErrNotSupported, kind)
	}

	since := node.mem.AutomationState.Start2FATime
	code, err := source.FetchCode(ctx, CodeRequest{
		Action:  a,
		Since:   since,
		MaxWait: domain.Seconds(a.MaxWaitTime),
	})
	if err != nil {
		return fmt.Errorf("fetch 2FA code: %w", err)
	}
	if code == "" {
		return ErrNo2FACode
	}

	node.mem.SetGenerated(a.OutputVariableName, code)
	node.logger.Info("2FA code stored", "source", kind, "variable", a.OutputVariableName)
	return nil
}
