package engine

import (
	"context"
	"fmt"

	"github.com/shaiso/Replay/internal/domain"
)

// assertionFormat — формат вердикта LLM-проверки.
var assertionFormat = domain.ExtractionFormat{
	"assertion_result": "bool",
	"assertion_reason": "str",
}

// runAssertion выполняет проверку. Ложный вердикт — фатальная AssertionError.
func (it *Interpreter) runAssertion(ctx context.Context, node *nodeState, a *domain.AssertionAction) error {
	switch {
	case a.LLM != nil:
		data, err := it.extractLLM(ctx, node, a.LLM, assertionFormat)
		if err != nil {
			return err
		}
		result, _ := data["assertion_result"].(bool)
		reason, _ := data["assertion_reason"].(string)
		if !result {
			return &AssertionError{StepIndex: node.step, Reason: reason}
		}
		node.logger.Info("assertion passed", "reason", reason)
		return nil

	case a.NetworkCall != nil:
		return fmt.Errorf("%w: network_call assertion", ErrNotSupported)

	default:
		return fmt.Errorf("%w: python_script assertion", ErrNotSupported)
	}
}
