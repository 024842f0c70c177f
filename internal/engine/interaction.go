package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shaiso/Replay/internal/domain"
)

// runInteraction выполняет interaction-действие в две фазы.
//
// Командная фаза идёт через Retrier. Fallback через LLM запускается, если
// команда не задана или все попытки провалились, prompt_instructions заданы
// и skip_prompt=false. Fallback одноразовый, его ошибки поглощаются.
func (it *Interpreter) runInteraction(ctx context.Context, node *nodeState, a *domain.InteractionAction) error {
	retrier := Retrier{
		MaxTries: a.MaxTries,
		Timeout:  a.PerTryTimeout(),
		Logger:   node.logger.With("interaction", a.Variant()),
	}

	switch {
	case a.ClickElement != nil:
		// Таймер 2FA взводит только click.
		if a.Start2FATimer {
			node.mem.Arm2FATimer(it.now())
			node.logger.Debug("2FA timer armed")
		}
		return it.click(ctx, node, retrier, a.ClickElement)
	case a.InputText != nil:
		return it.inputText(ctx, node, retrier, a.InputText)
	case a.SelectOption != nil:
		return it.selectOption(ctx, node, retrier, a.SelectOption)
	case a.Check != nil:
		return it.check(ctx, node, retrier, a.Check)
	case a.GoBack != nil:
		return it.goBack(ctx, node)
	default:
		return fmt.Errorf("%w: empty interaction", ErrNotSupported)
	}
}

func (it *Interpreter) click(ctx context.Context, node *nodeState, retrier Retrier, c *domain.ClickElementAction) error {
	command := node.sub(c.Command)
	filename := node.sub(c.DownloadFilename)

	var attempter Attempter
	if command != "" {
		attempter = AttemptFunc(func(actx context.Context) error {
			return it.withDownload(ctx, actx, node, c.ExpectDownload, filename, func(tctx context.Context) error {
				return it.browser.Click(tctx, command, c.DoubleClick)
			})
		})
	}

	retrier.Escalate = c.AssertLocatorPresence
	outcome, err := retrier.Do(ctx, attempter)
	if err != nil {
		return err
	}
	if !needsFallback(outcome, c.SkipPrompt, c.PromptInstructions) {
		return nil
	}

	op := IndexedOp{Kind: OpClick}
	if c.DoubleClick {
		op.Kind = OpDoubleClick
	}
	it.fallback(ctx, node, node.sub(c.PromptInstructions), func(fctx context.Context, index int) error {
		op.Index = index
		return it.withDownload(ctx, fctx, node, c.ExpectDownload, filename, func(tctx context.Context) error {
			return it.browser.PerformIndexed(tctx, op)
		})
	})
	return nil
}

func (it *Interpreter) inputText(ctx context.Context, node *nodeState, retrier Retrier, in *domain.InputTextAction) error {
	command := node.sub(in.Command)
	text := node.sub(in.InputText)

	var attempter Attempter
	if command != "" {
		attempter = AttemptFunc(func(actx context.Context) error {
			return it.browser.Input(actx, command, text, in.FillOrType)
		})
	}

	retrier.Escalate = in.AssertLocatorPresence
	outcome, err := retrier.Do(ctx, attempter)
	if err != nil {
		return err
	}
	if !needsFallback(outcome, in.SkipPrompt, in.PromptInstructions) {
		return nil
	}

	it.fallback(ctx, node, node.sub(in.PromptInstructions), func(fctx context.Context, index int) error {
		return it.browser.PerformIndexed(fctx, IndexedOp{
			Kind:  OpInput,
			Index: index,
			Text:  text,
			Mode:  in.FillOrType,
		})
	})
	return nil
}

func (it *Interpreter) selectOption(ctx context.Context, node *nodeState, retrier Retrier, s *domain.SelectOptionAction) error {
	command := node.sub(s.Command)
	values := SubstituteAll(s.SelectValues, node.lookup)
	filename := node.sub(s.DownloadFilename)

	var attempter Attempter
	if command != "" {
		attempter = AttemptFunc(func(actx context.Context) error {
			return it.withDownload(ctx, actx, node, s.ExpectDownload, filename, func(tctx context.Context) error {
				return it.browser.SelectOption(tctx, command, values)
			})
		})
	}

	retrier.Escalate = s.AssertLocatorPresence
	outcome, err := retrier.Do(ctx, attempter)
	if err != nil {
		return err
	}
	if !needsFallback(outcome, s.SkipPrompt, s.PromptInstructions) {
		return nil
	}

	// По индексу выбирается только первое значение.
	op := IndexedOp{Kind: OpSelect, Values: values[:1]}
	it.fallback(ctx, node, node.sub(s.PromptInstructions), func(fctx context.Context, index int) error {
		op.Index = index
		return it.withDownload(ctx, fctx, node, s.ExpectDownload, filename, func(tctx context.Context) error {
			return it.browser.PerformIndexed(tctx, op)
		})
	})
	return nil
}

func (it *Interpreter) check(ctx context.Context, node *nodeState, retrier Retrier, c *domain.CheckAction) error {
	command := node.sub(c.Command)

	retrier.Escalate = c.AssertLocatorPresence
	_, err := retrier.Do(ctx, AttemptFunc(func(actx context.Context) error {
		return it.browser.Check(actx, command, c.Uncheck)
	}))
	return err
}

func (it *Interpreter) goBack(ctx context.Context, node *nodeState) error {
	if !it.browser.HasPage() {
		node.logger.Debug("go back skipped: no page")
		return nil
	}
	navCtx, cancel := context.WithTimeout(ctx, it.navigateTimeout)
	defer cancel()
	return it.browser.GoBack(navCtx)
}

// needsFallback решает, запускать ли LLM-fallback после командной фазы.
func needsFallback(outcome Outcome, skipPrompt bool, instructions string) bool {
	if outcome == OutcomeSucceeded {
		return false
	}
	return !skipPrompt && instructions != ""
}

// withDownload выполняет trigger, при необходимости ловя загрузку.
//
// trigger получает triggerCtx (таймаут попытки), ожидание загрузки
// ограничено downloadTimeout от nodeCtx: загрузка стартует позже, чем
// заканчивается клик.
func (it *Interpreter) withDownload(
	nodeCtx, triggerCtx context.Context,
	node *nodeState,
	expect bool,
	filename string,
	trigger func(ctx context.Context) error,
) error {
	if !expect {
		return trigger(triggerCtx)
	}

	dlCtx, cancel := context.WithTimeout(nodeCtx, it.downloadTimeout)
	defer cancel()

	download, err := it.browser.CaptureDownload(dlCtx, func(context.Context) error {
		return trigger(triggerCtx)
	})
	if err != nil {
		return err
	}

	name := filename
	if name == "" {
		name = uuid.NewString() + filepath.Ext(download.SuggestedFilename())
	}
	path := filepath.Join(node.mem.Dirs.Downloads, filepath.Base(name))
	if err := download.SaveAs(path); err != nil {
		return fmt.Errorf("save download: %w", err)
	}

	node.mem.AddDownload(path)
	node.logger.Info("download saved", "path", path)
	return nil
}
