package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"

	"github.com/shaiso/Replay/internal/domain"
	"github.com/shaiso/Replay/internal/engine"
)

// Playwright — страница браузера, к которому подключились по CDP.
type Playwright struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  *slog.Logger
}

var _ engine.Browser = (*Playwright)(nil)

// Connect подключается к запущенному Chromium и берёт первую открытую
// страницу (или открывает новую).
func Connect(ctx context.Context, cdpURL string, logger *slog.Logger) (*Playwright, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run(&playwright.RunOptions{Verbose: false})
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.ConnectOverCDP(cdpURL, playwright.BrowserTypeConnectOverCDPOptions{
		Timeout: timeoutMs(ctx),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("connect over cdp %s: %w", cdpURL, err)
	}

	page, err := firstPage(browser)
	if err != nil {
		_ = pw.Stop()
		return nil, err
	}

	logger.Info("connected to browser", "cdp_url", cdpURL, "url", page.URL())
	return &Playwright{pw: pw, browser: browser, page: page, logger: logger}, nil
}

func firstPage(browser playwright.Browser) (playwright.Page, error) {
	contexts := browser.Contexts()
	if len(contexts) == 0 {
		bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{AcceptDownloads: playwright.Bool(true)})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoContext, err)
		}
		contexts = []playwright.BrowserContext{bctx}
	}

	if pages := contexts[0].Pages(); len(pages) > 0 {
		return pages[0], nil
	}
	page, err := contexts[0].NewPage()
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	return page, nil
}

// Close отключается от браузера. Сам браузер продолжает работать.
func (p *Playwright) Close() error {
	if err := p.browser.Close(); err != nil {
		p.logger.Warn("disconnect from browser failed", "error", err)
	}
	return p.pw.Stop()
}

// HasPage сообщает, открыта ли страница.
func (p *Playwright) HasPage() bool {
	return p.page != nil && !p.page.IsClosed()
}

func (p *Playwright) locator(command string) (playwright.Locator, error) {
	if !p.HasPage() {
		return nil, engine.ErrNoPage
	}
	return p.page.Locator(command).First(), nil
}

// Navigate открывает URL.
func (p *Playwright) Navigate(ctx context.Context, url string) error {
	if !p.HasPage() {
		return engine.ErrNoPage
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeoutMs(ctx),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("goto %s: %w", url, err)
	}
	return nil
}

// Click кликает по элементу.
func (p *Playwright) Click(ctx context.Context, command string, double bool) error {
	loc, err := p.locator(command)
	if err != nil {
		return err
	}
	return clickLocator(ctx, loc, double)
}

func clickLocator(ctx context.Context, loc playwright.Locator, double bool) error {
	if double {
		return loc.Dblclick(playwright.LocatorDblclickOptions{Timeout: timeoutMs(ctx)})
	}
	return loc.Click(playwright.LocatorClickOptions{Timeout: timeoutMs(ctx)})
}

// Input вводит текст.
func (p *Playwright) Input(ctx context.Context, command, text string, mode domain.InputMode) error {
	loc, err := p.locator(command)
	if err != nil {
		return err
	}
	return inputLocator(ctx, loc, text, mode)
}

func inputLocator(ctx context.Context, loc playwright.Locator, text string, mode domain.InputMode) error {
	if mode == domain.InputModeType {
		return loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{Timeout: timeoutMs(ctx)})
	}
	return loc.Fill(text, playwright.LocatorFillOptions{Timeout: timeoutMs(ctx)})
}

// SelectOption выбирает значения.
func (p *Playwright) SelectOption(ctx context.Context, command string, values []string) error {
	loc, err := p.locator(command)
	if err != nil {
		return err
	}
	return selectLocator(ctx, loc, values)
}

func selectLocator(ctx context.Context, loc playwright.Locator, values []string) error {
	_, err := loc.SelectOption(
		playwright.SelectOptionValues{Values: &values},
		playwright.LocatorSelectOptionOptions{Timeout: timeoutMs(ctx)},
	)
	return err
}

// Check отмечает или снимает отметку.
func (p *Playwright) Check(ctx context.Context, command string, uncheck bool) error {
	loc, err := p.locator(command)
	if err != nil {
		return err
	}
	if uncheck {
		return loc.Uncheck(playwright.LocatorUncheckOptions{Timeout: timeoutMs(ctx)})
	}
	return loc.Check(playwright.LocatorCheckOptions{Timeout: timeoutMs(ctx)})
}

// GoBack переходит назад.
func (p *Playwright) GoBack(ctx context.Context) error {
	if !p.HasPage() {
		return engine.ErrNoPage
	}
	_, err := p.page.GoBack(playwright.PageGoBackOptions{Timeout: timeoutMs(ctx)})
	return err
}

// Snapshot нумерует интерактивные элементы и снимает состояние страницы.
func (p *Playwright) Snapshot(ctx context.Context, withScreenshot bool) (*domain.BrowserState, error) {
	if !p.HasPage() {
		return nil, engine.ErrNoPage
	}

	if _, err := p.page.Evaluate(markInteractiveJS); err != nil {
		return nil, fmt.Errorf("mark interactive elements: %w", err)
	}

	html, err := p.page.Content()
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}
	axtree, err := BuildAxtree(html)
	if err != nil {
		return nil, err
	}

	title, err := p.page.Title()
	if err != nil {
		p.logger.Debug("page title unavailable", "error", err)
	}

	state := &domain.BrowserState{
		URL:    p.page.URL(),
		Title:  title,
		HTML:   html,
		Axtree: axtree,
	}

	if withScreenshot {
		png, err := p.Screenshot(ctx, false)
		if err != nil {
			return nil, err
		}
		state.Screenshot = base64.StdEncoding.EncodeToString(png)
	}
	return state, nil
}

// PerformIndexed выполняет операцию над элементом из последнего Snapshot.
func (p *Playwright) PerformIndexed(ctx context.Context, op engine.IndexedOp) error {
	if !p.HasPage() {
		return engine.ErrNoPage
	}

	loc := p.page.Locator(indexSelector(op.Index))
	n, err := loc.Count()
	if err != nil {
		return fmt.Errorf("find element %d: %w", op.Index, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrUnknownIndex, op.Index)
	}
	loc = loc.First()

	switch op.Kind {
	case engine.OpClick:
		return clickLocator(ctx, loc, false)
	case engine.OpDoubleClick:
		return clickLocator(ctx, loc, true)
	case engine.OpInput:
		return inputLocator(ctx, loc, op.Text, op.Mode)
	case engine.OpSelect:
		return selectLocator(ctx, loc, op.Values)
	default:
		return fmt.Errorf("%w: indexed %s", engine.ErrNotSupported, op.Kind)
	}
}

// Screenshot возвращает PNG страницы.
func (p *Playwright) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if !p.HasPage() {
		return nil, engine.ErrNoPage
	}
	png, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
		Timeout:  timeoutMs(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return png, nil
}

// CaptureDownload выполняет trigger и ждёт загрузку, которую он начал.
func (p *Playwright) CaptureDownload(ctx context.Context, trigger func(ctx context.Context) error) (engine.Download, error) {
	if !p.HasPage() {
		return nil, engine.ErrNoPage
	}
	download, err := p.page.ExpectDownload(func() error {
		return trigger(ctx)
	}, playwright.PageExpectDownloadOptions{Timeout: timeoutMs(ctx)})
	if err != nil {
		return nil, fmt.Errorf("expect download: %w", err)
	}
	return download, nil
}
