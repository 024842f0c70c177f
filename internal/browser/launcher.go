package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/playwright-community/playwright-go"
)

// Launcher запускает Chromium, доступный по CDP на заданном порту.
type Launcher struct {
	Headless bool
	Channel  string
	Args     []string
	Logger   *slog.Logger
}

// Session — запущенный браузер.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	port    int
	logger  *slog.Logger
}

// Launch запускает драйвер Playwright и Chromium с --remote-debugging-port.
// Непустой proxy направляет весь трафик браузера через прокси.
func (l *Launcher) Launch(ctx context.Context, port int, proxy string) (*Session, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var proxySettings *playwright.Proxy
	if proxy != "" {
		p, err := ProxySettings(proxy)
		if err != nil {
			return nil, err
		}
		proxySettings = p
	}

	pw, err := playwright.Run(&playwright.RunOptions{Verbose: false})
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	args := append([]string{fmt.Sprintf("--remote-debugging-port=%d", port)}, l.Args...)
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.Headless),
		Args:     args,
		Timeout:  timeoutMs(ctx),
		Proxy:    proxySettings,
	}
	if l.Channel != "" {
		opts.Channel = playwright.String(l.Channel)
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	logger.Info("browser launched", "port", port, "headless", l.Headless, "proxy", proxy != "", "version", browser.Version())
	return &Session{pw: pw, browser: browser, port: port, logger: logger}, nil
}

// CDPURL возвращает адрес для ConnectOverCDP.
func (s *Session) CDPURL() string {
	return CDPURL(s.port)
}

// Stop останавливает браузер. graceful закрывает браузер через протокол,
// иначе драйвер просто останавливается вместе с дочерними процессами.
func (s *Session) Stop(_ context.Context, graceful bool) error {
	if graceful {
		if err := s.browser.Close(); err != nil {
			s.logger.Warn("graceful browser close failed", "error", err)
		}
	}
	if err := s.pw.Stop(); err != nil {
		return fmt.Errorf("stop playwright: %w", err)
	}
	s.logger.Info("browser stopped", "port", s.port, "graceful", graceful)
	return nil
}

// CDPURL возвращает адрес CDP локального браузера на порту.
func CDPURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d", port)
}

// ProxySettings разбирает URL прокси. Chromium не принимает учётные данные
// в адресе сервера, поэтому они передаются отдельно.
func ProxySettings(raw string) (*playwright.Proxy, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, raw)
	}
	p := &playwright.Proxy{Server: u.Scheme + "://" + u.Host}
	if u.User != nil {
		p.Username = playwright.String(u.User.Username())
		if pass, ok := u.User.Password(); ok {
			p.Password = playwright.String(pass)
		}
	}
	return p, nil
}
