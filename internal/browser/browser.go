package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"

var (
	// ErrInit means the browser process could not be started or reached.
	ErrInit = errors.New("browser init failed")
	// ErrTimeout means an expected element or page state never appeared.
	ErrTimeout = errors.New("browser wait timed out")
	// ErrClosed is returned by any call after Close.
	ErrClosed = errors.New("browser session closed")
)

// Config holds browser launch options
type Config struct {
	Headless  bool
	ProxyURL  string
	UserAgent string
	// Bin is an explicit Chrome binary; empty lets the launcher find or download one.
	Bin string
}

// Session owns one browser process and one page. Calls are serialized.
type Session struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	log      *logrus.Entry
	closed   bool
}

// Open launches a browser and prepares a stealth page.
// Callers must Close the session on every path.
func Open(cfg Config, log *logrus.Entry) (*Session, error) {
	log = log.WithField("component", "browser")

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("disable-extensions").
		Set("window-size", "1920,1080")
	if cfg.ProxyURL != "" {
		l = l.Proxy(cfg.ProxyURL)
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	log.WithField("headless", cfg.Headless).Info("launching browser")
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch: %v", ErrInit, err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: connect: %v", ErrInit, err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("%w: page: %v", ErrInit, err)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
		log.WithError(err).Warn("failed to set user agent")
	}

	return &Session{
		browser:  b,
		launcher: l,
		page:     page,
		log:      log,
	}, nil
}

// withPage runs fn against the page bound to ctx and timeout while holding the session lock.
func (s *Session) withPage(ctx context.Context, timeout time.Duration, what string, fn func(p *rod.Page) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	p := s.page.Context(ctx)
	if timeout > 0 {
		p = p.Timeout(timeout)
		defer p.CancelTimeout()
	}
	return wrapErr(ctx, what, fn(p))
}

func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	s.log.WithField("url", url).Debug("navigate")
	return s.withPage(ctx, timeout, "navigate "+url, func(p *rod.Page) error {
		if err := p.Navigate(url); err != nil {
			return err
		}
		return p.WaitLoad()
	})
}

// WaitForElement waits until selector is present in the DOM.
func (s *Session) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	return s.withPage(ctx, timeout, "wait for "+selector, func(p *rod.Page) error {
		_, err := p.Element(selector)
		return err
	})
}

// WaitVisible waits until selector is present and visible.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.withPage(ctx, timeout, "wait visible "+selector, func(p *rod.Page) error {
		el, err := p.Element(selector)
		if err != nil {
			return err
		}
		return el.WaitVisible()
	})
}

// Click waits for selector to be visible, scrolls it into view and clicks it.
func (s *Session) Click(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.withPage(ctx, timeout, "click "+selector, func(p *rod.Page) error {
		el, err := p.Element(selector)
		if err != nil {
			return err
		}
		if err := el.WaitVisible(); err != nil {
			return err
		}
		if err := el.ScrollIntoView(); err != nil {
			return err
		}
		return el.Click(proto.InputMouseButtonLeft, 1)
	})
	if err == nil {
		s.log.WithField("selector", selector).Info("clicked element")
	}
	return err
}

func (s *Session) TypeText(ctx context.Context, selector, text string, timeout time.Duration) error {
	return s.withPage(ctx, timeout, "type into "+selector, func(p *rod.Page) error {
		el, err := p.Element(selector)
		if err != nil {
			return err
		}
		return el.Input(text)
	})
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	var html string
	err := s.withPage(ctx, 0, "page source", func(p *rod.Page) error {
		var err error
		html, err = p.HTML()
		return err
	})
	return html, err
}

// Screenshot captures the visible viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var img []byte
	err := s.withPage(ctx, 0, "screenshot", func(p *rod.Page) error {
		var err error
		img, err = p.Screenshot(false, nil)
		return err
	})
	return img, err
}

// ElementScreenshot waits for selector to be visible and captures it as PNG.
func (s *Session) ElementScreenshot(ctx context.Context, selector string, timeout time.Duration) ([]byte, error) {
	var img []byte
	err := s.withPage(ctx, timeout, "screenshot "+selector, func(p *rod.Page) error {
		el, err := p.Element(selector)
		if err != nil {
			return err
		}
		if err := el.WaitVisible(); err != nil {
			return err
		}
		img, err = el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
		return err
	})
	return img, err
}

// Close closes the page and browser and kills the launched process.
// It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
	s.log.Info("browser closed")
	return err
}

// wrapErr maps deadline expiry to ErrTimeout unless the caller's own
// context was cancelled.
func wrapErr(ctx context.Context, what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return fmt.Errorf("%s: %w", what, ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", what, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
