// Package config loads regcheck settings from a TOML file with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"regcheck/internal/browser"
	"regcheck/internal/captcha"
	"regcheck/internal/fetcher"
	"regcheck/internal/scraper"
	"regcheck/internal/sites/fedsfm"
	"regcheck/internal/sites/fsb"
	"regcheck/internal/sites/minjust"
	"regcheck/internal/sites/rkn"

	"github.com/pelletier/go-toml/v2"
)

// Duration reads values like "5s" or "1m30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func dur(v time.Duration) Duration { return Duration{v} }

type Config struct {
	Browser   BrowserConfig   `toml:"browser"`
	Captcha   CaptchaConfig   `toml:"captcha"`
	Refresh   RefreshConfig   `toml:"refresh"`
	Blocklist BlocklistConfig `toml:"blocklist"`
	Store     StoreConfig     `toml:"store"`
	Logging   LoggingConfig   `toml:"logging"`
}

type BrowserConfig struct {
	Headless  bool   `toml:"headless"`
	Proxy     string `toml:"proxy"`
	UserAgent string `toml:"user_agent"`
	Bin       string `toml:"bin"`   // explicit Chrome binary
	Slots     int64  `toml:"slots"` // concurrent browser flows
}

type CaptchaConfig struct {
	APIKey       string   `toml:"api_key"`
	SubmitURL    string   `toml:"submit_url"`
	ResultURL    string   `toml:"result_url"`
	WarmUp       Duration `toml:"warm_up"`
	PollInterval Duration `toml:"poll_interval"`
	MaxPolls     int      `toml:"max_polls"`
	Deadline     Duration `toml:"deadline"`
	HTTPTimeout  Duration `toml:"http_timeout"`
	Vernet       int      `toml:"vernet"`
	RateLimit    float64  `toml:"rate_limit"` // requests per second
}

type RefreshConfig struct {
	Parallel        bool     `toml:"parallel"`
	Pacing          Duration `toml:"pacing"`
	NavigateTimeout Duration `toml:"navigate_timeout"`
	ReadyTimeout    Duration `toml:"ready_timeout"`
	ClickTimeout    Duration `toml:"click_timeout"`
	SettleDelay     Duration `toml:"settle_delay"`
	ScreenshotDir   string   `toml:"screenshot_dir"`
	MinjustURL      string   `toml:"minjust_url"`
	FedsfmURL       string   `toml:"fedsfm_url"`
	FSBURL          string   `toml:"fsb_url"`
}

type BlocklistConfig struct {
	URL             string   `toml:"url"`
	MaxAttempts     int      `toml:"max_attempts"`
	LoadPause       Duration `toml:"load_pause"`
	ResultPause     Duration `toml:"result_pause"`
	RetryDelay      Duration `toml:"retry_delay"`
	ElementTimeout  Duration `toml:"element_timeout"`
	NavigateTimeout Duration `toml:"navigate_timeout"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // logrus level name
	Format string `toml:"format"` // "text" or "json"
}

// Default returns the settings used when no file or environment overrides them.
func Default() *Config {
	cc := captcha.DefaultConfig()
	fc := fetcher.DefaultConfig()
	st := fedsfm.DefaultTimeouts()
	bc := rkn.DefaultConfig()

	return &Config{
		Browser: BrowserConfig{Headless: true, Slots: 1},
		Captcha: CaptchaConfig{
			SubmitURL:    cc.SubmitURL,
			ResultURL:    cc.ResultURL,
			WarmUp:       dur(cc.WarmUp),
			PollInterval: dur(cc.PollInterval),
			MaxPolls:     cc.MaxPolls,
			Deadline:     dur(cc.Deadline),
			HTTPTimeout:  dur(cc.HTTPTimeout),
			Vernet:       cc.Vernet,
			RateLimit:    cc.RateLimit,
		},
		Refresh: RefreshConfig{
			Pacing:          dur(fc.Pacing),
			NavigateTimeout: dur(fc.NavigateTimeout),
			ReadyTimeout:    dur(fc.ReadyTimeout),
			ClickTimeout:    dur(st.Click),
			SettleDelay:     dur(st.Settle),
			MinjustURL:      minjust.DefaultURL,
			FedsfmURL:       fedsfm.DefaultURL,
			FSBURL:          fsb.DefaultURL,
		},
		Blocklist: BlocklistConfig{
			URL:             bc.URL,
			MaxAttempts:     bc.MaxAttempts,
			LoadPause:       dur(bc.LoadPause),
			ResultPause:     dur(bc.ResultPause),
			RetryDelay:      dur(bc.RetryDelay),
			ElementTimeout:  dur(bc.ElementTimeout),
			NavigateTimeout: dur(bc.NavigateTimeout),
		},
		Store:   StoreConfig{Path: "regcheck.db"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults (skipped when path is empty) and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("REGCHECK_CAPTCHA_KEY"); key != "" {
		cfg.Captcha.APIKey = key
	}
	if db := os.Getenv("REGCHECK_DB"); db != "" {
		cfg.Store.Path = db
	}
	if proxy := os.Getenv("REGCHECK_PROXY"); proxy != "" {
		cfg.Browser.Proxy = proxy
	}
	if level := os.Getenv("REGCHECK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

func (c *Config) BrowserOptions() browser.Config {
	return browser.Config{
		Headless:  c.Browser.Headless,
		ProxyURL:  c.Browser.Proxy,
		UserAgent: c.Browser.UserAgent,
		Bin:       c.Browser.Bin,
	}
}

func (c *Config) CaptchaOptions() captcha.Config {
	cc := c.Captcha
	return captcha.Config{
		APIKey:       cc.APIKey,
		SubmitURL:    cc.SubmitURL,
		ResultURL:    cc.ResultURL,
		WarmUp:       cc.WarmUp.Duration,
		PollInterval: cc.PollInterval.Duration,
		MaxPolls:     cc.MaxPolls,
		Deadline:     cc.Deadline.Duration,
		HTTPTimeout:  cc.HTTPTimeout.Duration,
		Vernet:       cc.Vernet,
		RateLimit:    cc.RateLimit,
	}
}

func (c *Config) FetcherOptions() fetcher.Config {
	return fetcher.Config{
		Parallel:        c.Refresh.Parallel,
		Pacing:          c.Refresh.Pacing.Duration,
		NavigateTimeout: c.Refresh.NavigateTimeout.Duration,
		ReadyTimeout:    c.Refresh.ReadyTimeout.Duration,
		ScreenshotDir:   c.Refresh.ScreenshotDir,
	}
}

// Sources builds the registry sources with the configured URLs and step timeouts.
func (c *Config) Sources() []scraper.Source {
	r := c.Refresh
	return []scraper.Source{
		minjust.New(r.MinjustURL),
		fedsfm.New(fedsfm.Options{
			URL: r.FedsfmURL,
			Timeouts: scraper.StepTimeouts{
				Click:   r.ClickTimeout.Duration,
				Settle:  r.SettleDelay.Duration,
				Visible: r.ClickTimeout.Duration,
			},
		}),
		fsb.New(r.FSBURL),
	}
}

func (c *Config) BlocklistOptions() rkn.Config {
	b := c.Blocklist
	return rkn.Config{
		URL:             b.URL,
		MaxAttempts:     b.MaxAttempts,
		LoadPause:       b.LoadPause.Duration,
		ResultPause:     b.ResultPause.Duration,
		RetryDelay:      b.RetryDelay.Duration,
		ElementTimeout:  b.ElementTimeout.Duration,
		NavigateTimeout: b.NavigateTimeout.Duration,
	}
}
