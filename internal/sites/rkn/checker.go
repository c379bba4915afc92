// Package rkn checks a domain against the Roskomnadzor blocklist search form.
package rkn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"regcheck/internal/captcha"
	"regcheck/internal/scraper"

	"github.com/sirupsen/logrus"
)

const (
	DefaultURL = "https://blocklist.rkn.gov.ru/"

	captchaImage = "#captcha_image"
	captchaInput = "#captcha"
	domainInput  = "#inputMsg"
	submitButton = "#send_but2"
	defaultTries = 15
)

// ErrRetriesExhausted is matched by *ExhaustedError.
var ErrRetriesExhausted = errors.New("blocklist check retries exhausted")

type ExhaustedError struct {
	Domain   string
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("blocklist check for %q failed after %d attempts", e.Domain, e.Attempts)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrRetriesExhausted }

// State of one check attempt.
type State string

const (
	StateStart          State = "START"
	StateCaptchaSolving State = "CAPTCHA_SOLVING"
	StateFormSubmitted  State = "FORM_SUBMITTED"
	StateResultParsed   State = "RESULT_PARSED"
	StateRetry          State = "RETRY"
)

// Solver turns a captcha image into its text. An empty answer with a nil
// error means no solution; captcha.ErrUnavailable aborts the whole check.
type Solver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

type Config struct {
	URL         string
	MaxAttempts int
	// LoadPause follows navigation, ResultPause follows the submit click.
	LoadPause       time.Duration
	ResultPause     time.Duration
	RetryDelay      time.Duration // after an unexpected attempt error
	ElementTimeout  time.Duration
	NavigateTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:             DefaultURL,
		MaxAttempts:     defaultTries,
		LoadPause:       time.Second,
		ResultPause:     5 * time.Second,
		RetryDelay:      5 * time.Second,
		ElementTimeout:  20 * time.Second,
		NavigateTimeout: 40 * time.Second,
	}
}

type Checker struct {
	solver Solver
	cfg    Config
	log    *logrus.Entry
}

func NewChecker(solver Solver, cfg Config, log *logrus.Entry) *Checker {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultTries
	}
	return &Checker{
		solver: solver,
		cfg:    cfg,
		log:    log.WithField("component", "rkn"),
	}
}

// Check drives the search form on d until a result page is parsed or the
// attempt budget runs out. d must not be used by anything else meanwhile.
func (c *Checker) Check(ctx context.Context, d scraper.Driver, domain string) (*Verdict, error) {
	log := c.log.WithField("domain", domain)
	log.WithField("url", c.cfg.URL).Info("starting blocklist check")

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		alog := log.WithField("attempt", fmt.Sprintf("%d/%d", attempt, c.cfg.MaxAttempts))

		v, state, err := c.attempt(ctx, d, domain, alog)
		switch {
		case err == nil && state == StateResultParsed:
			v.Domain = domain
			v.Attempts = attempt
			alog.WithField("found", v.Found).Info("blocklist check finished")
			return v, nil
		case err == nil:
			// StateRetry: no solution or wrong code
			continue
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, captcha.ErrUnavailable):
			alog.WithError(err).Error("captcha solver unavailable, aborting check")
			return nil, err
		case errors.Is(err, captcha.ErrRejected):
			alog.WithError(err).Warn("captcha solver rejected the task")
			if err := scraper.Pause(ctx, c.cfg.RetryDelay); err != nil {
				return nil, err
			}
		default:
			alog.WithError(err).WithField("state", state).Error("blocklist attempt failed")
			if err := scraper.Pause(ctx, c.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}

	log.WithField("attempts", c.cfg.MaxAttempts).Error("blocklist check retries exhausted")
	return nil, &ExhaustedError{Domain: domain, Attempts: c.cfg.MaxAttempts}
}

// attempt runs one pass through the form. It returns StateRetry with a nil
// error when the attempt should simply be repeated.
func (c *Checker) attempt(ctx context.Context, d scraper.Driver, domain string, log *logrus.Entry) (*Verdict, State, error) {
	state := StateStart
	if err := d.Navigate(ctx, c.cfg.URL, c.cfg.NavigateTimeout); err != nil {
		return nil, state, err
	}
	if err := scraper.Pause(ctx, c.cfg.LoadPause); err != nil {
		return nil, state, err
	}

	state = StateCaptchaSolving
	image, err := d.ElementScreenshot(ctx, captchaImage, c.cfg.ElementTimeout)
	if err != nil {
		log.WithError(err).Warn("captcha image not found")
		return nil, StateRetry, nil
	}
	solution, err := c.solver.Solve(ctx, image)
	if err != nil {
		return nil, state, err
	}
	if solution == "" {
		log.Warn("no captcha solution")
		return nil, StateRetry, nil
	}

	state = StateFormSubmitted
	if err := d.TypeText(ctx, captchaInput, solution, c.cfg.ElementTimeout); err != nil {
		return nil, state, err
	}
	if err := d.TypeText(ctx, domainInput, domain, c.cfg.ElementTimeout); err != nil {
		return nil, state, err
	}
	if err := d.Click(ctx, submitButton, c.cfg.ElementTimeout); err != nil {
		return nil, state, err
	}
	log.Info("blocklist form submitted")
	if err := scraper.Pause(ctx, c.cfg.ResultPause); err != nil {
		return nil, state, err
	}

	html, err := d.PageSource(ctx)
	if err != nil {
		return nil, state, err
	}
	if HasInvalidCode(html) {
		log.Warn("site rejected the captcha code")
		return nil, StateRetry, nil
	}

	v := ParseResult(html)
	return &v, StateResultParsed, nil
}
