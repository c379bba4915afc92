// Package service exposes the three entry points used by callers: refresh
// the registry cache, check a URL against the blocklist, and match a name.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"regcheck/internal/fetcher"
	"regcheck/internal/match"
	"regcheck/internal/scraper"
	"regcheck/internal/sites/rkn"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var ErrInvalidURL = errors.New("invalid url")

// Store is the persistence collaborator. ReplaceSourceRecords must swap a
// source's rows in one transaction.
type Store interface {
	match.Index
	ReplaceSourceRecords(ctx context.Context, source scraper.SourceName, entries []scraper.Entry) error
}

type Pipeline interface {
	Run(ctx context.Context) (fetcher.Result, error)
}

type Checker interface {
	Check(ctx context.Context, d scraper.Driver, domain string) (*rkn.Verdict, error)
}

type Options struct {
	// BrowserSlots caps concurrently running browser flows; defaults to 1.
	BrowserSlots int64
}

type Service struct {
	pipeline Pipeline
	open     fetcher.Opener
	checker  Checker
	store    Store
	engine   *match.Engine
	slots    *semaphore.Weighted
	log      *logrus.Entry
}

func New(pipeline Pipeline, open fetcher.Opener, checker Checker, store Store, opts Options, log *logrus.Entry) *Service {
	if opts.BrowserSlots <= 0 {
		opts.BrowserSlots = 1
	}
	return &Service{
		pipeline: pipeline,
		open:     open,
		checker:  checker,
		store:    store,
		engine:   match.NewEngine(store, log),
		slots:    semaphore.NewWeighted(opts.BrowserSlots),
		log:      log.WithField("component", "service"),
	}
}

// SourceOutcome reports what a refresh did for one source.
type SourceOutcome struct {
	Source  scraper.SourceName `json:"source"`
	Fetched int                `json:"fetched"`
	Written int                `json:"written"`
	// Kept is true when the previous cache for the source was left untouched.
	Kept bool  `json:"kept"`
	Err  error `json:"-"`
}

type Report struct {
	RunID    string          `json:"run_id"`
	Started  time.Time       `json:"started"`
	Duration time.Duration   `json:"duration"`
	Outcomes []SourceOutcome `json:"outcomes"`
}

// Failed returns the number of sources that ended with an error.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// RefreshAllRegistries fetches every registry and replaces the cache of each
// source that produced entries. Sources that failed or came back empty keep
// their previous rows.
func (s *Service) RefreshAllRegistries(ctx context.Context) (Report, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return Report{}, err
	}
	defer s.slots.Release(1)

	res, err := s.pipeline.Run(ctx)
	report := Report{RunID: res.RunID, Started: res.Started, Duration: res.Duration}
	if err != nil {
		return report, fmt.Errorf("refresh registries: %w", err)
	}

	log := s.log.WithField("run_id", res.RunID)
	for _, sr := range res.Sources {
		out := SourceOutcome{Source: sr.Source, Fetched: len(sr.Entries), Kept: true}
		srcLog := log.WithField("source", sr.Source)

		switch {
		case sr.Err != nil:
			out.Err = sr.Err
			srcLog.WithError(sr.Err).Warn("source failed, keeping cached records")
		case len(sr.Entries) == 0:
			srcLog.Warn("source returned no records, keeping cached records")
		default:
			if err := s.store.ReplaceSourceRecords(ctx, sr.Source, sr.Entries); err != nil {
				out.Err = err
				srcLog.WithError(err).Error("failed to replace cached records")
				break
			}
			out.Written = len(sr.Entries)
			out.Kept = false
			srcLog.WithField("records", out.Written).Info("cached records replaced")
		}
		report.Outcomes = append(report.Outcomes, out)
	}
	return report, nil
}

// CheckURL checks rawURL's domain against the blocklist in its own browser session.
// It returns captcha.ErrUnavailable or rkn.ErrRetriesExhausted when the check
// could not complete.
func (s *Service) CheckURL(ctx context.Context, rawURL string) (*rkn.Verdict, error) {
	domain, err := NormalizeDomain(rawURL)
	if err != nil {
		return nil, err
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.slots.Release(1)

	sess, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer sess.Close()

	return s.checker.Check(ctx, sess, domain)
}

// Match returns the first cached record matching query, or nil. It does not
// wait for browser flows.
func (s *Service) Match(ctx context.Context, query string) (*scraper.Entry, error) {
	return s.engine.Match(ctx, query)
}

// NormalizeDomain reduces a URL or bare host to its host, without "www.".
func NormalizeDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", fmt.Errorf("%w: no host in %q", ErrInvalidURL, raw)
	}
	return host, nil
}
