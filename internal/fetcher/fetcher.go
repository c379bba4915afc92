// Package fetcher runs the registry sources through a browser session and
// collects their parsed entries.
package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"regcheck/internal/scraper"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Session is a driver that owns a browser process.
type Session interface {
	scraper.Driver
	Close() error
}

// Opener starts a new session. Its error is fatal to the run.
type Opener func(ctx context.Context) (Session, error)

type Config struct {
	// Parallel gives every source its own session and runs them concurrently.
	Parallel        bool
	Pacing          time.Duration // between sources in sequential mode
	NavigateTimeout time.Duration
	ReadyTimeout    time.Duration
	// ScreenshotDir receives a PNG of the page when a source fails; empty disables it.
	ScreenshotDir string
}

func DefaultConfig() Config {
	return Config{
		Pacing:          2 * time.Second,
		NavigateTimeout: 40 * time.Second,
		ReadyTimeout:    60 * time.Second,
	}
}

// SourceResult is the outcome for one source. Entries is empty when Err is set.
type SourceResult struct {
	Source   scraper.SourceName
	Entries  []scraper.Entry
	Err      error
	Duration time.Duration
}

type Result struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	// Sources follows the order the sources were given in.
	Sources []SourceResult
}

// Entries returns the entries fetched for name.
func (r Result) Entries(name scraper.SourceName) []scraper.Entry {
	for _, s := range r.Sources {
		if s.Source == name {
			return s.Entries
		}
	}
	return nil
}

type Pipeline struct {
	open    Opener
	sources []scraper.Source
	cfg     Config
	log     *logrus.Entry
}

func New(open Opener, sources []scraper.Source, cfg Config, log *logrus.Entry) *Pipeline {
	return &Pipeline{
		open:    open,
		sources: sources,
		cfg:     cfg,
		log:     log.WithField("component", "fetcher"),
	}
}

// Run fetches every source. Only a session that fails to open, or ctx
// ending, makes Run return an error; per-source failures are recorded in
// the result.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	res := Result{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Sources: make([]SourceResult, len(p.sources)),
	}
	log := p.log.WithField("run_id", res.RunID)
	log.WithField("sources", len(p.sources)).Info("registry fetch started")

	var err error
	if p.cfg.Parallel {
		err = p.runParallel(ctx, log, res.Sources)
	} else {
		err = p.runSequential(ctx, log, res.Sources)
	}
	res.Duration = time.Since(res.Started)
	if err != nil {
		log.WithError(err).Error("registry fetch aborted")
		return res, err
	}

	log.WithField("duration", res.Duration).Info("registry fetch finished")
	return res, nil
}

func (p *Pipeline) runSequential(ctx context.Context, log *logrus.Entry, out []SourceResult) error {
	sess, err := p.open(ctx)
	if err != nil {
		return fmt.Errorf("open browser session: %w", err)
	}
	defer sess.Close()

	for i, src := range p.sources {
		if i > 0 {
			if err := scraper.Pause(ctx, p.cfg.Pacing); err != nil {
				return err
			}
		}
		out[i] = p.fetchSource(ctx, sess, src, log)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runParallel(ctx context.Context, log *logrus.Entry, out []SourceResult) error {
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range p.sources {
		g.Go(func() error {
			sess, err := p.open(gctx)
			if err != nil {
				return fmt.Errorf("open browser session for %s: %w", src.Name(), err)
			}
			defer sess.Close()

			out[i] = p.fetchSource(gctx, sess, src, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// fetchSource never fails the run: any error or panic is captured in the result.
func (p *Pipeline) fetchSource(ctx context.Context, d scraper.Driver, src scraper.Source, log *logrus.Entry) (res SourceResult) {
	start := time.Now()
	res.Source = src.Name()
	log = log.WithField("source", src.Name())

	defer func() {
		if r := recover(); r != nil {
			res.Entries = nil
			res.Err = fmt.Errorf("panic while fetching %s: %v", src.Name(), r)
			log.WithError(res.Err).Error("source fetch panicked")
		}
		res.Duration = time.Since(start)
	}()

	log.WithField("url", src.URL()).Info("fetching source")
	html, err := p.load(ctx, d, src)
	if err != nil {
		res.Err = err
		log.WithError(err).Error("source fetch failed")
		p.saveScreenshot(ctx, d, src.Name(), log)
		return res
	}

	res.Entries = src.Parse(html)
	log.WithField("entries", len(res.Entries)).Info("source parsed")
	return res
}

func (p *Pipeline) load(ctx context.Context, d scraper.Driver, src scraper.Source) (string, error) {
	if err := d.Navigate(ctx, src.URL(), p.cfg.NavigateTimeout); err != nil {
		return "", err
	}
	if err := scraper.RunSteps(ctx, d, src.Steps()); err != nil {
		return "", err
	}
	if sel := src.ReadySelector(); sel != "" {
		if err := d.WaitVisible(ctx, sel, p.cfg.ReadyTimeout); err != nil {
			return "", fmt.Errorf("wait for %s: %w", sel, err)
		}
	}
	return d.PageSource(ctx)
}

func (p *Pipeline) saveScreenshot(ctx context.Context, d scraper.Driver, name scraper.SourceName, log *logrus.Entry) {
	if p.cfg.ScreenshotDir == "" || ctx.Err() != nil {
		return
	}
	img, err := d.Screenshot(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to capture error screenshot")
		return
	}
	path := filepath.Join(p.cfg.ScreenshotDir, fmt.Sprintf("%s_error_%d.png", name, time.Now().Unix()))
	if err := os.WriteFile(path, img, 0644); err != nil {
		log.WithError(err).Warn("failed to save error screenshot")
		return
	}
	log.WithField("path", path).Info("error screenshot saved")
}
