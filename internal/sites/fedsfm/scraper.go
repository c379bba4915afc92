// Package fedsfm scrapes the Rosfinmonitoring list of terrorists and extremists.
package fedsfm

import (
	"time"

	"regcheck/internal/scraper"
)

const (
	DefaultURL    = "https://fedsfm.ru/documents/terrorists-catalog-portal-act"
	readySelector = "#russianFL"
)

func init() {
	scraper.Register(New(Options{}))
}

type Options struct {
	URL string
	// Timeouts applies to every expand step; zero fields take defaults.
	Timeouts scraper.StepTimeouts
}

func DefaultTimeouts() scraper.StepTimeouts {
	return scraper.StepTimeouts{
		Click:   60 * time.Second,
		Settle:  2 * time.Second,
		Visible: 60 * time.Second,
	}
}

type Source struct {
	url   string
	steps []scraper.Step
}

func New(opts Options) *Source {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	def := DefaultTimeouts()
	t := opts.Timeouts
	if t.Click <= 0 {
		t.Click = def.Click
	}
	if t.Settle <= 0 {
		t.Settle = def.Settle
	}
	if t.Visible <= 0 {
		t.Visible = def.Visible
	}

	// the national part must be open before its two sub-panels can be clicked
	return &Source{
		url: opts.URL,
		steps: []scraper.Step{
			scraper.ClickStep("expand national part", `a[data-toggle="collapse"][href="#NationalPart"]`, "#NationalPart", t),
			scraper.ClickStep("expand organisations", `a[data-toggle="collapse"][href="#russianUL"]`, "#russianUL", t),
			scraper.ClickStep("expand individuals", `a[data-toggle="collapse"][href="#russianFL"]`, "#russianFL", t),
		},
	}
}

func (s *Source) Name() scraper.SourceName { return scraper.Fedsfm }
func (s *Source) URL() string              { return s.url }
func (s *Source) ReadySelector() string    { return readySelector }
func (s *Source) Steps() []scraper.Step    { return s.steps }

func (s *Source) Parse(html string) []scraper.Entry { return Parse(html) }
