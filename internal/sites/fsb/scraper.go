// Package fsb scrapes the FSB list of organisations recognised as terrorist.
package fsb

import (
	"regcheck/internal/scraper"
)

const (
	DefaultURL    = "http://www.fsb.ru/fsb/npd/terror.htm"
	readySelector = ".table"
)

func init() {
	scraper.Register(New(DefaultURL))
}

type Source struct {
	url string
}

func New(url string) *Source {
	if url == "" {
		url = DefaultURL
	}
	return &Source{url: url}
}

func (s *Source) Name() scraper.SourceName { return scraper.FSB }
func (s *Source) URL() string              { return s.url }
func (s *Source) ReadySelector() string    { return readySelector }
func (s *Source) Steps() []scraper.Step    { return nil }

func (s *Source) Parse(html string) []scraper.Entry { return Parse(html) }
