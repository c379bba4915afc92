// Package minjust scrapes the Ministry of Justice list of undesirable organisations.
package minjust

import (
	"regcheck/internal/scraper"
)

const (
	DefaultURL    = "https://minjust.gov.ru/ru/documents/7756/"
	readySelector = "#documentcontent"
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

func (s *Source) Name() scraper.SourceName { return scraper.Minjust }
func (s *Source) URL() string              { return s.url }
func (s *Source) ReadySelector() string    { return readySelector }
func (s *Source) Steps() []scraper.Step    { return nil }

func (s *Source) Parse(html string) []scraper.Entry { return Parse(html) }
