// Package match answers whether a free-text query matches any cached
// registry record.
//
// A record matches when every word of the cleaned query is a substring of
// the record's search tokens. Results are not ranked; the first match wins.
package match

import (
	"context"
	"fmt"
	"strings"

	"regcheck/internal/normalize"
	"regcheck/internal/scraper"

	"github.com/sirupsen/logrus"
)

// Index finds the first record whose tokens contain every word.
type Index interface {
	FirstMatch(ctx context.Context, words []string) (*scraper.Entry, error)
}

type Engine struct {
	index Index
	log   *logrus.Entry
}

func NewEngine(index Index, log *logrus.Entry) *Engine {
	return &Engine{index: index, log: log.WithField("component", "match")}
}

// Match returns the first matching record, or nil when nothing matches.
// Queries that clean down to nothing never match.
func (e *Engine) Match(ctx context.Context, query string) (*scraper.Entry, error) {
	words := normalize.QueryWords(query)
	if len(words) == 0 {
		return nil, nil
	}
	entry, err := e.index.FirstMatch(ctx, words)
	if err != nil {
		return nil, fmt.Errorf("match %q: %w", query, err)
	}
	e.log.WithFields(logrus.Fields{
		"words":   len(words),
		"matched": entry != nil,
	}).Info("query matched against cache")
	return entry, nil
}

// Contains reports whether every word is a substring of tokens.
func Contains(tokens string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if w == "" || !strings.Contains(tokens, w) {
			return false
		}
	}
	return true
}

// MemoryIndex is an in-process Index over a fixed slice of entries.
type MemoryIndex []scraper.Entry

func (m MemoryIndex) FirstMatch(_ context.Context, words []string) (*scraper.Entry, error) {
	for i := range m {
		if Contains(m[i].SearchTokens, words) {
			e := m[i]
			return &e, nil
		}
	}
	return nil, nil
}
