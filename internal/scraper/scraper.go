package scraper

import (
	"context"
	"strings"
	"time"

	"regcheck/internal/normalize"
)

// SourceName identifies one of the cached registries.
type SourceName string

const (
	Minjust SourceName = "minjust"
	Fedsfm  SourceName = "fedsfm"
	FSB     SourceName = "fsb"
)

// Order is the fixed order in which registries are refreshed.
var Order = []SourceName{Minjust, Fedsfm, FSB}

// ParseSourceName accepts the canonical names plus the historical "fedfsm" spelling.
func ParseSourceName(s string) (SourceName, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minjust":
		return Minjust, true
	case "fedsfm", "fedfsm":
		return Fedsfm, true
	case "fsb":
		return FSB, true
	}
	return "", false
}

// Entry is one registry record. Name is never empty.
type Entry struct {
	Source       SourceName `json:"source"`
	Name         string     `json:"name"`
	Details      string     `json:"details"`
	SearchTokens string     `json:"search_tokens"`
}

// NewEntry builds an Entry with its search tokens. ok is false for an empty name.
func NewEntry(source SourceName, name, details string) (Entry, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entry{}, false
	}
	return Entry{
		Source:       source,
		Name:         name,
		Details:      details,
		SearchTokens: normalize.Tokens(name, details),
	}, true
}

// Driver is the browser surface used by site packages. Implementations are
// not safe for concurrent use by more than one flow.
type Driver interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	TypeText(ctx context.Context, selector, text string, timeout time.Duration) error
	PageSource(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	ElementScreenshot(ctx context.Context, selector string, timeout time.Duration) ([]byte, error)
}

// Source describes how to fetch and parse one registry page.
type Source interface {
	Name() SourceName
	URL() string
	// ReadySelector must be visible before the page source is captured.
	ReadySelector() string
	// Steps run after navigation and before the readiness wait.
	Steps() []Step
	Parse(html string) []Entry
}

type Content interface {
	ToHTML() (string, error)
	ToText() (string, error)
	ToMarkdown() (string, error)
	ToJSON() ([]byte, error)
	ToCSV() (string, error)
}
