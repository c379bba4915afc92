package fetcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"regcheck/internal/browser"
	"regcheck/internal/scraper"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession serves a fixed page per URL and fails navigation for URLs in failNav.
type fakeSession struct {
	mu      sync.Mutex
	pages   map[string]string
	failNav map[string]error
	current string
	visited []string
	closed  bool
}

func (s *fakeSession) Navigate(_ context.Context, url string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited = append(s.visited, url)
	if err := s.failNav[url]; err != nil {
		return err
	}
	s.current = url
	return nil
}

func (s *fakeSession) WaitForElement(context.Context, string, time.Duration) error { return nil }
func (s *fakeSession) WaitVisible(context.Context, string, time.Duration) error    { return nil }
func (s *fakeSession) Click(context.Context, string, time.Duration) error          { return nil }

func (s *fakeSession) TypeText(context.Context, string, string, time.Duration) error { return nil }

func (s *fakeSession) PageSource(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[s.current], nil
}

func (s *fakeSession) Screenshot(context.Context) ([]byte, error) { return []byte("png"), nil }

func (s *fakeSession) ElementScreenshot(context.Context, string, time.Duration) ([]byte, error) {
	return nil, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeSource struct {
	name  scraper.SourceName
	url   string
	steps []scraper.Step
	parse func(html string) []scraper.Entry
}

func (s *fakeSource) Name() scraper.SourceName { return s.name }
func (s *fakeSource) URL() string              { return s.url }
func (s *fakeSource) ReadySelector() string    { return "#ready" }
func (s *fakeSource) Steps() []scraper.Step    { return s.steps }

func (s *fakeSource) Parse(html string) []scraper.Entry {
	if s.parse != nil {
		return s.parse(html)
	}
	e, ok := scraper.NewEntry(s.name, html, "")
	if !ok {
		return nil
	}
	return []scraper.Entry{e}
}

func sources() []scraper.Source {
	return []scraper.Source{
		&fakeSource{name: scraper.Minjust, url: "http://minjust"},
		&fakeSource{name: scraper.Fedsfm, url: "http://fedsfm"},
		&fakeSource{name: scraper.FSB, url: "http://fsb"},
	}
}

func pages() map[string]string {
	return map[string]string{
		"http://minjust": "Рога и Копыта",
		"http://fedsfm":  "Иванов Иван",
		"http://fsb":     "Аль-Каида",
	}
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func opener(sessions *[]*fakeSession, mu *sync.Mutex, build func() *fakeSession) Opener {
	return func(context.Context) (Session, error) {
		s := build()
		mu.Lock()
		*sessions = append(*sessions, s)
		mu.Unlock()
		return s, nil
	}
}

func TestRunSequential(t *testing.T) {
	var (
		mu       sync.Mutex
		sessions []*fakeSession
	)
	open := opener(&sessions, &mu, func() *fakeSession { return &fakeSession{pages: pages()} })

	res, err := New(open, sources(), Config{}, testLog()).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].closed)
	assert.Equal(t, []string{"http://minjust", "http://fedsfm", "http://fsb"}, sessions[0].visited)

	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Sources, 3)
	for _, s := range res.Sources {
		assert.NoError(t, s.Err)
		assert.Len(t, s.Entries, 1)
	}
	assert.Equal(t, "Иванов Иван", res.Entries(scraper.Fedsfm)[0].Name)
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	var (
		mu       sync.Mutex
		sessions []*fakeSession
	)
	navErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
	open := opener(&sessions, &mu, func() *fakeSession {
		return &fakeSession{pages: pages(), failNav: map[string]error{"http://minjust": navErr}}
	})

	srcs := sources()
	srcs[1].(*fakeSource).steps = []scraper.Step{{
		Name: "expand",
		Run:  func(context.Context, scraper.Driver) error { return browser.ErrTimeout },
	}}
	srcs[2].(*fakeSource).parse = func(string) []scraper.Entry { panic("unexpected markup") }
	srcs = append(srcs, &fakeSource{name: "extra", url: "http://extra"})

	dir := t.TempDir()
	res, err := New(open, srcs, Config{ScreenshotDir: dir}, testLog()).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Sources, 4)

	assert.ErrorIs(t, res.Sources[0].Err, navErr)
	assert.Empty(t, res.Sources[0].Entries)

	assert.ErrorIs(t, res.Sources[1].Err, browser.ErrTimeout)
	assert.Contains(t, res.Sources[1].Err.Error(), `step "expand"`)

	require.Error(t, res.Sources[2].Err)
	assert.Contains(t, res.Sources[2].Err.Error(), "panic")
	assert.Empty(t, res.Sources[2].Entries)

	assert.NoError(t, res.Sources[3].Err)
	assert.Len(t, res.Sources[3].Entries, 0, "unknown page parses to nothing")

	shots, err := filepath.Glob(filepath.Join(dir, "*.png"))
	require.NoError(t, err)
	assert.Len(t, shots, 2)
	for _, path := range shots {
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "png", string(b))
	}
}

func TestRunSessionInitFailureIsFatal(t *testing.T) {
	open := func(context.Context) (Session, error) { return nil, browser.ErrInit }

	_, err := New(open, sources(), Config{}, testLog()).Run(context.Background())
	require.ErrorIs(t, err, browser.ErrInit)
}

func TestRunParallelUsesOneSessionPerSource(t *testing.T) {
	var (
		mu       sync.Mutex
		sessions []*fakeSession
	)
	open := opener(&sessions, &mu, func() *fakeSession { return &fakeSession{pages: pages()} })

	res, err := New(open, sources(), Config{Parallel: true}, testLog()).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sessions, 3)
	for _, s := range sessions {
		assert.Len(t, s.visited, 1)
		assert.True(t, s.closed)
	}
	for i, name := range scraper.Order {
		assert.Equal(t, name, res.Sources[i].Source)
		assert.Len(t, res.Sources[i].Entries, 1)
	}
}

func TestRunParallelInitFailure(t *testing.T) {
	var opened atomic.Int32
	open := func(context.Context) (Session, error) {
		if opened.Add(1) == 2 {
			return nil, browser.ErrInit
		}
		return &fakeSession{pages: pages()}, nil
	}

	_, err := New(open, sources(), Config{Parallel: true}, testLog()).Run(context.Background())
	require.ErrorIs(t, err, browser.ErrInit)
}

func TestRunCancelledDuringPacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &fakeSession{pages: pages()}
	open := func(context.Context) (Session, error) { return sess, nil }

	srcs := sources()
	srcs[0].(*fakeSource).parse = func(string) []scraper.Entry {
		cancel()
		return nil
	}

	_, err := New(open, srcs, Config{Pacing: time.Hour}, testLog()).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"http://minjust"}, sess.visited)
	assert.True(t, sess.closed)
}
