package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"regcheck/internal/browser"
	"regcheck/internal/captcha"
	"regcheck/internal/fetcher"
	"regcheck/internal/scraper"
	"regcheck/internal/sites/rkn"
	"regcheck/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPipeline struct {
	res fetcher.Result
	err error
}

func (p *stubPipeline) Run(context.Context) (fetcher.Result, error) { return p.res, p.err }

type stubChecker struct {
	domain string
	driver scraper.Driver
	err    error
}

func (c *stubChecker) Check(_ context.Context, d scraper.Driver, domain string) (*rkn.Verdict, error) {
	c.domain, c.driver = domain, d
	if c.err != nil {
		return nil, c.err
	}
	return &rkn.Verdict{Domain: domain, Found: true, Attempts: 1}, nil
}

type nopSession struct {
	scraper.Driver
	closed bool
}

func (s *nopSession) Close() error {
	s.closed = true
	return nil
}

func entry(t *testing.T, src scraper.SourceName, name string) scraper.Entry {
	t.Helper()
	e, ok := scraper.NewEntry(src, name, "")
	require.True(t, ok)
	return e
}

func setup(t *testing.T, p Pipeline, c Checker) (*Service, *store.Store, *nopSession) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	st, err := store.Open(context.Background(), ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sess := &nopSession{}
	open := func(context.Context) (fetcher.Session, error) { return sess, nil }
	return New(p, open, c, st, Options{}, log), st, sess
}

func TestRefreshReplacesOnlyProducedSources(t *testing.T) {
	ctx := context.Background()
	p := &stubPipeline{}
	svc, st, _ := setup(t, p, &stubChecker{})

	p.res = fetcher.Result{RunID: "run-1", Sources: []fetcher.SourceResult{
		{Source: scraper.Minjust, Entries: []scraper.Entry{entry(t, scraper.Minjust, "Рога и Копыта (РИК)")}},
		{Source: scraper.Fedsfm, Entries: []scraper.Entry{entry(t, scraper.Fedsfm, "Иванов Иван Иванович")}},
		{Source: scraper.FSB, Entries: []scraper.Entry{entry(t, scraper.FSB, "Старое Движение")}},
	}}
	report, err := svc.RefreshAllRegistries(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	assert.Zero(t, report.Failed())

	p.res = fetcher.Result{RunID: "run-2", Sources: []fetcher.SourceResult{
		{Source: scraper.Minjust, Err: fmt.Errorf("wait for #documentcontent: %w", browser.ErrTimeout)},
		{Source: scraper.Fedsfm},
		{Source: scraper.FSB, Entries: []scraper.Entry{entry(t, scraper.FSB, "Новая Организация")}},
	}}
	report, err = svc.RefreshAllRegistries(ctx)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 1, report.Failed())

	assert.True(t, report.Outcomes[0].Kept)
	assert.ErrorIs(t, report.Outcomes[0].Err, browser.ErrTimeout)
	assert.True(t, report.Outcomes[1].Kept)
	assert.NoError(t, report.Outcomes[1].Err)
	assert.False(t, report.Outcomes[2].Kept)
	assert.Equal(t, 1, report.Outcomes[2].Written)

	for query, want := range map[string]bool{
		"РИК":               true,
		"иванов":            true,
		"Старое движение":   false,
		"новая организация": true,
	} {
		got, err := svc.Match(ctx, query)
		require.NoError(t, err)
		assert.Equal(t, want, got != nil, query)
	}

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[scraper.SourceName]int{scraper.Minjust: 1, scraper.Fedsfm: 1, scraper.FSB: 1}, counts)
}

func TestRefreshFatalErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	p := &stubPipeline{
		res: fetcher.Result{RunID: "run-x", Sources: []fetcher.SourceResult{
			{Source: scraper.FSB, Entries: []scraper.Entry{entry(t, scraper.FSB, "Частичная")}},
		}},
		err: browser.ErrInit,
	}
	svc, st, _ := setup(t, p, &stubChecker{})

	report, err := svc.RefreshAllRegistries(ctx)
	require.ErrorIs(t, err, browser.ErrInit)
	assert.Equal(t, "run-x", report.RunID)
	assert.Empty(t, report.Outcomes)

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestCheckURL(t *testing.T) {
	c := &stubChecker{}
	svc, _, sess := setup(t, &stubPipeline{}, c)

	v, err := svc.CheckURL(context.Background(), "https://www.Example.com/path?q=1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", c.domain)
	assert.Equal(t, "example.com", v.Domain)
	assert.Same(t, sess, c.driver)
	assert.True(t, sess.closed)
}

func TestCheckURLErrors(t *testing.T) {
	unavailable := fmt.Errorf("%w: submit", captcha.ErrUnavailable)
	exhausted := &rkn.ExhaustedError{Domain: "example.com", Attempts: 15}

	for _, want := range []error{captcha.ErrUnavailable, rkn.ErrRetriesExhausted} {
		var checkErr error = unavailable
		if errors.Is(want, rkn.ErrRetriesExhausted) {
			checkErr = exhausted
		}
		svc, _, sess := setup(t, &stubPipeline{}, &stubChecker{err: checkErr})

		_, err := svc.CheckURL(context.Background(), "example.com")
		require.ErrorIs(t, err, want)
		assert.True(t, sess.closed)
	}

	svc, _, _ := setup(t, &stubPipeline{}, &stubChecker{})
	_, err := svc.CheckURL(context.Background(), "   ")
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestCheckURLWaitsForBrowserSlot(t *testing.T) {
	svc, _, _ := setup(t, &stubPipeline{}, &stubChecker{})
	require.NoError(t, svc.slots.Acquire(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := svc.CheckURL(ctx, "example.com")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// name matching is not gated by the browser slot
	_, err = svc.Match(context.Background(), "anything")
	require.NoError(t, err)
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{"www.example.com", "example.com"},
		{"http://www.example.com/a/b", "example.com"},
		{"https://sub.example.com:8443/", "sub.example.com:8443"},
		{"  EXAMPLE.com  ", "example.com"},
	}
	for _, tt := range tests {
		got, err := NormalizeDomain(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "http://", "http://[::1"} {
		_, err := NormalizeDomain(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, bad)
	}
}

func TestContentRendering(t *testing.T) {
	e := entry(t, scraper.Minjust, "Рога и Копыта")
	m := NewMatchContent("рога", &e)
	text, err := m.ToText()
	require.NoError(t, err)
	assert.Contains(t, text, verdictListed)

	js, err := NewMatchContent("ничего", nil).ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"ничего","matched":false}`, string(js))

	r := NewReportContent(Report{RunID: "r1", Outcomes: []SourceOutcome{
		{Source: scraper.Minjust, Fetched: 2, Written: 2},
		{Source: scraper.FSB, Kept: true, Err: errors.New("boom")},
	}})
	csvOut, err := r.ToCSV()
	require.NoError(t, err)
	assert.Contains(t, csvOut, "r1,minjust,2,2,replaced")
	assert.Contains(t, csvOut, "r1,fsb,0,0,failed: boom")

	js, err = r.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(js), `"error":"boom"`)
}
