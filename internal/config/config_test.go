package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"regcheck/internal/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REGCHECK_CAPTCHA_KEY", "")
	t.Setenv("REGCHECK_DB", "")
	t.Setenv("REGCHECK_PROXY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 20, cfg.Captcha.MaxPolls)
	assert.Equal(t, 10*time.Second, cfg.Captcha.WarmUp.Duration)
	assert.Equal(t, 15, cfg.Blocklist.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Refresh.Pacing.Duration)
	assert.Equal(t, "regcheck.db", cfg.Store.Path)

	names := []scraper.SourceName{}
	for _, s := range cfg.Sources() {
		names = append(names, s.Name())
	}
	assert.Equal(t, scraper.Order, names)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regcheck.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[browser]
headless = false

[captcha]
api_key = "from-file"
poll_interval = "750ms"

[refresh]
parallel = true
settle_delay = "3s"
fsb_url = "http://mirror.local/terror.htm"

[blocklist]
max_attempts = 4

[logging]
format = "json"
`), 0644))

	t.Setenv("REGCHECK_CAPTCHA_KEY", "from-env")
	t.Setenv("REGCHECK_DB", "/var/lib/regcheck.db")
	t.Setenv("REGCHECK_PROXY", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "from-env", cfg.Captcha.APIKey)
	assert.Equal(t, 750*time.Millisecond, cfg.Captcha.PollInterval.Duration)
	assert.Equal(t, 20, cfg.Captcha.MaxPolls, "unset keys keep defaults")
	assert.True(t, cfg.FetcherOptions().Parallel)
	assert.Equal(t, 4, cfg.BlocklistOptions().MaxAttempts)
	assert.Equal(t, "/var/lib/regcheck.db", cfg.Store.Path)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "from-env", cfg.CaptchaOptions().APIKey)

	srcs := cfg.Sources()
	assert.Equal(t, "http://mirror.local/terror.htm", srcs[2].URL())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[captcha]\ndeadline = \"soon\"\n"), 0644))
	_, err = Load(path)
	require.Error(t, err)
}
