package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"regcheck/internal/browser"
	"regcheck/internal/captcha"
	"regcheck/internal/config"
	"regcheck/internal/fetcher"
	"regcheck/internal/formatter"
	"regcheck/internal/logging"
	"regcheck/internal/scraper"
	"regcheck/internal/service"
	"regcheck/internal/sites/rkn"
	"regcheck/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath   string
	dbPath       string
	outputFormat string
	outputFile   string
	showUI       bool
	proxyURL     string
	parallel     bool
	sourceNames  []string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "regcheck",
		Short:   "Check names against cached government registries and URLs against the RKN blocklist",
		Version: version,
		Long: `regcheck keeps a local copy of the Minjust, Rosfinmonitoring and FSB
registries and answers whether a name matches any cached record. It can also
check a website against blocklist.rkn.gov.ru, solving the search form's
CAPTCHA through a cap.guru compatible service.`,
		Example: `  # Refresh the registry cache
  regcheck refresh

  # Refresh only the FSB list, fetching with one browser per source
  regcheck refresh --source fsb --parallel

  # Check a name against the cache
  regcheck match "Рога и Копыта"

  # Check a site against the blocklist and save the verdict as markdown
  REGCHECK_CAPTCHA_KEY=... regcheck check-url https://www.example.com -o verdict.md`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")
	pf.StringVar(&dbPath, "db", "", "SQLite database path (overrides config and REGCHECK_DB)")
	pf.StringVarP(&outputFormat, "format", "f", "text", "Output format (html, text, markdown, json, csv)")
	pf.StringVarP(&outputFile, "output", "o", "", "Output file path (format inferred from extension if -f not specified)")
	pf.BoolVar(&showUI, "showui", false, "Show browser UI (disable headless mode)")
	pf.StringVarP(&proxyURL, "proxy", "p", "", "Proxy URL for the browser, defaults to REGCHECK_PROXY env var")

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Scrape the registries and replace the cached records",
		Args:  cobra.NoArgs,
		RunE:  runRefresh,
	}
	refreshCmd.Flags().BoolVar(&parallel, "parallel", false, "Fetch sources concurrently, one browser per source")
	refreshCmd.Flags().StringSliceVar(&sourceNames, "source", nil, "Only refresh these sources (minjust, fedsfm, fsb)")

	checkCmd := &cobra.Command{
		Use:   "check-url <url>",
		Short: "Check a website against the RKN blocklist",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheckURL,
	}

	matchCmd := &cobra.Command{
		Use:   "match <query>",
		Short: "Check whether a name matches any cached registry record",
		Args:  cobra.ExactArgs(1),
		RunE:  runMatch,
	}

	rootCmd.AddCommand(refreshCmd, checkCmd, matchCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

type app struct {
	svc   *service.Service
	store *store.Store
	log   *logrus.Entry
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close store")
	}
}

// setup loads configuration, applies flag overrides and wires the service.
func setup(cmd *cobra.Command) (*app, *config.Config, error) {
	if outputFile != "" && !cmd.Flags().Changed("format") {
		if inferred := formatter.InferFromExtension(outputFile); inferred != "" {
			outputFormat = inferred
		}
	}
	if !slices.Contains(formatter.Formats, outputFormat) {
		return nil, nil, fmt.Errorf("invalid output format: %s", outputFormat)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if showUI {
		cfg.Browser.Headless = false
	}
	if proxyURL != "" {
		cfg.Browser.Proxy = proxyURL
	}
	if parallel {
		cfg.Refresh.Parallel = true
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	log := logrus.NewEntry(logger)

	st, err := store.Open(cmd.Context(), cfg.Store.Path, log)
	if err != nil {
		return nil, nil, err
	}

	bcfg := cfg.BrowserOptions()
	open := func(ctx context.Context) (fetcher.Session, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := browser.Open(bcfg, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	for _, src := range cfg.Sources() {
		scraper.Register(src)
	}
	sources, err := selectSources(sourceNames)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	pipeline := fetcher.New(open, sources, cfg.FetcherOptions(), log)
	solver := captcha.NewClient(cfg.CaptchaOptions(), log)
	checker := rkn.NewChecker(solver, cfg.BlocklistOptions(), log)
	svc := service.New(pipeline, open, checker, st, service.Options{BrowserSlots: cfg.Browser.Slots}, log)

	return &app{svc: svc, store: st, log: log}, cfg, nil
}

func selectSources(names []string) ([]scraper.Source, error) {
	if len(names) == 0 {
		return scraper.All(), nil
	}
	var out []scraper.Source
	for _, n := range names {
		name, ok := scraper.ParseSourceName(n)
		if !ok {
			return nil, fmt.Errorf("unknown source: %s", n)
		}
		src, ok := scraper.Get(name)
		if !ok {
			return nil, fmt.Errorf("source not registered: %s", name)
		}
		out = append(out, src)
	}
	return out, nil
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	a, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.svc.RefreshAllRegistries(cmd.Context())
	if err != nil {
		return err
	}
	if err := write(service.NewReportContent(report)); err != nil {
		return err
	}
	if n := report.Failed(); n > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d source(s) failed, their cached records were kept\n", n)
	}
	return nil
}

func runCheckURL(cmd *cobra.Command, args []string) error {
	a, cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Captcha.APIKey == "" {
		return errors.New("captcha api key is required (set REGCHECK_CAPTCHA_KEY or [captcha] api_key)")
	}

	verdict, err := a.svc.CheckURL(cmd.Context(), args[0])
	switch {
	case errors.Is(err, captcha.ErrUnavailable):
		return fmt.Errorf("check could not be completed, captcha service unavailable: %w", err)
	case errors.Is(err, rkn.ErrRetriesExhausted):
		return fmt.Errorf("check could not be completed: %w", err)
	case err != nil:
		return err
	}
	return write(rkn.NewVerdictContent(verdict))
}

func runMatch(cmd *cobra.Command, args []string) error {
	a, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.svc.Match(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return write(service.NewMatchContent(args[0], entry))
}

func write(content scraper.Content) error {
	out, err := formatter.Format(content, outputFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(out), 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Output written to: %s\n", outputFile)
		return nil
	}
	fmt.Println(out)
	return nil
}
