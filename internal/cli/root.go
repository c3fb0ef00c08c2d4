// Package cli wires the checker's cobra command: flag parsing, config
// resolution (config file wins over flags), running internal/checker
// end to end, and handing every result to internal/report.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/linkcheck/internal/checker"
	"github.com/rohmanhakim/linkcheck/internal/classify"
	"github.com/rohmanhakim/linkcheck/internal/config"
	"github.com/rohmanhakim/linkcheck/internal/hyperlink"
	"github.com/rohmanhakim/linkcheck/internal/metrics"
	"github.com/rohmanhakim/linkcheck/internal/observe"
	"github.com/rohmanhakim/linkcheck/internal/prober"
	"github.com/rohmanhakim/linkcheck/internal/report"
)

var (
	cfgFile                string
	seedFile               string
	workers                int
	timeout                time.Duration
	retries                int
	anchors                bool
	rateLimitTimeout       time.Duration
	allowUnauthorized      bool
	reportTimeoutsAsBroken bool
	outputDir              string
	metricsAddr            string
)

var rootCmd = &cobra.Command{
	Use:   "linkcheck",
	Short: "Checks external hyperlinks for availability.",
	Long: `linkcheck reads a seed file of discovered (uri, docname, docpath,
lineno) tuples and reports, for each, whether the link is working, broken,
redirected, ignored, unchecked, or timed out, writing output.txt and
output.json alongside a colorized console summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := run(cmd.Context())
		exitCode = code
		return err
	},
}

// exitCode carries the process exit code decided by a successful run
// (non-zero when any BROKEN/TIMEOUT result was seen) out past cobra's
// error-only RunE signature.
var exitCode int

// Execute runs the root command; it is the sole entry point cmd/linkcheck
// calls from main.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&seedFile, "seed-file", "", "JSON-lines file of {uri,docname,docpath,lineno} tuples to check")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "number of concurrent probe workers")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-request HTTP timeout")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "probe retry count")
	rootCmd.PersistentFlags().BoolVar(&anchors, "anchors", false, "validate URL fragments against page anchors")
	rootCmd.PersistentFlags().DurationVar(&rateLimitTimeout, "rate-limit-timeout", 0, "ceiling on adaptive per-host rate-limit back-off")
	rootCmd.PersistentFlags().BoolVar(&allowUnauthorized, "allow-unauthorized", false, "treat 401 as working rather than broken")
	rootCmd.PersistentFlags().BoolVar(&reportTimeoutsAsBroken, "report-timeouts-as-broken", false, "report TIMEOUT results as BROKEN")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "output", "directory for output.txt/output.json")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on (empty disables it)")
}

// ResetFlags restores every package-level flag variable to its zero
// value, for test isolation between cobra command invocations.
func ResetFlags() {
	cfgFile = ""
	seedFile = ""
	workers = 0
	timeout = 0
	retries = 0
	anchors = false
	rateLimitTimeout = 0
	allowUnauthorized = false
	reportTimeoutsAsBroken = false
	outputDir = "output"
	metricsAddr = ""
}

func SetConfigFileForTest(path string)  { cfgFile = path }
func SetSeedFileForTest(path string)    { seedFile = path }
func SetWorkersForTest(n int)           { workers = n }
func SetTimeoutForTest(d time.Duration) { timeout = d }
func SetRetriesForTest(n int)           { retries = n }
func SetAnchorsForTest(enabled bool)    { anchors = enabled }
func SetOutputDirForTest(dir string)    { outputDir = dir }
func SetMetricsAddrForTest(addr string) { metricsAddr = addr }

// InitConfigWithError resolves the final Built config from defaults,
// flags, and (if set) a config file, returning any loading or
// validation error rather than exiting the process. Exported so tests
// can exercise flag/file precedence without invoking Execute.
func InitConfigWithError() (config.Built, error) {
	c := config.WithDefault().
		WithWorkers(workers).
		WithTimeout(timeout).
		WithRetries(retries).
		WithAnchors(anchors).
		WithRateLimitTimeout(rateLimitTimeout).
		WithAllowUnauthorized(allowUnauthorized).
		WithReportTimeoutsAsBroken(reportTimeoutsAsBroken).
		WithMetricsAddr(metricsAddr)

	if cfgFile != "" {
		c = c.WithConfigFile(cfgFile)
	}

	return c.Build()
}

func run(ctx context.Context) (int, error) {
	built, err := InitConfigWithError()
	if err != nil {
		return 0, err
	}

	if seedFile == "" {
		return 0, fmt.Errorf("--seed-file is required")
	}
	links, err := loadSeedFile(seedFile)
	if err != nil {
		return 0, err
	}

	var sink observe.Sink = observe.NewZerologSink(newLogger())
	var metricsServer *metricsHTTPServer
	if built.MetricsAddr != "" {
		m := metrics.New()
		sink = metrics.Wrap(sink, m)
		metricsServer = startMetricsServer(built.MetricsAddr, m)
		defer metricsServer.Shutdown(ctx)
	}

	c := checker.New(checker.Config{
		NumWorkers: built.Workers,
		Ignore:     built.Ignore,
		ClassifyCfg: classify.Config{
			ExcludeDocuments: built.ExcludeDocuments,
			Ignore:           built.Ignore,
		},
		ProberCfg: prober.Config{
			AnchorsIgnore:          built.AnchorsIgnore,
			AnchorsIgnoreForURL:    built.AnchorsIgnoreForURL,
			Ignore:                 built.Ignore,
			Auth:                   built.Auth,
			RequestHeaders:         built.RequestHeaders,
			AllowedRedirects:       built.AllowedRedirects,
			Timeout:                built.Timeout,
			Retries:                built.Retries,
			CheckAnchors:           built.Anchors,
			RateLimitTimeout:       built.RateLimitTimeout,
			AllowUnauthorized:      built.AllowUnauthorized,
			ReportTimeoutsAsBroken: built.ReportTimeoutsAsBroken,
			UserAgent:              built.UserAgent,
			TLSVerify:              built.TLSVerify,
			TLSCACerts:             built.TLSCACerts,
		},
		BreakerThreshold: built.CircuitBreakerThreshold,
		BreakerOpenFor:   60 * time.Second,
		Sink:             sink,
	})

	w, err := report.New(outputDir)
	if err != nil {
		return 0, err
	}
	defer w.Close()

	for result := range c.Check(ctx, links) {
		if err := w.Write(result); err != nil {
			return 0, err
		}
	}

	return w.ExitCode(), nil
}

type seedEntry struct {
	URI     string `json:"uri"`
	Docname string `json:"docname"`
	Docpath string `json:"docpath"`
	Lineno  int    `json:"lineno"`
}

// loadSeedFile reads one JSON object per line, each describing a
// hyperlink discovered upstream (spec.md treats discovery itself as an
// out-of-scope collector's job).
func loadSeedFile(path string) ([]hyperlink.Hyperlink, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	var links []hyperlink.Hyperlink
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var entry seedEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("parsing seed file line: %w", err)
		}
		links = append(links, hyperlink.New(entry.URI, entry.Docname, entry.Docpath, entry.Lineno))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}
	return links, nil
}
