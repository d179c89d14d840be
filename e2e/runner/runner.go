// Package runner registers fruitstore end-to-end scenarios and runs them
// against a live deployment.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cornjacket/fruit-storage/e2e/client"
)

// Test is one end-to-end scenario.
type Test struct {
	Name        string
	Description string
	Run         func(ctx context.Context, cfg *Config) error
}

// Config points the scenarios at a deployment.
type Config struct {
	IngestionURL string
	QueryURL     string
	Env          string
	Timeout      time.Duration // per scenario, including waits for processing passes
	PollInterval time.Duration
}

// Result is the outcome of one scenario.
type Result struct {
	Test     *Test
	Duration time.Duration
	Err      error
}

// Passed reports whether the scenario succeeded.
func (r Result) Passed() bool { return r.Err == nil }

var scenarios = map[string]*Test{}

// Register adds a scenario. Scenario packages call it from init.
func Register(t *Test) {
	if _, dup := scenarios[t.Name]; dup {
		panic(fmt.Sprintf("e2e scenario %q registered twice", t.Name))
	}
	scenarios[t.Name] = t
}

// Tests returns the registered scenarios ordered by name.
func Tests() []*Test {
	tests := make([]*Test, 0, len(scenarios))
	for _, t := range scenarios {
		tests = append(tests, t)
	}
	slices.SortFunc(tests, func(a, b *Test) int { return strings.Compare(a.Name, b.Name) })
	return tests
}

// List writes the scenario catalogue to w.
func List(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range Tests() {
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, t.Description)
	}
	tw.Flush()
}

// Select resolves scenario names; no names selects every scenario.
func Select(names []string) ([]*Test, error) {
	if len(names) == 0 {
		return Tests(), nil
	}
	selected := make([]*Test, 0, len(names))
	for _, name := range names {
		t, ok := scenarios[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (use -list)", name)
		}
		selected = append(selected, t)
	}
	return selected, nil
}

// Run executes tests in order, reporting each outcome to w as it finishes.
// A cancelled ctx stops before the next scenario.
func Run(ctx context.Context, cfg *Config, tests []*Test, w io.Writer) []Result {
	results := make([]Result, 0, len(tests))
	for _, t := range tests {
		if ctx.Err() != nil {
			break
		}
		r := runOne(ctx, cfg, t)
		results = append(results, r)

		status := "ok  "
		if !r.Passed() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s %-22s %v\n", status, t.Name, r.Duration.Round(time.Millisecond))
		if r.Err != nil {
			fmt.Fprintf(w, "     %v\n", r.Err)
		}
	}
	return results
}

func runOne(ctx context.Context, cfg *Config, t *Test) Result {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := t.Run(ctx, cfg)
	return Result{Test: t, Duration: time.Since(start), Err: err}
}

// Summarize writes totals to w and returns the number of failures.
func Summarize(w io.Writer, results []Result) int {
	var failed []string
	var total time.Duration
	for _, r := range results {
		total += r.Duration
		if !r.Passed() {
			failed = append(failed, r.Test.Name)
		}
	}

	fmt.Fprintf(w, "\n%d scenarios, %d failed, %v\n", len(results), len(failed), total.Round(time.Millisecond))
	if len(failed) > 0 {
		fmt.Fprintf(w, "failed: %s\n", strings.Join(failed, ", "))
	}
	return len(failed)
}

// LoadConfig builds a Config for env ("local" or "compose").
// E2E_INGESTION_URL, E2E_QUERY_URL and E2E_TIMEOUT override the defaults.
func LoadConfig(env string) *Config {
	host := "localhost"
	if env == "compose" {
		host = "fruitstore"
	}

	cfg := &Config{
		Env:          env,
		IngestionURL: envOr("E2E_INGESTION_URL", fmt.Sprintf("http://%s:8080", host)),
		QueryURL:     envOr("E2E_QUERY_URL", fmt.Sprintf("http://%s:8081", host)),
		Timeout:      60 * time.Second, // covers several 10s processing ticks
		PollInterval: 250 * time.Millisecond,
	}
	if d, err := time.ParseDuration(os.Getenv("E2E_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Client returns the API client configuration for this run.
func (c *Config) Client() *client.Config {
	return &client.Config{
		IngestionURL: c.IngestionURL,
		QueryURL:     c.QueryURL,
		PollInterval: c.PollInterval,
	}
}
