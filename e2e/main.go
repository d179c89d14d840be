// Command e2e runs fruitstore scenarios against a running deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cornjacket/fruit-storage/e2e/client"
	"github.com/cornjacket/fruit-storage/e2e/runner"
	_ "github.com/cornjacket/fruit-storage/e2e/tests" // registers scenarios
)

func main() {
	env := flag.String("env", "local", "deployment to target: local or compose")
	only := flag.String("test", "", "comma-separated scenario names (default: all)")
	list := flag.Bool("list", false, "list scenarios and exit")
	flag.Parse()

	if *list {
		runner.List(os.Stdout)
		return
	}

	var names []string
	if *only != "" {
		names = strings.Split(*only, ",")
	}
	tests, err := runner.Select(names)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := runner.LoadConfig(*env)
	fmt.Printf("fruitstore e2e (%s)\n  ingestion %s\n  query     %s\n\n", cfg.Env, cfg.IngestionURL, cfg.QueryURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, url := range []string{cfg.IngestionURL, cfg.QueryURL} {
		if err := client.CheckHealth(ctx, url); err != nil {
			fmt.Fprintf(os.Stderr, "%s is not healthy: %v\n", url, err)
			os.Exit(1)
		}
	}

	results := runner.Run(ctx, cfg, tests, os.Stdout)
	if runner.Summarize(os.Stdout, results) > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}
