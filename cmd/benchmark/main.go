// ABOUTME: Command-line runner for end-to-end pipeline benchmarks
// ABOUTME: Replays scenarios against the configured model and outputs JSON results

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harper/agenda/benchmarks/scenarios"
	"github.com/harper/agenda/internal/config"
)

func main() {
	passed, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if !passed {
		os.Exit(1)
	}
}

// run reports whether every scenario passed
func run() (bool, error) {
	scenarioID := flag.String("scenario", "", "Run one scenario (daily, delete-miss, chat, lifecycle). If empty, runs all.")
	outputPath := flag.String("output", "benchmark_results.json", "Output path for JSON results")
	verbose := flag.Bool("verbose", false, "Log every scored turn")
	flag.Parse()

	_ = godotenv.Load()

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if *verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return false, fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return false, err
	}

	all := scenarios.All()
	if *scenarioID != "" {
		s, err := scenarios.Lookup(*scenarioID)
		if err != nil {
			return false, err
		}
		all = []scenarios.Scenario{s}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := scenarios.NewRunner(cfg, logger).RunAll(ctx, all)
	if err != nil {
		return false, err
	}

	fmt.Println("========================================")
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println("========================================")
	sum := scenarios.Summarize(results)
	for _, res := range results {
		fmt.Printf("\n%s: %s\n", res.ScenarioID, res.ScenarioName)
		fmt.Printf("  Intent accuracy:  %.2f\n", res.IntentAccuracy)
		fmt.Printf("  Outcome accuracy: %.2f\n", res.OutcomeAccuracy)
		fmt.Printf("  Store correct:    %t (%d items)\n", res.StoreCorrect, res.FinalItems)
		fmt.Printf("  Status: %s\n", res.Status)
		for _, t := range res.Turns {
			for _, p := range t.Problems {
				fmt.Printf("    - %q: %s\n", t.Utterance, p)
			}
		}
	}
	fmt.Println("\n========================================")
	fmt.Printf("Total: %d  Passed: %d  Failed: %d\n", sum.Total, sum.Passed, sum.Failed)
	fmt.Println("========================================")

	if err := scenarios.ExportResults(results, *outputPath); err != nil {
		return false, err
	}
	fmt.Printf("Results exported to: %s\n", *outputPath)

	return sum.Failed == 0, nil
}
