// ABOUTME: Benchmark runner replaying scenarios against a fresh agenda each time
// ABOUTME: Wires a throwaway app per scenario and exports scored results as JSON

package scenarios

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/harper/agenda/internal/app"
	"github.com/harper/agenda/internal/config"
	"github.com/harper/agenda/internal/models"
)

// Runner executes benchmark scenarios
type Runner struct {
	cfg    *config.Config
	logger *zap.Logger
	opts   []app.Option
}

// NewRunner creates a runner. Model settings come from cfg; storage paths are
// replaced per scenario so runs never touch the real agenda.
func NewRunner(cfg *config.Config, logger *zap.Logger, opts ...app.Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, logger: logger, opts: opts}
}

// Run replays one scenario and scores it
func (r *Runner) Run(ctx context.Context, s Scenario) (Result, error) {
	dir, err := os.MkdirTemp("", "agenda_bench_"+s.ID+"_")
	if err != nil {
		return Result{}, fmt.Errorf("create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	cfg := *r.cfg
	cfg.DBPath = filepath.Join(dir, "agenda.db")
	cfg.IndexPath = filepath.Join(dir, "index.json")
	if cfg.IndexBackend == config.BackendCharm {
		cfg.IndexBackend = config.BackendSQLite
	}

	a, err := app.New(ctx, &cfg, r.logger, r.opts...)
	if err != nil {
		return Result{}, fmt.Errorf("setup failed: %w", err)
	}
	defer a.Close()

	var history []models.Message
	turns := make([]TurnResult, 0, len(s.Turns))
	for i, turn := range s.Turns {
		out := a.Pipeline.Resolve(ctx, turn.Utterance, history)
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		tr := ScoreTurn(turn, out)
		turns = append(turns, tr)
		r.logger.Info("turn scored",
			zap.String("scenario", s.ID),
			zap.Int("turn", i+1),
			zap.Bool("intent_ok", tr.IntentOK),
			zap.Bool("outcome_ok", tr.OutcomeOK),
			zap.Strings("problems", tr.Problems))

		history = append(history,
			models.Message{Role: "user", Content: turn.Utterance},
			models.Message{Role: "assistant", Content: out.Message})
	}

	n, err := a.Items.Count(ctx, models.KindItem)
	if err != nil {
		return Result{}, fmt.Errorf("count items: %w", err)
	}
	return Evaluate(s, turns, n), nil
}

// RunAll replays every scenario in order
func (r *Runner) RunAll(ctx context.Context, all []Scenario) ([]Result, error) {
	results := make([]Result, 0, len(all))
	for _, s := range all {
		res, err := r.Run(ctx, s)
		if err != nil {
			return results, fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Summary counts passing scenarios
type Summary struct {
	Timestamp string   `json:"timestamp"`
	Total     int      `json:"total_scenarios"`
	Passed    int      `json:"passed"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// Summarize tallies results
func Summarize(results []Result) Summary {
	sum := Summary{
		Timestamp: time.Now().Format(time.RFC3339),
		Total:     len(results),
		Results:   results,
	}
	for _, res := range results {
		if res.Status == "PASS" {
			sum.Passed++
		} else {
			sum.Failed++
		}
	}
	return sum
}

// ExportResults writes the summary of results to outputPath as JSON
func ExportResults(results []Result, outputPath string) error {
	jsonData, err := json.MarshalIndent(Summarize(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}
