// Package optimizer implements C11: grid search over a strategy's
// parameter space and walk-forward evaluation with an overfitting ratio.
// The grid-search shape (seen elsewhere over portfolio weights, here over
// strategy parameters) fans parameter combinations out with
// golang.org/x/sync/errgroup over a bounded worker pool.
package optimizer

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ksfraser/WealthSystem-sub012/internal/core"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/backtest"
	"github.com/ksfraser/WealthSystem-sub012/internal/modules/metrics"
	"github.com/ksfraser/WealthSystem-sub012/internal/strategy"
)

// ParameterGrid maps a parameter name to its candidate values; Optimize
// enumerates the Cartesian product of every entry.
type ParameterGrid map[string][]any

// StrategyFactory builds a fresh Strategy for one parameter combination.
type StrategyFactory func(params map[string]any) strategy.Strategy

// MetricName selects which metrics.Metrics field Optimize/WalkForward
// ranks by.
type MetricName string

const (
	MetricTotalReturn      MetricName = "total_return"
	MetricAnnualizedReturn MetricName = "annualized_return"
	MetricSharpe           MetricName = "sharpe"
	MetricSortino          MetricName = "sortino"
	MetricMaxDrawdown      MetricName = "max_drawdown"
	MetricWinRate          MetricName = "win_rate"
	MetricProfitFactor     MetricName = "profit_factor"
	MetricExpectancy       MetricName = "expectancy"
	MetricRewardRisk       MetricName = "reward_risk"
)

func metricValue(m metrics.Metrics, name MetricName) (float64, error) {
	switch name {
	case MetricTotalReturn:
		return m.TotalReturn, nil
	case MetricAnnualizedReturn:
		return m.AnnualizedReturn, nil
	case MetricSharpe:
		return m.Sharpe, nil
	case MetricSortino:
		return m.Sortino, nil
	case MetricMaxDrawdown:
		// MaxDrawdown is stored <= 0, 0 being the best outcome; ranking
		// descending (below) already puts the least-negative value first.
		return m.MaxDrawdown, nil
	case MetricWinRate:
		return m.WinRate, nil
	case MetricProfitFactor:
		return m.ProfitFactor, nil
	case MetricExpectancy:
		return m.Expectancy, nil
	case MetricRewardRisk:
		return m.RewardRisk, nil
	default:
		return 0, fmt.Errorf("optimizer: unknown metric %q: %w", name, core.ErrInvalidInput)
	}
}

// CartesianProduct enumerates every combination of grid's candidate values.
func CartesianProduct(grid ParameterGrid) []map[string]any {
	if len(grid) == 0 {
		return nil
	}
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []map[string]any{{}}
	for _, key := range keys {
		values := grid[key]
		next := make([]map[string]any, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, v := range values {
				extended := make(map[string]any, len(combo)+1)
				for k, vv := range combo {
					extended[k] = vv
				}
				extended[key] = v
				next = append(next, extended)
			}
		}
		combos = next
	}
	return combos
}

// RunResult tags one grid combination with its resulting score.
type RunResult struct {
	Parameters map[string]any `json:"parameters"`
	Score      float64        `json:"score"`
}

// OptimizeResult is C11's grid-search output.
type OptimizeResult struct {
	BestParameters map[string]any `json:"best_parameters"`
	BestScore      float64        `json:"best_score"`
	WorstScore     float64        `json:"worst_score"`
	AvgScore       float64        `json:"avg_score"`
	Iterations     int            `json:"iterations"`
	AllResults     []RunResult    `json:"all_results"`
}

// Optimize runs the Cartesian product of grid through factory+backtest.Run,
// ranking by metric (descending — for max_drawdown, stored non-positive
// with 0 best, descending already surfaces the least-negative/"best" run
// first). parallelism bounds the concurrent backtest runs; 0 or negative
// means unbounded.
func Optimize(
	ctx context.Context,
	factory StrategyFactory,
	grid ParameterGrid,
	symbol string,
	bars []core.Bar,
	cfg backtest.Config,
	metric MetricName,
	parallelism int,
) (*OptimizeResult, error) {
	combos := CartesianProduct(grid)
	if len(combos) == 0 {
		return nil, fmt.Errorf("optimizer: parameter grid is empty: %w", core.ErrInvalidParameter)
	}
	if _, err := metricValue(metrics.Metrics{}, metric); err != nil {
		return nil, err
	}

	results := make([]RunResult, len(combos))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for i, params := range combos {
		i, params := i, params
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			strat := factory(params)
			res, err := backtest.Run(strat, symbol, bars, cfg)
			if err != nil {
				results[i] = RunResult{Parameters: params, Score: 0}
				return nil
			}
			m := metrics.Calculate(res.TradeLog, res.EquityCurve, len(res.EquityCurve), 0)
			score, _ := metricValue(m, metric)
			results[i] = RunResult{Parameters: params, Score: score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("optimizer: %w", core.ErrCancelled)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	var sum float64
	for _, r := range results {
		sum += r.Score
	}

	return &OptimizeResult{
		BestParameters: results[0].Parameters,
		BestScore:      results[0].Score,
		WorstScore:     results[len(results)-1].Score,
		AvgScore:       sum / float64(len(results)),
		Iterations:     len(results),
		AllResults:     results,
	}, nil
}

// Window is one walk-forward train/test roll.
type Window struct {
	TrainStart     int            `json:"train_start"`
	TrainEnd       int            `json:"train_end"`
	TestStart      int            `json:"test_start"`
	TestEnd        int            `json:"test_end"`
	BestParameters map[string]any `json:"best_parameters"`
	TrainScore     float64        `json:"train_score"`
	TestScore      float64        `json:"test_score"`
}

// WalkForwardResult is C11's walk-forward output.
type WalkForwardResult struct {
	Windows          []Window `json:"windows"`
	AvgTrainScore    float64  `json:"avg_train_score"`
	AvgTestScore     float64  `json:"avg_test_score"`
	OverfittingRatio float64  `json:"overfitting_ratio"`
}

// WalkForward slides a [trainWindow, testWindow] pair across bars, step =
// testWindow (non-overlapping tests), optimizing on each train slice and
// applying the winning parameters to the following test slice.
func WalkForward(
	ctx context.Context,
	factory StrategyFactory,
	grid ParameterGrid,
	symbol string,
	bars []core.Bar,
	cfg backtest.Config,
	metric MetricName,
	trainWindow, testWindow, parallelism int,
) (*WalkForwardResult, error) {
	if len(bars) < trainWindow+testWindow {
		return nil, fmt.Errorf("optimizer: walk-forward needs >= %d bars, got %d: %w", trainWindow+testWindow, len(bars), core.ErrInsufficientData)
	}

	var windows []Window
	for t := 0; t+trainWindow+testWindow <= len(bars); t += testWindow {
		trainSlice := bars[t : t+trainWindow]
		testSlice := bars[t+trainWindow : t+trainWindow+testWindow]

		trainResult, err := Optimize(ctx, factory, grid, symbol, trainSlice, cfg, metric, parallelism)
		if err != nil {
			return nil, err
		}

		testStrat := factory(trainResult.BestParameters)
		testRun, err := backtest.Run(testStrat, symbol, testSlice, cfg)
		var testScore float64
		if err == nil {
			m := metrics.Calculate(testRun.TradeLog, testRun.EquityCurve, len(testRun.EquityCurve), 0)
			testScore, _ = metricValue(m, metric)
		}

		windows = append(windows, Window{
			TrainStart:     t,
			TrainEnd:       t + trainWindow,
			TestStart:      t + trainWindow,
			TestEnd:        t + trainWindow + testWindow,
			BestParameters: trainResult.BestParameters,
			TrainScore:     trainResult.BestScore,
			TestScore:      testScore,
		})
	}

	var sumTrain, sumTest float64
	for _, w := range windows {
		sumTrain += w.TrainScore
		sumTest += w.TestScore
	}
	avgTrain := sumTrain / float64(len(windows))
	avgTest := sumTest / float64(len(windows))

	ratio := 0.0
	if avgTrain != 0 {
		ratio = avgTest / avgTrain
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 2 {
		ratio = 2
	}

	return &WalkForwardResult{
		Windows:          windows,
		AvgTrainScore:    avgTrain,
		AvgTestScore:     avgTest,
		OverfittingRatio: ratio,
	}, nil
}
