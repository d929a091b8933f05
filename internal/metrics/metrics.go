// Package metrics computes evaluation metrics over aligned actual/predicted
// series. Each metric is computed independently: a failure computing one is
// logged and that key is omitted, never aborting the batch.
package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Report maps metric name to value. Keys are present only for metrics whose
// preconditions were met; a report is never padded with placeholders.
type Report map[string]float64

// DefaultRegressionMetrics are computed when no explicit list is requested.
var DefaultRegressionMetrics = []string{"mse", "mae", "rmse", "mape"}

// DefaultClassificationMetrics are computed when no explicit list is requested.
var DefaultClassificationMetrics = []string{"precision", "recall", "f1"}

// ComputationError reports a single metric that could not be computed. It is
// logged and the metric omitted; the run continues.
type ComputationError struct {
	Metric string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("metric %q: %v", e.Metric, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }

// Engine computes metric reports. The zero value is not usable; construct
// with NewEngine.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates an Engine logging through the given logger. A nil
// logger discards diagnostics.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{log: logger}
}

// Regression computes the requested regression metrics over aligned series.
// Supported: mse, mae, rmse, mape. MAPE is computed only over rows where the
// actual value is nonzero; when no such rows exist it is 0.0 by policy,
// never NaN or infinity.
func (e *Engine) Regression(actual, predicted []float64, requested []string) (Report, error) {
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("regression metrics: actual has %d values, predicted has %d", len(actual), len(predicted))
	}
	if requested == nil {
		requested = DefaultRegressionMetrics
	}

	report := Report{}
	for _, name := range requested {
		fn, ok := regressionComputers[name]
		if !ok {
			e.log.Warn("unknown regression metric requested", "metric", name)
			continue
		}
		v, err := fn(actual, predicted)
		if err != nil {
			cerr := &ComputationError{Metric: name, Err: err}
			e.log.Warn("metric computation failed, omitting", "metric", name, "error", cerr)
			continue
		}
		report[name] = v
	}
	return report, nil
}

// Classification computes the requested classification metrics over aligned
// binary label series. Supported: precision, recall, f1, accuracy. Zero
// denominators yield 0.0 for the affected metric.
func (e *Engine) Classification(actual, predicted []bool, requested []string) (Report, error) {
	if len(actual) != len(predicted) {
		return nil, fmt.Errorf("classification metrics: actual has %d labels, predicted has %d", len(actual), len(predicted))
	}
	if requested == nil {
		requested = DefaultClassificationMetrics
	}

	counts := countConfusion(actual, predicted)
	report := Report{}
	for _, name := range requested {
		fn, ok := classificationComputers[name]
		if !ok {
			e.log.Warn("unknown classification metric requested", "metric", name)
			continue
		}
		report[name] = fn(counts)
	}
	return report, nil
}

type regressionFunc func(actual, predicted []float64) (float64, error)

var regressionComputers = map[string]regressionFunc{
	"mse":  computeMSE,
	"mae":  computeMAE,
	"rmse": computeRMSE,
	"mape": computeMAPE,
}

func computeMSE(actual, predicted []float64) (float64, error) {
	if len(actual) == 0 {
		return 0, fmt.Errorf("no observations")
	}
	sq := make([]float64, len(actual))
	for i := range actual {
		d := actual[i] - predicted[i]
		sq[i] = d * d
	}
	return checkFinite(stat.Mean(sq, nil))
}

func computeMAE(actual, predicted []float64) (float64, error) {
	if len(actual) == 0 {
		return 0, fmt.Errorf("no observations")
	}
	abs := make([]float64, len(actual))
	for i := range actual {
		abs[i] = math.Abs(actual[i] - predicted[i])
	}
	return checkFinite(stat.Mean(abs, nil))
}

func computeRMSE(actual, predicted []float64) (float64, error) {
	mse, err := computeMSE(actual, predicted)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// computeMAPE applies the uniform zero-actual policy: rows with a zero
// actual value are excluded, and 0.0 is returned when none remain.
func computeMAPE(actual, predicted []float64) (float64, error) {
	if len(actual) == 0 {
		return 0, fmt.Errorf("no observations")
	}
	var pct []float64
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		pct = append(pct, math.Abs((actual[i]-predicted[i])/actual[i]))
	}
	if len(pct) == 0 {
		return 0.0, nil
	}
	return checkFinite(stat.Mean(pct, nil) * 100)
}

func checkFinite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite result %v", v)
	}
	return v, nil
}

type confusion struct {
	tp, fp, fn, tn float64
}

func countConfusion(actual, predicted []bool) confusion {
	var c confusion
	for i := range actual {
		switch {
		case actual[i] && predicted[i]:
			c.tp++
		case !actual[i] && predicted[i]:
			c.fp++
		case actual[i] && !predicted[i]:
			c.fn++
		default:
			c.tn++
		}
	}
	return c
}

var classificationComputers = map[string]func(confusion) float64{
	"precision": func(c confusion) float64 { return safeRatio(c.tp, c.tp+c.fp) },
	"recall":    func(c confusion) float64 { return safeRatio(c.tp, c.tp+c.fn) },
	"f1": func(c confusion) float64 {
		p := safeRatio(c.tp, c.tp+c.fp)
		r := safeRatio(c.tp, c.tp+c.fn)
		return safeRatio(2*p*r, p+r)
	},
	"accuracy": func(c confusion) float64 {
		return safeRatio(c.tp+c.tn, c.tp+c.tn+c.fp+c.fn)
	},
}

// safeRatio returns num/den. A zero denominator yields 0 so the affected
// metric reports 0 rather than NaN.
func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
