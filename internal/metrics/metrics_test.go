package metrics

import (
	"math"
	"testing"
)

func TestRegressionKnownValues(t *testing.T) {
	e := NewEngine(nil)
	actual := []float64{1, 2, 3, 4, 5}
	predicted := []float64{1, 2, 3, 4, 6}

	report, err := e.Regression(actual, predicted, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := report["mae"]; math.Abs(got-0.2) > 1e-9 {
		t.Errorf("mae = %v, want 0.2", got)
	}
	if got := report["mse"]; math.Abs(got-0.2) > 1e-9 {
		t.Errorf("mse = %v, want 0.2", got)
	}
	if got := report["rmse"]; math.Abs(got-0.4472135955) > 1e-6 {
		t.Errorf("rmse = %v, want ~0.447", got)
	}
}

func TestMAPEAllZeroActualsIsZero(t *testing.T) {
	e := NewEngine(nil)
	report, err := e.Regression([]float64{0, 0, 0}, []float64{1, 2, 3}, []string{"mape"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := report["mape"]
	if !ok {
		t.Fatal("mape must be present")
	}
	if got != 0.0 {
		t.Errorf("mape over all-zero actuals = %v, want exactly 0.0", got)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("mape must be finite, got %v", got)
	}
}

func TestMAPESkipsZeroRows(t *testing.T) {
	e := NewEngine(nil)
	// Only the nonzero actuals contribute: |100-110|/100 and |200-180|/200.
	report, err := e.Regression([]float64{0, 100, 200}, []float64{5, 110, 180}, []string{"mape"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := (0.10 + 0.10) / 2 * 100
	if got := report["mape"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("mape = %v, want %v", got, want)
	}
}

func TestRegressionLengthMismatch(t *testing.T) {
	e := NewEngine(nil)
	if _, err := e.Regression([]float64{1}, []float64{1, 2}, nil); err == nil {
		t.Error("expected error for misaligned series")
	}
}

func TestRegressionEmptyInputOmitsMetrics(t *testing.T) {
	e := NewEngine(nil)
	report, err := e.Regression(nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("degenerate input should omit all metrics, got %v", report)
	}
}

func TestRegressionUnknownMetricOmitted(t *testing.T) {
	e := NewEngine(nil)
	report, err := e.Regression([]float64{1}, []float64{1}, []string{"mae", "r2_like_nothing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := report["r2_like_nothing"]; ok {
		t.Error("unknown metric must be omitted")
	}
	if _, ok := report["mae"]; !ok {
		t.Error("one bad metric must not abort the rest of the batch")
	}
}

func TestClassificationPerfect(t *testing.T) {
	e := NewEngine(nil)
	labels := []bool{true, false, true, false}
	report, err := e.Classification(labels, labels, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"precision", "recall", "f1"} {
		if got := report[name]; got != 1.0 {
			t.Errorf("%s = %v, want 1.0", name, got)
		}
	}
}

func TestClassificationCounts(t *testing.T) {
	e := NewEngine(nil)
	actual := []bool{true, true, false, false, true}
	predicted := []bool{true, false, true, false, true}
	// tp=2 fp=1 fn=1: precision=2/3, recall=2/3, f1=2/3.
	report, err := e.Classification(actual, predicted, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"precision", "recall", "f1"} {
		if got := report[name]; math.Abs(got-2.0/3.0) > 1e-9 {
			t.Errorf("%s = %v, want 2/3", name, got)
		}
	}
}

func TestClassificationZeroDivisionPolicy(t *testing.T) {
	e := NewEngine(nil)
	// No positive predictions and no positive actuals: every denominator is
	// zero and every metric reports 0.
	report, err := e.Classification([]bool{false, false}, []bool{false, false}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"precision", "recall", "f1"} {
		got, ok := report[name]
		if !ok {
			t.Fatalf("%s must be present when requested", name)
		}
		if got != 0.0 {
			t.Errorf("%s = %v, want 0.0", name, got)
		}
	}
}

func TestClassificationLengthMismatch(t *testing.T) {
	e := NewEngine(nil)
	if _, err := e.Classification([]bool{true}, []bool{true, false}, nil); err == nil {
		t.Error("expected error for misaligned labels")
	}
}
