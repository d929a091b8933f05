// Package backend defines the capability contract external analytical
// libraries must satisfy, the adapters for the invocation shapes that can be
// auto-wrapped, the ordered-fallback dispatcher that selects among them, and
// the built-in reference implementations used when every external candidate
// fails.
package backend

import (
	"fmt"
	"math"
	"time"
)

// Series is the normalized input handed to a backend: aligned timestamps
// and values. Backends never see the originating table.
type Series struct {
	Timestamps []time.Time
	Values     []float64
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Values) }

// Detection is the backend-agnostic result of an anomaly step: one score
// and one flag per input row. Higher score means more anomalous.
type Detection struct {
	Scores []float64
	Flags  []bool
}

// Validate checks the structural contract a detection must satisfy before
// the dispatcher will accept it: non-empty, aligned with the input, finite.
func (d *Detection) Validate(inputLen int) error {
	if d == nil {
		return fmt.Errorf("nil detection")
	}
	if len(d.Scores) == 0 {
		return fmt.Errorf("empty scores")
	}
	if len(d.Scores) != inputLen || len(d.Flags) != inputLen {
		return fmt.Errorf("detection has %d scores and %d flags for %d input rows",
			len(d.Scores), len(d.Flags), inputLen)
	}
	for i, v := range d.Scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite score %v at row %d", v, i)
		}
	}
	return nil
}

// Forecast is the backend-agnostic result of a forecasting step: one value
// per horizon step, with an optional prediction interval.
type Forecast struct {
	Values []float64
	Lower  []float64
	Upper  []float64
}

// Validate checks the structural contract a forecast must satisfy: exactly
// horizon values, all finite, and interval bounds (when present) aligned.
func (f *Forecast) Validate(horizon int) error {
	if f == nil {
		return fmt.Errorf("nil forecast")
	}
	if len(f.Values) == 0 {
		return fmt.Errorf("empty forecast")
	}
	if len(f.Values) != horizon {
		return fmt.Errorf("forecast has %d values for horizon %d", len(f.Values), horizon)
	}
	for i, v := range f.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value %v at step %d", v, i)
		}
	}
	if len(f.Lower) > 0 && (len(f.Lower) != horizon || len(f.Upper) != horizon) {
		return fmt.Errorf("prediction interval not aligned with horizon %d", horizon)
	}
	return nil
}

// Detector is the capability contract for anomaly backends. Integrations
// with other shapes provide an adapter; the dispatcher operates only on
// this interface.
type Detector interface {
	Name() string
	DetectAnomalies(s Series) (*Detection, error)
}

// Forecaster is the capability contract for forecasting backends.
type Forecaster interface {
	Name() string
	Forecast(s Series, horizon int) (*Forecast, error)
}

// DetectorFunc adapts a plain "compute(series) -> scores+flags" call.
type DetectorFunc struct {
	ID string
	Fn func(Series) (*Detection, error)
}

func (d DetectorFunc) Name() string { return d.ID }

func (d DetectorFunc) DetectAnomalies(s Series) (*Detection, error) {
	return d.Fn(s)
}

// FitPredictModel is the stateful shape: construct, fit on the data, then
// predict scores for the same data.
type FitPredictModel interface {
	Fit(s Series) error
	Predict(s Series) ([]float64, error)
}

// FitPredictDetector adapts a FitPredictModel to the Detector contract.
// Rows whose predicted score exceeds Threshold are flagged anomalous.
type FitPredictDetector struct {
	ID        string
	Model     FitPredictModel
	Threshold float64
}

func (d FitPredictDetector) Name() string { return d.ID }

func (d FitPredictDetector) DetectAnomalies(s Series) (*Detection, error) {
	if d.Model == nil {
		return nil, fmt.Errorf("adapter %q has no model", d.ID)
	}
	if err := d.Model.Fit(s); err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	scores, err := d.Model.Predict(s)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	flags := make([]bool, len(scores))
	for i, v := range scores {
		flags[i] = v > d.Threshold
	}
	return &Detection{Scores: scores, Flags: flags}, nil
}

// ForecasterFunc adapts a plain forecasting call.
type ForecasterFunc struct {
	ID string
	Fn func(s Series, horizon int) (*Forecast, error)
}

func (f ForecasterFunc) Name() string { return f.ID }

func (f ForecasterFunc) Forecast(s Series, horizon int) (*Forecast, error) {
	return f.Fn(s, horizon)
}
