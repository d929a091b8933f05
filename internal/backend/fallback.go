package backend

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ZScoreThreshold is the fixed flag threshold of the reference detector: a
// row is anomalous when its absolute z-score exceeds this value.
const ZScoreThreshold = 2.0

// FallbackName identifies the built-in reference implementations in run
// metadata and logs.
const FallbackName = "reference_zscore"

// ZScoreDetector is the dependency-free reference detector used when every
// external strategy fails. It scores each row as the absolute z-score of
// the value against a baseline mean and standard deviation. With a train
// fraction configured, baseline statistics come from the leading train
// partition only, so scores are never computed against data that informed
// the baseline. Deterministic and side-effect-free for identical input.
type ZScoreDetector struct {
	// TrainFraction in (0, 1) takes baseline statistics from the leading
	// fraction of the series. Zero means the full series is the baseline.
	TrainFraction float64
}

func (d ZScoreDetector) Name() string { return FallbackName }

func (d ZScoreDetector) DetectAnomalies(s Series) (*Detection, error) {
	n := s.Len()
	if n == 0 {
		return nil, fmt.Errorf("empty series")
	}

	baseline := s.Values
	if d.TrainFraction > 0 && d.TrainFraction < 1 {
		split := int(math.Round(float64(n) * d.TrainFraction))
		if split < 2 {
			split = 2
		}
		if split > n {
			split = n
		}
		baseline = s.Values[:split]
	}

	mean, std := stat.MeanStdDev(baseline, nil)
	if math.IsNaN(std) {
		// A single-row baseline has no spread estimate.
		std = 0
	}

	scores := make([]float64, n)
	flags := make([]bool, n)
	for i, v := range s.Values {
		if std > 0 {
			scores[i] = math.Abs(v-mean) / std
		} else {
			// Degenerate baseline: no spread. Score by raw deviation so any
			// departure from the constant baseline is flagged.
			scores[i] = math.Abs(v - mean)
		}
		flags[i] = scores[i] > ZScoreThreshold
	}
	return &Detection{Scores: scores, Flags: flags}, nil
}

// PersistenceForecaster is the dependency-free reference forecaster: it
// repeats the most recent season of observed values across the horizon.
// When the series is shorter than one season it repeats the last value.
// Deterministic for identical input.
type PersistenceForecaster struct {
	// SeasonLength is the repeat period in rows. Zero means 24.
	SeasonLength int
}

// FallbackForecasterName identifies the reference forecaster in run metadata.
const FallbackForecasterName = "reference_persistence"

func (f PersistenceForecaster) Name() string { return FallbackForecasterName }

func (f PersistenceForecaster) Forecast(s Series, horizon int) (*Forecast, error) {
	n := s.Len()
	if n == 0 {
		return nil, fmt.Errorf("empty series")
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}

	season := f.SeasonLength
	if season <= 0 {
		season = 24
	}
	if season > n {
		season = 1
	}

	last := s.Values[n-season:]
	values := make([]float64, horizon)
	for i := 0; i < horizon; i++ {
		values[i] = last[i%season]
	}
	return &Forecast{Values: values}, nil
}
