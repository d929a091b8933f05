package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gridsmith-data/grid.report/internal/backend"
	"github.com/gridsmith-data/grid.report/internal/fsutil"
	"github.com/gridsmith-data/grid.report/internal/metrics"
	"github.com/gridsmith-data/grid.report/internal/runs"
	"github.com/gridsmith-data/grid.report/internal/schema"
	"github.com/gridsmith-data/grid.report/internal/table"
	"github.com/gridsmith-data/grid.report/internal/timeutil"
)

// Pipeline runs one analysis per invocation: load and validate the input,
// dispatch the analytical step over the injected backends, compute metrics,
// write artifacts. It holds no mutable cross-run state; concurrent runs
// with distinct output directories need no locking.
type Pipeline struct {
	cfg Config

	detectors   []backend.Detector
	forecasters []backend.Forecaster

	log    *slog.Logger
	clock  timeutil.Clock
	fs     fsutil.FileSystem
	engine *metrics.Engine
	writer *runs.Writer
}

// Option adjusts a Pipeline at construction.
type Option func(*Pipeline)

// WithDetectors injects the available anomaly backends in priority order.
// The order is preserved exactly; the dispatcher tries them first to last.
func WithDetectors(ds ...backend.Detector) Option {
	return func(p *Pipeline) { p.detectors = append(p.detectors, ds...) }
}

// WithForecasters injects the available forecasting backends in priority order.
func WithForecasters(fs ...backend.Forecaster) Option {
	return func(p *Pipeline) { p.forecasters = append(p.forecasters, fs...) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithClock sets the clock used for run directory naming.
func WithClock(c timeutil.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithFileSystem sets the filesystem artifacts are written through.
func WithFileSystem(fs fsutil.FileSystem) Option {
	return func(p *Pipeline) { p.fs = fs }
}

// New validates the config and constructs a Pipeline. The backend list may
// be empty; runs then use the reference implementations.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.clock == nil {
		p.clock = timeutil.RealClock{}
	}
	if p.fs == nil {
		p.fs = fsutil.OSFileSystem{}
	}
	p.engine = metrics.NewEngine(p.log)
	p.writer = runs.NewWriter(p.fs, p.log)
	return p, nil
}

// RunAnomaly executes the anomaly detection pipeline and returns the
// results handle.
func (p *Pipeline) RunAnomaly() (*Results, error) {
	frame, err := p.loadInput()
	if err != nil {
		return nil, err
	}

	resolved, err := schema.Validate(frame, p.overrides())
	if err != nil {
		return nil, err
	}
	p.log.Info("schema resolved",
		"timestamp", resolved.Timestamp, "value", resolved.Value,
		"meter_id", resolved.MeterID, "ground_truth", resolved.GroundTruth)

	series, err := p.buildSeries(frame, resolved)
	if err != nil {
		return nil, err
	}

	detection, chosen, attempts, err := p.dispatchDetection(series)
	if err != nil {
		return nil, err
	}

	report := metrics.Report{}
	if resolved.HasGroundTruth() {
		truth, err := frame.Bools(resolved.GroundTruth)
		if err != nil {
			return nil, &schema.ValidationError{Role: schema.RoleGroundTruth, Reason: err.Error()}
		}
		report, err = p.engine.Classification(truth, detection.Flags, nil)
		if err != nil {
			return nil, err
		}
	}

	out, err := p.anomalyTable(frame, resolved, detection)
	if err != nil {
		return nil, err
	}

	dir, err := p.allocate("ami_anomaly")
	if err != nil {
		return nil, err
	}

	if _, err := p.writer.WriteMetrics(dir, report); err != nil {
		return nil, err
	}
	tablePath, err := p.writer.WriteTable(dir, "anomaly_results.csv", out)
	if err != nil {
		return nil, err
	}
	values, _ := frame.Floats(resolved.Value)
	figurePath, err := p.writer.WriteAnomalyPlot(dir, "anomaly_plot.png",
		"Anomaly Detection Results", values, detection.Flags)
	if err != nil {
		return nil, err
	}
	tsCells, _ := frame.Strings(resolved.Timestamp)
	if _, err := p.writer.WriteAnomalyReport(dir, "Anomaly Detection Results", tsCells, values, detection.Flags); err != nil {
		return nil, err
	}
	if _, err := p.writer.WriteRunLog(dir, auditLines(attempts, chosen)); err != nil {
		return nil, err
	}

	return &Results{
		Metrics:   report,
		OutputDir: dir.Root,
		Tables:    map[string]string{"anomaly_results": tablePath},
		Figures:   map[string]string{"anomaly_plot": figurePath},
		Metadata: p.runMetadata("ami_anomaly", chosen, map[string]any{
			"rows":      frame.NumRows(),
			"anomalies": countTrue(detection.Flags),
		}),
	}, nil
}

// RunForecast executes the forecasting pipeline.
func (p *Pipeline) RunForecast() (*Results, error) {
	frame, err := p.loadInput()
	if err != nil {
		return nil, err
	}

	resolved, err := schema.Validate(frame, p.overrides())
	if err != nil {
		return nil, err
	}

	series, err := p.buildSeries(frame, resolved)
	if err != nil {
		return nil, err
	}

	horizon := p.cfg.horizonOrDefault()

	// With holdout evaluation the final horizon rows are withheld from the
	// forecaster and scored against its output.
	trainSeries := series
	var holdout []float64
	if p.cfg.HoldoutEval && series.Len() > horizon {
		split := series.Len() - horizon
		trainSeries = backend.Series{
			Timestamps: series.Timestamps[:split],
			Values:     series.Values[:split],
		}
		holdout = series.Values[split:]
	}

	forecast, chosen, attempts, err := p.dispatchForecast(trainSeries, horizon)
	if err != nil {
		return nil, err
	}

	report := metrics.Report{}
	if len(holdout) == len(forecast.Values) && len(holdout) > 0 {
		report, err = p.engine.Regression(holdout, forecast.Values, nil)
		if err != nil {
			return nil, err
		}
	}

	out, err := p.forecastTable(trainSeries, forecast, holdout)
	if err != nil {
		return nil, err
	}

	dir, err := p.allocate("load_forecast")
	if err != nil {
		return nil, err
	}

	if _, err := p.writer.WriteMetrics(dir, report); err != nil {
		return nil, err
	}
	tablePath, err := p.writer.WriteTable(dir, "forecast_results.csv", out)
	if err != nil {
		return nil, err
	}
	figurePath, err := p.writer.WriteForecastPlot(dir, "forecast_plot.png",
		"Load Forecast Results", trainSeries.Values, forecast.Values)
	if err != nil {
		return nil, err
	}
	if _, err := p.writer.WriteRunLog(dir, auditLines(attempts, chosen)); err != nil {
		return nil, err
	}

	return &Results{
		Metrics:   report,
		OutputDir: dir.Root,
		Tables:    map[string]string{"forecast_results": tablePath},
		Figures:   map[string]string{"forecast_plot": figurePath},
		Metadata: p.runMetadata("load_forecast", chosen, map[string]any{
			"rows":    frame.NumRows(),
			"horizon": horizon,
		}),
	}, nil
}

// loadInput loads the configured input, or generates the synthetic series.
func (p *Pipeline) loadInput() (*table.Frame, error) {
	if p.cfg.Synthetic != nil {
		return generateSynthetic(p.cfg.Synthetic)
	}
	ext := strings.ToLower(filepath.Ext(p.cfg.InputPath))
	if p.cfg.SQLiteTable != "" && (ext == ".db" || ext == ".sqlite" || ext == ".sqlite3") {
		return table.LoadSQLite(p.cfg.InputPath, p.cfg.SQLiteTable)
	}
	return table.Load(p.cfg.InputPath)
}

func (p *Pipeline) overrides() schema.Overrides {
	return schema.Overrides{
		Timestamp:   p.cfg.TimestampColumn,
		Value:       p.cfg.ValueColumn,
		MeterID:     p.cfg.MeterIDColumn,
		GroundTruth: p.cfg.GroundTruthColumn,
	}
}

func (p *Pipeline) buildSeries(frame *table.Frame, resolved *schema.ResolvedSchema) (backend.Series, error) {
	times, err := frame.Times(resolved.Timestamp)
	if err != nil {
		return backend.Series{}, &schema.ValidationError{Role: schema.RoleTimestamp, Reason: err.Error()}
	}
	values, err := frame.Floats(resolved.Value)
	if err != nil {
		return backend.Series{}, &schema.ValidationError{Role: schema.RoleValue, Reason: err.Error()}
	}
	return backend.Series{Timestamps: times, Values: values}, nil
}

// dispatchDetection tries the injected detectors in order and falls back to
// the reference z-score detector when the list is exhausted.
func (p *Pipeline) dispatchDetection(series backend.Series) (*backend.Detection, string, []backend.Attempt, error) {
	strategies := make([]backend.Strategy[*backend.Detection], 0, len(p.detectors))
	for _, det := range p.detectors {
		det := det
		strategies = append(strategies, backend.Strategy[*backend.Detection]{
			ID:    det.Name(),
			Run:   func() (*backend.Detection, error) { return det.DetectAnomalies(series) },
			Check: func(r *backend.Detection) error { return r.Validate(series.Len()) },
		})
	}

	disp := backend.NewDispatcher(strategies, p.log)
	detection, chosen, err := disp.Dispatch()
	attempts := disp.Attempts()
	if err == nil {
		return detection, chosen, attempts, nil
	}
	if !errors.Is(err, backend.ErrExhausted) {
		return nil, "", attempts, err
	}

	p.log.Info("backend unavailable, using reference detector",
		"tried", len(attempts), "fallback", backend.FallbackName)
	fb := backend.ZScoreDetector{TrainFraction: p.cfg.TrainRatio}
	detection, err = fb.DetectAnomalies(series)
	if err != nil {
		return nil, "", attempts, fmt.Errorf("reference detector: %w", err)
	}
	return detection, fb.Name(), attempts, nil
}

func (p *Pipeline) dispatchForecast(series backend.Series, horizon int) (*backend.Forecast, string, []backend.Attempt, error) {
	strategies := make([]backend.Strategy[*backend.Forecast], 0, len(p.forecasters))
	for _, fc := range p.forecasters {
		strategies = append(strategies, backend.Strategy[*backend.Forecast]{
			ID:    fc.Name(),
			Run:   func() (*backend.Forecast, error) { return fc.Forecast(series, horizon) },
			Check: func(r *backend.Forecast) error { return r.Validate(horizon) },
		})
	}

	disp := backend.NewDispatcher(strategies, p.log)
	forecast, chosen, err := disp.Dispatch()
	attempts := disp.Attempts()
	if err == nil {
		return forecast, chosen, attempts, nil
	}
	if !errors.Is(err, backend.ErrExhausted) {
		return nil, "", attempts, err
	}

	p.log.Info("backend unavailable, using reference forecaster",
		"tried", len(attempts), "fallback", backend.FallbackForecasterName)
	fb := backend.PersistenceForecaster{SeasonLength: p.cfg.SeasonLength}
	forecast, err = fb.Forecast(series, horizon)
	if err != nil {
		return nil, "", attempts, fmt.Errorf("reference forecaster: %w", err)
	}
	return forecast, fb.Name(), attempts, nil
}

// anomalyTable builds the contract result table: timestamp, consumption,
// meter_id (when resolved), anomaly_score, is_anomaly, all under canonical
// names.
func (p *Pipeline) anomalyTable(frame *table.Frame, resolved *schema.ResolvedSchema, detection *backend.Detection) (*table.Frame, error) {
	cols := []string{resolved.Timestamp, resolved.Value}
	rename := map[string]string{
		resolved.Timestamp: schema.ColTimestamp,
		resolved.Value:     schema.ColConsumption,
	}
	if resolved.HasMeterID() {
		cols = append(cols, resolved.MeterID)
		rename[resolved.MeterID] = schema.ColMeterID
	}

	out, err := frame.Select(cols)
	if err != nil {
		return nil, err
	}
	out = out.Rename(rename)

	if err := out.AddFloatColumn(schema.ColAnomalyScore, detection.Scores); err != nil {
		return nil, err
	}
	if err := out.AddBoolColumn(schema.ColIsAnomaly, detection.Flags); err != nil {
		return nil, err
	}
	return out, nil
}

// forecastTable concatenates the observed rows with the forecast horizon.
// Observed rows carry actual, future rows carry forecast; timestamps extend
// past the series end at its native step. Withheld holdout actuals are
// reattached to the overlapping forecast rows for side-by-side comparison.
func (p *Pipeline) forecastTable(series backend.Series, forecast *backend.Forecast, holdout []float64) (*table.Frame, error) {
	out := table.NewFrame([]string{schema.ColTimestamp, schema.ColActual, schema.ColForecast})

	for i := range series.Values {
		row := []string{
			table.FormatTimestamp(series.Timestamps[i]),
			formatFloat(series.Values[i]),
			"",
		}
		if err := out.AppendRow(row); err != nil {
			return nil, err
		}
	}

	step := seriesStep(series)
	last := series.Timestamps[len(series.Timestamps)-1]
	for i, v := range forecast.Values {
		actual := ""
		if i < len(holdout) {
			actual = formatFloat(holdout[i])
		}
		row := []string{
			table.FormatTimestamp(last.Add(time.Duration(i+1) * step)),
			actual,
			formatFloat(v),
		}
		if err := out.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *Pipeline) allocate(pipelineName string) (*runs.Dir, error) {
	manager := runs.NewManager(p.cfg.OutputDir, p.fs, p.clock)
	return manager.Allocate(pipelineName)
}

func (p *Pipeline) runMetadata(pipelineName, chosen string, extra map[string]any) map[string]any {
	md := map[string]any{
		"run_id":   uuid.NewString(),
		"pipeline": pipelineName,
		"strategy": chosen,
	}
	for k, v := range extra {
		md[k] = v
	}
	for k, v := range p.cfg.Metadata {
		md[k] = v
	}
	return md
}

// auditLines renders the dispatcher attempt trail for logs/run.log.
func auditLines(attempts []backend.Attempt, chosen string) []string {
	lines := make([]string, 0, len(attempts)+1)
	for i, a := range attempts {
		if a.Err != nil {
			lines = append(lines, fmt.Sprintf("attempt %d strategy=%s failed: %v", i, a.ID, a.Err))
		} else {
			lines = append(lines, fmt.Sprintf("attempt %d strategy=%s succeeded", i, a.ID))
		}
	}
	lines = append(lines, fmt.Sprintf("selected strategy=%s", chosen))
	return lines
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
