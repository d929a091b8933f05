// grid-report runs the anomaly detection and load forecasting pipelines
// over tabular time-series input and writes the run artifacts (metrics,
// result table, plot) into a timestamped run directory.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/gridsmith-data/grid.report/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := &cobra.Command{
		Use:           "grid-report",
		Short:         "Run analysis pipelines over tabular time-series data",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set debug logging level")

	rootCmd.AddCommand(
		newAnalyzeCmd(&verbose),
		newForecastCmd(&verbose),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "grid-report: %v\n", err)
		return 1
	}
	return 0
}

// runFlags are the config fields settable from the command line. Flags
// override values loaded from --config.
type runFlags struct {
	configPath  string
	input       string
	output      string
	timestamp   string
	value       string
	meter       string
	groundTruth string
	sqliteTable string
	trainRatio  float64
	horizon     int
	season      int
	holdout     bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML run configuration file")
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "input table (.csv, .db, .sqlite)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "runs", "base output directory")
	cmd.Flags().StringVar(&f.timestamp, "timestamp-column", "", "override the timestamp column name")
	cmd.Flags().StringVar(&f.value, "value-column", "", "override the value column name")
	cmd.Flags().StringVar(&f.meter, "meter-column", "", "override the meter id column name")
	cmd.Flags().StringVar(&f.groundTruth, "ground-truth-column", "", "override the ground truth column name")
	cmd.Flags().StringVar(&f.sqliteTable, "sqlite-table", "", "table name for SQLite inputs with multiple tables")
	cmd.Flags().Float64Var(&f.trainRatio, "train-ratio", 0, "leading fraction used for fallback baseline statistics")
}

// config merges the optional config file with the flags; flags win.
func (f *runFlags) config(cmd *cobra.Command) (pipeline.Config, error) {
	var cfg pipeline.Config
	if f.configPath != "" {
		loaded, err := pipeline.LoadConfig(f.configPath)
		if err != nil {
			return pipeline.Config{}, err
		}
		cfg = *loaded
	}

	if f.input != "" {
		cfg.InputPath = f.input
	}
	if cmd.Flags().Changed("output") || cfg.OutputDir == "" {
		cfg.OutputDir = f.output
	}
	if f.timestamp != "" {
		cfg.TimestampColumn = f.timestamp
	}
	if f.value != "" {
		cfg.ValueColumn = f.value
	}
	if f.meter != "" {
		cfg.MeterIDColumn = f.meter
	}
	if f.groundTruth != "" {
		cfg.GroundTruthColumn = f.groundTruth
	}
	if f.sqliteTable != "" {
		cfg.SQLiteTable = f.sqliteTable
	}
	if f.trainRatio != 0 {
		cfg.TrainRatio = f.trainRatio
	}
	if f.horizon != 0 {
		cfg.Horizon = f.horizon
	}
	if f.season != 0 {
		cfg.SeasonLength = f.season
	}
	if f.holdout {
		cfg.HoldoutEval = true
	}
	return cfg, nil
}

func newAnalyzeCmd(verbose *bool) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect anomalies in a consumption series",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(cmd)
			if err != nil {
				return err
			}
			log := newLogger(*verbose)
			p, err := pipeline.New(cfg, pipeline.WithLogger(log))
			if err != nil {
				return err
			}
			results, err := p.RunAnomaly()
			if err != nil {
				return err
			}
			log.Info("run complete",
				"output_dir", results.OutputDir,
				"strategy", results.Strategy(),
				"metrics", len(results.Metrics))
			fmt.Println(results.OutputDir)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newForecastCmd(verbose *bool) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast a load series",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(cmd)
			if err != nil {
				return err
			}
			log := newLogger(*verbose)
			p, err := pipeline.New(cfg, pipeline.WithLogger(log))
			if err != nil {
				return err
			}
			results, err := p.RunForecast()
			if err != nil {
				return err
			}
			log.Info("run complete",
				"output_dir", results.OutputDir,
				"strategy", results.Strategy(),
				"metrics", len(results.Metrics))
			fmt.Println(results.OutputDir)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&flags.horizon, "horizon", 0, "forecast horizon in steps (default 24)")
	cmd.Flags().IntVar(&flags.season, "season-length", 0, "season length of the reference forecaster (default 24)")
	cmd.Flags().BoolVar(&flags.holdout, "holdout-eval", false, "withhold the final horizon rows and score the forecast against them")
	return cmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
