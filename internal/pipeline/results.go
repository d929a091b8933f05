package pipeline

import (
	"path/filepath"

	"github.com/gridsmith-data/grid.report/internal/metrics"
)

// Results is the terminal handle returned by a successful run. All artifact
// paths are populated; a run that could not write every artifact errors
// instead of returning partial Results.
type Results struct {
	Metrics   metrics.Report
	OutputDir string
	Tables    map[string]string
	Figures   map[string]string
	Metadata  map[string]any
}

// MetricsPath returns the path of the metrics file.
func (r *Results) MetricsPath() string {
	return filepath.Join(r.OutputDir, "metrics.json")
}

// Table returns the path of a named result table.
func (r *Results) Table(name string) (string, bool) {
	p, ok := r.Tables[name]
	return p, ok
}

// Figure returns the path of a named figure.
func (r *Results) Figure(name string) (string, bool) {
	p, ok := r.Figures[name]
	return p, ok
}

// Strategy returns the backend strategy that produced the analytical
// result, or the reference fallback name.
func (r *Results) Strategy() string {
	s, _ := r.Metadata["strategy"].(string)
	return s
}
