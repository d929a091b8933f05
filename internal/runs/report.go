package runs

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteAnomalyReport renders a supplemental interactive HTML chart of the
// value series with anomalies overlaid. This is additive to the figure
// contract; callers that only need the PNG can skip it.
func (w *Writer) WriteAnomalyReport(d *Dir, title string, timestamps []string, values []float64, flags []bool) (string, error) {
	lineData := make([]opts.LineData, len(values))
	var anomalyData []opts.ScatterData
	for i, v := range values {
		lineData[i] = opts.LineData{Value: v}
		if i < len(flags) && flags[i] {
			anomalyData = append(anomalyData, opts.ScatterData{Value: []interface{}{timestamps[i], v}})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d rows, %d anomalies", len(values), len(anomalyData))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "timestamp"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "value"}),
	)
	line.SetXAxis(timestamps).AddSeries("value", lineData)

	if len(anomalyData) > 0 {
		scatter := charts.NewScatter()
		scatter.AddSeries("anomaly", anomalyData,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "#dc322f"}),
		)
		line.Overlap(scatter)
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: "report.html", Err: err}
	}

	path := d.ReportPath()
	if err := w.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: "report.html", Err: err}
	}
	w.log.Debug("wrote html report", "path", path)
	return path, nil
}
