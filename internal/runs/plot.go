package runs

import (
	"bytes"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Plot colours: series line, anomaly markers, forecast line.
var (
	seriesColor   = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	anomalyColor  = color.RGBA{R: 220, G: 50, B: 47, A: 255}
	forecastColor = color.RGBA{R: 203, G: 75, B: 22, A: 255}
)

// WriteAnomalyPlot renders the value series with flagged rows highlighted
// and saves it as a PNG under figures/. Row index is the x axis so plots of
// identical input are identical regardless of wall-clock.
func (w *Writer) WriteAnomalyPlot(d *Dir, name, title string, values []float64, flags []bool) (string, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Row"
	p.Y.Label.Text = "Value"

	linePts := make(plotter.XYs, len(values))
	var anomalyPts plotter.XYs
	for i, v := range values {
		linePts[i] = plotter.XY{X: float64(i), Y: v}
		if i < len(flags) && flags[i] {
			anomalyPts = append(anomalyPts, plotter.XY{X: float64(i), Y: v})
		}
	}

	line, err := plotter.NewLine(linePts)
	if err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: name, Err: err}
	}
	line.Color = seriesColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("value", line)

	if len(anomalyPts) > 0 {
		scatter, err := plotter.NewScatter(anomalyPts)
		if err != nil {
			return "", &WriteError{RunDir: d.Root, Artifact: name, Err: err}
		}
		scatter.GlyphStyle.Color = anomalyColor
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add("anomaly", scatter)
	}
	p.Legend.Top = true

	return w.savePNG(d, name, p)
}

// WriteForecastPlot renders the observed series followed by the forecast.
func (w *Writer) WriteForecastPlot(d *Dir, name, title string, actual, forecast []float64) (string, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Row"
	p.Y.Label.Text = "Value"

	actualPts := make(plotter.XYs, len(actual))
	for i, v := range actual {
		actualPts[i] = plotter.XY{X: float64(i), Y: v}
	}
	forecastPts := make(plotter.XYs, len(forecast))
	for i, v := range forecast {
		forecastPts[i] = plotter.XY{X: float64(len(actual) + i), Y: v}
	}

	actualLine, err := plotter.NewLine(actualPts)
	if err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: name, Err: err}
	}
	actualLine.Color = seriesColor
	actualLine.Width = vg.Points(1)
	p.Add(actualLine)
	p.Legend.Add("actual", actualLine)

	if len(forecastPts) > 0 {
		forecastLine, err := plotter.NewLine(forecastPts)
		if err != nil {
			return "", &WriteError{RunDir: d.Root, Artifact: name, Err: err}
		}
		forecastLine.Color = forecastColor
		forecastLine.Width = vg.Points(1)
		forecastLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(forecastLine)
		p.Legend.Add("forecast", forecastLine)
	}
	p.Legend.Top = true

	return w.savePNG(d, name, p)
}

// savePNG renders through an in-memory buffer so the figure goes through
// the injected FileSystem like every other artifact.
func (w *Writer) savePNG(d *Dir, name string, p *plot.Plot) (string, error) {
	wt, err := p.WriterTo(12*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: name, Err: err}
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: name, Err: err}
	}

	path := d.FigurePath(name)
	if err := w.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: name, Err: err}
	}
	w.log.Debug("wrote figure artifact", "path", path)
	return path, nil
}
