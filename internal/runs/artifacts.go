package runs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gridsmith-data/grid.report/internal/fsutil"
	"github.com/gridsmith-data/grid.report/internal/metrics"
	"github.com/gridsmith-data/grid.report/internal/table"
)

// WriteError reports a filesystem failure while writing an artifact. It
// carries the run directory so operators can inspect the partial output;
// the directory is left in place.
type WriteError struct {
	RunDir   string
	Artifact string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s in run directory %s: %v", e.Artifact, e.RunDir, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Writer serializes run artifacts into an allocated Dir.
type Writer struct {
	fs  fsutil.FileSystem
	log *slog.Logger
}

// NewWriter creates a Writer. A nil fs selects the OS filesystem; a nil
// logger discards diagnostics.
func NewWriter(fs fsutil.FileSystem, logger *slog.Logger) *Writer {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Writer{fs: fs, log: logger}
}

// WriteMetrics writes metrics.json. An empty (but never nil) report
// serializes to {} so downstream tooling always finds valid JSON.
func (w *Writer) WriteMetrics(d *Dir, report metrics.Report) (string, error) {
	if report == nil {
		report = metrics.Report{}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: "metrics.json", Err: err}
	}
	data = append(data, '\n')

	path := d.MetricsPath()
	if err := w.fs.WriteFile(path, data, 0o644); err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: "metrics.json", Err: err}
	}
	w.log.Debug("wrote metrics artifact", "path", path, "metrics", len(report))
	return path, nil
}

// WriteTable writes a result table as CSV under tables/.
func (w *Writer) WriteTable(d *Dir, name string, f *table.Frame) (string, error) {
	var buf bytes.Buffer
	if err := f.WriteCSV(&buf); err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: name, Err: err}
	}

	path := d.TablePath(name)
	if err := w.fs.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: name, Err: err}
	}
	w.log.Debug("wrote table artifact", "path", path, "rows", f.NumRows())
	return path, nil
}

// WriteRunLog writes the strategy audit trail under logs/.
func (w *Writer) WriteRunLog(d *Dir, lines []string) (string, error) {
	path := d.LogPath("run.log")
	data := []byte(strings.Join(lines, "\n") + "\n")
	if err := w.fs.WriteFile(path, data, 0o644); err != nil {
		return "", &WriteError{RunDir: d.Root, Artifact: "run.log", Err: err}
	}
	return path, nil
}
