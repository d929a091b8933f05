// Package runs allocates timestamped run directories and writes the fixed
// artifact set into them: metrics.json, one result table, one figure.
package runs

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/gridsmith-data/grid.report/internal/fsutil"
	"github.com/gridsmith-data/grid.report/internal/timeutil"
)

// Subdirectories every run directory carries, created eagerly before any
// artifact write.
const (
	TablesDir  = "tables"
	FiguresDir = "figures"
	LogsDir    = "logs"
)

// dirTimestampFormat names run directories; sortable and filesystem-safe.
const dirTimestampFormat = "20060102_150405"

// Manager allocates fresh run directories under a base directory.
type Manager struct {
	baseDir string
	fs      fsutil.FileSystem
	clock   timeutil.Clock
}

// NewManager creates a Manager rooted at baseDir. A nil fs or clock selects
// the OS filesystem and real clock.
func NewManager(baseDir string, fs fsutil.FileSystem, clock timeutil.Clock) *Manager {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Manager{baseDir: baseDir, fs: fs, clock: clock}
}

// Dir is an allocated run directory with its fixed layout in place.
type Dir struct {
	Root string
	fs   fsutil.FileSystem
}

// Allocate creates <base>/<timestamp>_<pipeline>/ with the tables, figures
// and logs subdirectories. When the timestamped name already exists (two
// runs within one second) a numeric suffix disambiguates.
func (m *Manager) Allocate(pipeline string) (*Dir, error) {
	stamp := m.clock.Now().Format(dirTimestampFormat)
	name := fmt.Sprintf("%s_%s", stamp, pipeline)

	root := filepath.Join(m.baseDir, name)
	for i := 1; m.fs.Exists(root); i++ {
		root = filepath.Join(m.baseDir, fmt.Sprintf("%s_%d", name, i))
	}

	for _, sub := range []string{"", TablesDir, FiguresDir, LogsDir} {
		if err := m.fs.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create run directory %s: %w", root, err)
		}
	}
	return &Dir{Root: root, fs: m.fs}, nil
}

// MetricsPath returns the path of the metrics file.
func (d *Dir) MetricsPath() string { return filepath.Join(d.Root, "metrics.json") }

// TablePath returns the path of a named result table.
func (d *Dir) TablePath(name string) string { return filepath.Join(d.Root, TablesDir, name) }

// FigurePath returns the path of a named figure.
func (d *Dir) FigurePath(name string) string { return filepath.Join(d.Root, FiguresDir, name) }

// LogPath returns the path of a named log file.
func (d *Dir) LogPath(name string) string { return filepath.Join(d.Root, LogsDir, name) }

// ReportPath returns the path of the supplemental HTML report.
func (d *Dir) ReportPath() string { return filepath.Join(d.Root, "report.html") }

// Timestamp parses the leading timestamp out of a run directory name.
func Timestamp(root string) (time.Time, error) {
	base := filepath.Base(root)
	if len(base) < len(dirTimestampFormat) {
		return time.Time{}, fmt.Errorf("%q is not a run directory name", base)
	}
	return time.Parse(dirTimestampFormat, base[:len(dirTimestampFormat)])
}
