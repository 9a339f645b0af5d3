package sheet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// Writer saves each consolidated report as a workbook in a directory.
// It implements pipeline.Loader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer rooted at dir. The directory is created on
// first use.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Load writes report to <dir>/<report file name>. The file is written to a
// temporary name first so readers never see a partial workbook.
func (w *Writer) Load(_ context.Context, report domain.Report) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(w.dir, report.FileName())

	tmp, err := os.CreateTemp(w.dir, ".reporte-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if err := WriteReport(tmp, report); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish workbook: %w", err)
	}
	w.logger.Info("report workbook written", "path", path, "stations", len(report.Stations))
	return nil
}

// FileSource reads raw variable rows from the "POR VARIABLE" sheet of a
// workbook on disk. It implements pipeline.VariableSource.
type FileSource struct {
	Path string
}

func (s FileSource) Variables(_ context.Context) ([]domain.RawVariable, error) {
	wb, err := OpenFile(s.Path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Variables()
}

// FileCarryover reads the previous period from a consolidated workbook on
// disk. The caller picks the workbook, so the reference date is not
// consulted. It implements pipeline.CarryoverSource.
type FileCarryover struct {
	Path       string
	Thresholds domain.Thresholds
}

func (c FileCarryover) Previous(_ context.Context, _ time.Time) ([]domain.StationRecord, error) {
	wb, err := OpenFile(c.Path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Stations(c.Thresholds)
}
