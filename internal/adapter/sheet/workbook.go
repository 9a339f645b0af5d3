package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// Workbook is an opened report workbook.
type Workbook struct {
	f *excelize.File
}

// Open reads a workbook from r.
func Open(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

// OpenFile reads the workbook at path.
func OpenFile(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{f: f}, nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

// Sheets lists the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.f.GetSheetList()
}

// Rows returns every row of the named sheet. The name is matched
// case-insensitively.
func (w *Workbook) Rows(name string) ([][]string, error) {
	actual, ok := w.lookup(name)
	if !ok {
		return nil, &MissingSheetError{Sheet: name, Available: w.Sheets()}
	}
	rows, err := w.f.GetRows(actual)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", actual, err)
	}
	return rows, nil
}

// Variables decodes the "POR VARIABLE" sheet.
func (w *Workbook) Variables() ([]domain.RawVariable, error) {
	rows, err := w.Rows(SheetVariables)
	if err != nil {
		return nil, err
	}
	return DecodeVariables(SheetVariables, rows)
}

// Stations decodes the "POR ESTACION" sheet.
func (w *Workbook) Stations(th domain.Thresholds) ([]domain.StationRecord, error) {
	rows, err := w.Rows(SheetStations)
	if err != nil {
		return nil, err
	}
	return DecodeStations(SheetStations, rows, th)
}

func (w *Workbook) lookup(name string) (string, bool) {
	for _, s := range w.f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return s, true
		}
	}
	return "", false
}

// ReadVariables decodes the variable sheet of the workbook in r.
func ReadVariables(r io.Reader) ([]domain.RawVariable, error) {
	wb, err := Open(r)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Variables()
}

// ReadCarryover decodes the station sheet of a previous period's workbook.
func ReadCarryover(r io.Reader, th domain.Thresholds) ([]domain.StationRecord, error) {
	wb, err := Open(r)
	if err != nil {
		return nil, err
	}
	defer wb.Close()
	return wb.Stations(th)
}
