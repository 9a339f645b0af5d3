// Package rawcsv reads the flat CSV produced by the raw extraction step:
// one row per zone, station, sensor, variable and frequency with its sample
// counts.
package rawcsv

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/station-availability-etl/internal/adapter/sheet"
	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// SheetName labels CSV input in column errors.
const SheetName = "csv"

// Read parses raw extraction CSV. Both comma and semicolon delimiters are
// accepted; the delimiter is taken from the header line. A UTF-8 BOM is
// ignored.
func Read(r io.Reader) ([]domain.RawVariable, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	head, _ := br.Peek(br.Buffered())
	cr.Comma = sniffDelimiter(head)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return sheet.DecodeVariables(SheetName, records)
}

// sniffDelimiter picks ';' when the header line has more semicolons than
// commas, as spreadsheet exports in Spanish locales do.
func sniffDelimiter(b []byte) rune {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	if bytes.Count(b, []byte{';'}) > bytes.Count(b, []byte{','}) {
		return ';'
	}
	return ','
}

// FileSource reads raw rows from a CSV file on disk. It implements
// pipeline.VariableSource.
type FileSource struct {
	Path string
}

func (s FileSource) Variables(_ context.Context) ([]domain.RawVariable, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open raw csv: %w", err)
	}
	defer f.Close()
	return Read(f)
}
