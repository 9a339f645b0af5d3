package sheet

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sheet names consumed downstream. They must not change.
const (
	SheetStations  = "POR ESTACION"
	SheetSensors   = "POR EQUIPAMIENTO"
	SheetVariables = "POR VARIABLE"
	SheetHidden    = "PROBLEMAS OCULTOS"
	SheetAnomalies = "ANOMALIAS CONFIGURACION"
	SheetSummary   = "INDICADORES"
)

// RequiredSheets are the sheets every consolidated workbook carries.
var RequiredSheets = []string{SheetStations, SheetSensors, SheetVariables, SheetHidden, SheetAnomalies, SheetSummary}

// Logical columns understood by the readers.
const (
	ColZone          = "zone"
	ColStation       = "station"
	ColSensor        = "sensor"
	ColVariable      = "variable"
	ColFrequency     = "frequency"
	ColDataCorrect   = "data_correct"
	ColDataError     = "data_error"
	ColDataExpected  = "data_expected"
	ColAvailability  = "availability"
	ColBucket        = "bucket"
	ColIncidentState = "incident_state"
	ColIncidentDate  = "incident_start_date"
	ColComment       = "comment"
	ColPriority      = "priority"
	ColReason        = "priority_reason"
	ColSource        = "source"
)

// aliases maps each logical column to the header spellings accepted on
// input. The first alias is the header written on output. Matching ignores
// case, accents, spaces and underscores.
var aliases = map[string][]string{
	ColZone:          {"DZ", "zona", "zone", "zone_id"},
	ColStation:       {"Estacion", "estación", "station", "station_name"},
	ColSensor:        {"Sensor", "equipamiento", "sensor_name"},
	ColVariable:      {"Variable", "variable_name"},
	ColFrequency:     {"Frecuencia", "frequency"},
	ColDataCorrect:   {"Datos_flag_C", "datos_correctos", "data_correct"},
	ColDataError:     {"Datos_flag_M", "datos_erroneos", "data_error"},
	ColDataExpected:  {"Datos_esperados", "data_expected"},
	ColAvailability:  {"disponibilidad", "availability", "availability_pct", "disp"},
	ColBucket:        {"clasificacion", "estado_disponibilidad", "bucket"},
	ColIncidentState: {"estado_inci", "estado", "incident_state"},
	ColIncidentDate:  {"f_inci", "fecha_incidencia", "incident_start_date"},
	ColComment:       {"Comentario", "comentarios", "comment"},
	ColPriority:      {"prioridad", "priority"},
	ColReason:        {"motivo_prioridad", "priority_reason"},
	ColSource:        {"fuente", "source"},
}

// MissingColumnsError reports structural columns absent from a sheet.
type MissingColumnsError struct {
	Sheet   string
	Missing []string
	Found   []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("sheet %q is missing required columns %v (found %v)", e.Sheet, e.Missing, e.Found)
}

// MissingSheetError reports a required sheet absent from a workbook.
type MissingSheetError struct {
	Sheet     string
	Available []string
}

func (e *MissingSheetError) Error() string {
	return fmt.Sprintf("workbook has no sheet %q (available %v)", e.Sheet, e.Available)
}

// header maps logical columns to their index in a row.
type header map[string]int

// resolveHeader matches a header row against the aliases of the wanted
// columns. Every required column must be present; optional ones are mapped
// when found.
func resolveHeader(sheet string, row []string, required, optional []string) (header, error) {
	byKey := make(map[string]int, len(row))
	for i, h := range row {
		k := foldHeader(h)
		if _, dup := byKey[k]; !dup && k != "" {
			byKey[k] = i
		}
	}

	h := make(header, len(required)+len(optional))
	var missing []string
	lookup := func(col string) bool {
		for _, a := range aliases[col] {
			if i, ok := byKey[foldHeader(a)]; ok {
				h[col] = i
				return true
			}
		}
		return false
	}
	for _, col := range required {
		if !lookup(col) {
			missing = append(missing, aliases[col][0])
		}
	}
	for _, col := range optional {
		lookup(col)
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Sheet: sheet, Missing: missing, Found: trimAll(row)}
	}
	return h, nil
}

// get returns the trimmed cell of col, or "" when the column is unmapped or
// the row is short.
func (h header) get(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldHeader(s string) string {
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r == ' ' || r == '_' || r == '-' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func trimAll(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
