package sheet

import (
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

var (
	variableRequired = []string{ColZone, ColStation, ColSensor, ColVariable, ColFrequency, ColDataCorrect}
	variableOptional = []string{ColDataError, ColDataExpected}

	stationRequired = []string{ColZone, ColStation, ColIncidentState}
	stationOptional = []string{ColIncidentDate, ColComment, ColAvailability, ColBucket, ColPriority, ColReason, ColSource}
)

// DecodeVariables turns a header row plus data rows into raw variable rows.
// Malformed counts become 0 and are listed in RawVariable.Defaulted; a blank
// expected count is left nil so it can be derived from the frequency. Rows
// with neither zone nor station are skipped as padding.
func DecodeVariables(sheet string, rows [][]string) ([]domain.RawVariable, error) {
	if len(rows) == 0 {
		return nil, &MissingColumnsError{Sheet: sheet, Missing: headersOf(variableRequired)}
	}
	h, err := resolveHeader(sheet, rows[0], variableRequired, variableOptional)
	if err != nil {
		return nil, err
	}

	out := make([]domain.RawVariable, 0, len(rows)-1)
	for _, row := range rows[1:] {
		zone, station := h.get(row, ColZone), h.get(row, ColStation)
		if zone == "" && station == "" {
			continue
		}
		v := domain.RawVariable{
			Zone:      zone,
			Station:   station,
			Sensor:    h.get(row, ColSensor),
			Variable:  h.get(row, ColVariable),
			Frequency: h.get(row, ColFrequency),
		}
		var ok bool
		if v.DataCorrect, ok = parseCount(h.get(row, ColDataCorrect)); !ok {
			v.Defaulted = append(v.Defaulted, ColDataCorrect)
		}
		if h.has(ColDataError) {
			if v.DataError, ok = parseCount(h.get(row, ColDataError)); !ok {
				v.Defaulted = append(v.Defaulted, ColDataError)
			}
		}
		if s := h.get(row, ColDataExpected); s != "" {
			n, ok := parseCount(s)
			if !ok {
				v.Defaulted = append(v.Defaulted, ColDataExpected)
			}
			v.DataExpected = &n
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeStations reads station rows of a consolidated workbook. Unknown
// incident states become "none" and unparseable dates "no date"; neither is
// an error. Buckets are derived from the availability with th; the label
// column is only consulted when the availability cell is blank.
func DecodeStations(sheet string, rows [][]string, th domain.Thresholds) ([]domain.StationRecord, error) {
	if len(rows) == 0 {
		return nil, &MissingColumnsError{Sheet: sheet, Missing: headersOf(stationRequired)}
	}
	h, err := resolveHeader(sheet, rows[0], stationRequired, stationOptional)
	if err != nil {
		return nil, err
	}

	out := make([]domain.StationRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		zone, station := h.get(row, ColZone), h.get(row, ColStation)
		if zone == "" && station == "" {
			continue
		}
		rec := domain.StationRecord{
			Key: domain.NewStationKey(zone, station),
			Incident: domain.Incident{
				State:   domain.ParseIncidentState(h.get(row, ColIncidentState)),
				Comment: h.get(row, ColComment),
			},
			Priority:       domain.ParsePriority(h.get(row, ColPriority)),
			PriorityReason: h.get(row, ColReason),
		}
		if start, ok := domain.ParseDate(h.get(row, ColIncidentDate)); ok {
			rec.Incident.StartDate = start
		}
		rec.Incident.ClosureCandidate = strings.Contains(rec.PriorityReason, "CLAUSURA")

		cell := h.get(row, ColAvailability)
		rec.Availability = th.NewAvailability(parsePct(cell))
		if cell == "" {
			if b, ok := domain.ParseBucketLabel(h.get(row, ColBucket)); ok {
				rec.Availability.Bucket = b
			}
		}
		_ = rec.Source.UnmarshalText([]byte(h.get(row, ColSource)))
		out = append(out, rec)
	}
	return out, nil
}

// parseCount parses a non-negative sample count. Spreadsheet tools may
// render integers as floats ("168.0"). Blank, negative or non-numeric input
// yields 0 and false.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}

// parsePct parses a percentage such as "92.5", "92,5" or "92.5%". Blank or
// malformed input yields NaN, which classifies as "not received".
func parsePct(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func headersOf(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = aliases[c][0]
	}
	return out
}
