package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Report is the consolidated output of one reporting period.
type Report struct {
	ReferenceDate time.Time        `json:"reference_date"`
	PeriodStart   time.Time        `json:"period_start"`
	GeneratedAt   time.Time        `json:"generated_at"`
	Stations      []StationRecord  `json:"stations"`
	Sensors       []SensorRecord   `json:"sensors"`
	Variables     []VariableRecord `json:"variables"`
	Hidden        []HiddenProblem  `json:"hidden_problems"`
	Anomalies     []ConfigAnomaly  `json:"configuration_anomalies"`
	Summary       NetworkSummary   `json:"summary"`
	Zones         []ZoneStats      `json:"zones"`
}

// FileName returns the workbook name of the report.
func (r Report) FileName() string {
	return ReportFileName(r.PeriodStart, r.ReferenceDate)
}

// ReportFileName builds "reporte_disponibilidad_SGR_DDMM_DDMM.xlsx".
func ReportFileName(start, end time.Time) string {
	if start.IsZero() {
		start = end
	}
	return fmt.Sprintf("reporte_disponibilidad_SGR_%s_%s.xlsx", start.Format("0201"), end.Format("0201"))
}

var reportNameRe = regexp.MustCompile(`(\d{2})(\d{2})_(\d{2})(\d{2})(?:\.xlsx)?$`)

// ParseReportFileName recovers the period dates encoded in a report file
// name. File names carry no year, so the year is taken from ref and moved
// back one when the period ends more than a month after ref's month
// (a December report opened in January).
func ParseReportFileName(name string, ref time.Time) (start, end time.Time, err error) {
	m := reportNameRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("report file name %q has no DDMM_DDMM period", name)
	}
	n := make([]int, 4)
	for i := range n {
		n[i], _ = strconv.Atoi(m[i+1])
	}
	year := ref.Year()
	if n[3] > int(ref.Month())+1 {
		year--
	}
	end = time.Date(year, time.Month(n[3]), n[2], 0, 0, 0, 0, time.UTC)
	start = time.Date(year, time.Month(n[1]), n[0], 0, 0, 0, 0, time.UTC)
	if start.After(end) {
		start = start.AddDate(-1, 0, 0)
	}
	if end.Day() != n[2] || start.Day() != n[0] {
		return time.Time{}, time.Time{}, fmt.Errorf("report file name %q has an invalid date", name)
	}
	return start, end, nil
}
