// Command validate checks a consolidated availability workbook: the sheet
// contract downstream consumers depend on, bucket and incident lifecycle
// invariants, priority tiers and the variable-to-station rollup. With -raw
// it also checks the workbook against the raw extraction it was built from.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -workbook reportes/reporte_disponibilidad_SGR_2810_0411.xlsx \
//	  -raw data/mock/disponibilidad_2810_0411.csv
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/station-availability-etl/internal/adapter/rawcsv"
	"github.com/couchcryptid/station-availability-etl/internal/adapter/sheet"
	"github.com/couchcryptid/station-availability-etl/internal/config"
	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// rollupTolerance absorbs the two-decimal rounding applied at every level.
const rollupTolerance = 0.02

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// workbook is everything the phases read, decoded once.
type workbook struct {
	sheets    []string
	stations  []domain.StationRecord
	variables []domain.RawVariable
	ref       time.Time
}

func main() {
	path := flag.String("workbook", "", "consolidated report workbook")
	rawPath := flag.String("raw", "", "raw extraction CSV the workbook was built from (optional)")
	refDate := flag.String("reference-date", "", "reference date DD/MM/YYYY (default: from the workbook file name)")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*path, *rawPath, *refDate))
}

func run(path, rawPath, refDate string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	th := cfg.Thresholds

	fmt.Println("=== Station Availability Workbook Validation ===")
	fmt.Println()

	ref, err := referenceDate(path, refDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	contract, wb := validateContract(path, th)
	wb.ref = ref
	phases := []*phase{contract}
	if contract.passed() {
		phases = append(phases,
			validateBuckets(wb, th),
			validateLifecycle(wb, th),
			validatePriorities(wb, th),
			validateRollup(wb, th),
		)
		if rawPath != "" {
			phases = append(phases, validateRawParity(wb, rawPath, cfg.ExcludedVariables))
		}
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Reference date %s: %d stations, %d variable rows, %d sheets\n",
		domain.FormatDate(ref), len(wb.stations), len(wb.variables), len(wb.sheets))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func referenceDate(path, flagValue string) (time.Time, error) {
	if flagValue != "" {
		d, ok := domain.ParseDate(flagValue)
		if !ok {
			return time.Time{}, fmt.Errorf("invalid -reference-date %q", flagValue)
		}
		return d, nil
	}
	_, end, err := domain.ParseReportFileName(filepath.Base(path), domain.Today())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w (pass -reference-date)", err)
	}
	return end, nil
}

// ── Phase 1: sheet contract ──

func validateContract(path string, th domain.Thresholds) (*phase, workbook) {
	p := &phase{name: "Sheet contract"}
	var wb workbook

	f, err := sheet.OpenFile(path)
	if err != nil {
		p.errorf("open workbook: %v", err)
		return p, wb
	}
	defer f.Close()

	wb.sheets = f.Sheets()
	for _, name := range sheet.RequiredSheets {
		if !slices.Contains(wb.sheets, name) {
			p.errorf("missing sheet %q (found %v)", name, wb.sheets)
		}
	}

	if wb.stations, err = f.Stations(th); err != nil {
		p.errorf("%v", err)
	}
	if wb.variables, err = f.Variables(); err != nil {
		p.errorf("%v", err)
	}

	seen := make(map[domain.StationKey]bool, len(wb.stations))
	for _, st := range wb.stations {
		if seen[st.Key] {
			p.errorf("%s: duplicate station row", st.Key)
		}
		seen[st.Key] = true
	}
	for i := 1; i < len(wb.stations); i++ {
		if wb.stations[i].Key.Less(wb.stations[i-1].Key) {
			p.errorf("%s: station rows not ordered by zone and station", wb.stations[i].Key)
			break
		}
	}
	return p, wb
}

// ── Phase 2: availability buckets ──

func validateBuckets(wb workbook, th domain.Thresholds) *phase {
	p := &phase{name: "Availability buckets"}
	for _, st := range wb.stations {
		a := st.Availability
		if a.Pct < 0 || a.Pct > th.AnomalyPct {
			p.errorf("%s: station availability %.2f outside [0, %.0f]", st.Key, a.Pct, th.AnomalyPct)
		}
		if want := th.ClassifyBucket(a.Pct); want != a.Bucket {
			p.errorf("%s: bucket %q for %.2f%%, want %q", st.Key, a.Bucket.Label(), a.Pct, want.Label())
		}
	}
	return p
}

// ── Phase 3: incident lifecycle ──

func validateLifecycle(wb workbook, th domain.Thresholds) *phase {
	p := &phase{name: "Incident lifecycle"}
	for _, st := range wb.stations {
		state, pct := st.Incident.State, st.Availability.Pct
		carried := st.Source == domain.SourcePrevious

		switch {
		case state == domain.IncidentDormant && pct > th.DormancyMaxPct:
			p.errorf("%s: dormant with %.2f%% availability (max %.2f)", st.Key, pct, th.DormancyMaxPct)
		case state == domain.IncidentResolved && st.Availability.Bucket.Critical() && !carried:
			p.errorf("%s: resolved while critical (%.2f%%)", st.Key, pct)
		case state == domain.IncidentNone && st.Availability.Bucket.Critical() && !carried:
			p.errorf("%s: critical (%.2f%%) without an incident", st.Key, pct)
		}
		if st.Incident.ClosureCandidate && state != domain.IncidentDormant {
			p.errorf("%s: closure candidate in state %q", st.Key, state.Label())
		}
		if st.Incident.HasStartDate() && st.Incident.StartDate.After(wb.ref) {
			p.errorf("%s: incident starts %s, after the reference date", st.Key, domain.FormatDate(st.Incident.StartDate))
		}
	}
	return p
}

// ── Phase 4: priority tiers ──

func validatePriorities(wb workbook, th domain.Thresholds) *phase {
	p := &phase{name: "Priority tiers"}
	for _, st := range wb.stations {
		days := domain.DaysSince(st.Incident.StartDate, wb.ref)
		want := th.ClassifyPriority(st.Incident.State, days, st.Availability.Pct)
		if want != st.Priority {
			p.errorf("%s: priority %s, want %s (%s, %.2f%%)", st.Key, st.Priority, want, st.Incident.State.Label(), st.Availability.Pct)
		}
		if st.PriorityReason == "" {
			p.errorf("%s: empty priority reason", st.Key)
		}
	}
	return p
}

// ── Phase 5: variable to station rollup ──

func validateRollup(wb workbook, th domain.Thresholds) *phase {
	p := &phase{name: "Variable to station rollup"}

	vars := make([]domain.VariableRecord, 0, len(wb.variables))
	for _, v := range wb.variables {
		expected := 0
		if v.DataExpected != nil {
			expected = *v.DataExpected
		}
		vars = append(vars, th.NewVariableRecord(domain.NewStationKey(v.Zone, v.Station),
			v.Sensor, v.Variable, v.Frequency, v.DataCorrect, v.DataError, expected))
	}
	rolled := make(map[domain.StationKey]domain.Availability)
	for _, st := range th.RollupToStation(th.RollupToSensor(vars)) {
		rolled[st.Key] = st.Availability
	}

	for _, st := range wb.stations {
		got, ok := rolled[st.Key]
		if st.Source == domain.SourcePrevious {
			if ok {
				p.errorf("%s: marked as carried over but has variable rows", st.Key)
			}
			continue
		}
		if !ok {
			p.errorf("%s: no variable rows", st.Key)
			continue
		}
		if math.Abs(got.Pct-st.Availability.Pct) > rollupTolerance {
			p.errorf("%s: availability %.2f, variables roll up to %.2f", st.Key, st.Availability.Pct, got.Pct)
		}
	}
	return p
}

// ── Phase 6: raw extraction parity ──

func validateRawParity(wb workbook, rawPath string, excluded []string) *phase {
	p := &phase{name: "Raw extraction parity"}

	f, err := os.Open(rawPath)
	if err != nil {
		p.errorf("open raw csv: %v", err)
		return p
	}
	defer f.Close()

	raws, err := rawcsv.Read(f)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	inWorkbook := make(map[domain.StationKey]bool, len(wb.stations))
	for _, st := range wb.stations {
		inWorkbook[st.Key] = true
	}
	kept, missing := 0, make(map[domain.StationKey]bool)
	for _, r := range raws {
		if slices.ContainsFunc(excluded, func(v string) bool { return strings.EqualFold(v, strings.TrimSpace(r.Variable)) }) {
			continue
		}
		kept++
		k := domain.NewStationKey(r.Zone, r.Station)
		if !inWorkbook[k] && !missing[k] {
			missing[k] = true
			p.errorf("%s: in raw extraction but not in the workbook", k)
		}
	}
	if kept != len(wb.variables) {
		p.errorf("raw extraction has %d measured variable rows, workbook has %d", kept, len(wb.variables))
	}
	return p
}
