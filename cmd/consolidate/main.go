// Command consolidate runs one reporting period offline: it reads the raw
// extraction output, reconciles it against the previous period's workbook
// and writes the consolidated report workbook.
//
// Usage:
//
//	go run ./cmd/consolidate \
//	  -raw data/raw/disponibilidad_0411.csv \
//	  -previous reportes/reporte_disponibilidad_SGR_2110_2810.xlsx \
//	  -reference-date 04/11/2025 \
//	  -out reportes
//
// Thresholds and excluded variables come from the same environment
// variables as the service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/station-availability-etl/internal/adapter/rawcsv"
	"github.com/couchcryptid/station-availability-etl/internal/adapter/sheet"
	"github.com/couchcryptid/station-availability-etl/internal/config"
	"github.com/couchcryptid/station-availability-etl/internal/domain"
	"github.com/couchcryptid/station-availability-etl/internal/observability"
	"github.com/couchcryptid/station-availability-etl/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawPath := flag.String("raw", "", "raw extraction CSV for the current period")
	currentPath := flag.String("current", "", "workbook with a POR VARIABLE sheet for the current period")
	previousPath := flag.String("previous", "", "consolidated workbook of the previous period (optional)")
	refDate := flag.String("reference-date", "", "reference date DD/MM/YYYY (default: inferred from the input file name, else today)")
	outDir := flag.String("out", "", "output directory (default: REPORTS_DIR)")
	top := flag.Int("top", 10, "number of most critical stations to print")
	flag.Parse()

	if (*rawPath == "") == (*currentPath == "") {
		flag.Usage()
		return errors.New("exactly one of -raw or -current is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := sharedobs.NewLogger(cfg.LogLevel, "text")
	if *outDir == "" {
		*outDir = cfg.ReportsDir
	}

	var src pipeline.VariableSource = sheet.FileSource{Path: *currentPath}
	input := *currentPath
	if *rawPath != "" {
		src = rawcsv.FileSource{Path: *rawPath}
		input = *rawPath
	}

	ref, err := referenceDate(*refDate, input)
	if err != nil {
		return err
	}

	var prev pipeline.CarryoverSource
	if *previousPath != "" {
		prev = sheet.FileCarryover{Path: *previousPath, Thresholds: cfg.Thresholds}
	}

	consolidator := pipeline.NewConsolidator(cfg.Thresholds, cfg.PeriodDays, cfg.ExcludedVariables, logger)
	p := pipeline.New(consolidator, []pipeline.Loader{sheet.NewWriter(*outDir, logger)}, logger, observability.NewMetrics())

	report, err := p.Run(context.Background(), src, prev, ref)
	if err != nil {
		return err
	}

	printSummary(os.Stdout, report, *top)
	fmt.Printf("\nWrote %s\n", filepath.Join(*outDir, report.FileName()))
	return nil
}

// referenceDate resolves the period end: the flag when given, otherwise the
// end date encoded in a report-style input file name, otherwise today.
func referenceDate(flagValue, input string) (time.Time, error) {
	if flagValue != "" {
		d, ok := domain.ParseDate(flagValue)
		if !ok {
			return time.Time{}, fmt.Errorf("invalid -reference-date %q (want DD/MM/YYYY)", flagValue)
		}
		return d, nil
	}
	if _, end, err := domain.ParseReportFileName(filepath.Base(input), domain.Today()); err == nil {
		return end, nil
	}
	return domain.Today(), nil
}

func printSummary(w io.Writer, r domain.Report, top int) {
	s := r.Summary
	fmt.Fprintf(w, "=== Periodo %s - %s ===\n", domain.FormatDate(r.PeriodStart), domain.FormatDate(r.ReferenceDate))
	fmt.Fprintf(w, "  Estaciones:               %d\n", s.Stations)
	fmt.Fprintf(w, "  Disponibilidad promedio:  %.2f%%\n", s.MeanPct)
	fmt.Fprintf(w, "  Estaciones criticas:      %d\n", s.Critical)
	fmt.Fprintf(w, "  Sin datos:                %d\n", s.NoData)
	fmt.Fprintf(w, "  Zonas afectadas:          %d\n", s.AffectedZones)
	fmt.Fprintf(w, "  Anomalias de config.:     %d\n", s.Anomalies)
	fmt.Fprintf(w, "  Fechas pendientes:        %d\n", s.PendingDates)
	for _, pr := range domain.Priorities {
		fmt.Fprintf(w, "  Prioridad %-5s           %d\n", pr, s.ByPriority[pr])
	}

	critical := domain.TopCritical(r.Stations, top)
	if len(critical) == 0 {
		return
	}
	fmt.Fprintf(w, "\nEstaciones mas criticas:\n")
	for i, st := range critical {
		fmt.Fprintf(w, "  %2d. %-8s %-24s %6.2f%%  %-5s %s\n",
			i+1, st.Key.Zone, st.Key.Station, st.Availability.Pct, st.Priority, st.Incident.State.Label())
	}
}
