package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// WriteReport renders report as a workbook with the six report sheets.
func WriteReport(w io.Writer, report domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	tables := []struct {
		name string
		rows [][]any
	}{
		{SheetStations, stationRows(report.Stations)},
		{SheetSensors, sensorRows(report.Sensors)},
		{SheetVariables, variableRows(report.Variables)},
		{SheetHidden, hiddenRows(report.Hidden)},
		{SheetAnomalies, anomalyRows(report.Anomalies)},
		{SheetSummary, summaryRows(report)},
	}

	for _, t := range tables {
		if _, err := f.NewSheet(t.name); err != nil {
			return fmt.Errorf("create sheet %q: %w", t.name, err)
		}
		for r, row := range t.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(t.name, cell, &row); err != nil {
				return fmt.Errorf("write sheet %q row %d: %w", t.name, r+1, err)
			}
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(SheetStations); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func stationRows(stations []domain.StationRecord) [][]any {
	rows := [][]any{{
		"DZ", "Estacion", "disponibilidad", "clasificacion", "disp_anterior", "var_disp_pp",
		"estado_inci", "f_inci", "dias", "Comentario", "prioridad", "motivo_prioridad",
		"candidata_clausura", "fecha_pendiente", "fuente",
	}}
	for _, s := range stations {
		rows = append(rows, []any{
			s.Key.Zone, s.Key.Station, s.Availability.Pct, s.Availability.Bucket.Label(),
			optFloat(s.PreviousPct), optFloat(s.Variation()),
			s.Incident.State.Label(), domain.FormatDate(s.Incident.StartDate), optInt(s.DaysElapsed),
			s.Incident.Comment, string(s.Priority), s.PriorityReason,
			yesNo(s.Incident.ClosureCandidate), yesNo(s.Incident.PendingStartDate), s.Source.String(),
		})
	}
	return rows
}

func sensorRows(sensors []domain.SensorRecord) [][]any {
	rows := [][]any{{"DZ", "Estacion", "Sensor", "disponibilidad", "disponibilidad_bruta", "clasificacion"}}
	for _, s := range sensors {
		rows = append(rows, []any{
			s.Key.Zone, s.Key.Station, s.Sensor,
			s.Availability.Pct, s.Availability.RawPct, s.Availability.Bucket.Label(),
		})
	}
	return rows
}

func variableRows(vars []domain.VariableRecord) [][]any {
	rows := [][]any{{
		"DZ", "Estacion", "Sensor", "Variable", "Frecuencia",
		"Datos_flag_C", "Datos_flag_M", "Datos_esperados",
		"disponibilidad", "clasificacion", "perdida_pct", "error_pct",
	}}
	for _, v := range vars {
		loss := v.Loss()
		rows = append(rows, []any{
			v.Key.Zone, v.Key.Station, v.Sensor, v.Variable, v.Frequency,
			v.DataCorrect, v.DataError, v.DataExpected,
			v.Availability.Pct, v.Availability.Bucket.Label(), loss.LossPct, loss.ErrorPct,
		})
	}
	return rows
}

func hiddenRows(hidden []domain.HiddenProblem) [][]any {
	rows := [][]any{{
		"DZ", "Estacion", "Sensor", "Frecuencia", "Nivel", "Elemento",
		"disp_referencia", "disp_elemento", "brecha", "significativo",
	}}
	for _, h := range hidden {
		rows = append(rows, []any{
			h.Key.Zone, h.Key.Station, h.Sensor, h.Frequency, h.Level, h.Name,
			h.ReferencePct, h.ItemPct, h.Gap, yesNo(h.Significant),
		})
	}
	return rows
}

func anomalyRows(anomalies []domain.ConfigAnomaly) [][]any {
	rows := [][]any{{"DZ", "Estacion", "Sensor", "Frecuencia", "Nivel", "Elemento", "disponibilidad", "exceso"}}
	for _, a := range anomalies {
		rows = append(rows, []any{
			a.Key.Zone, a.Key.Station, a.Sensor, a.Frequency, a.Level, a.Name, a.ItemPct, a.Excess,
		})
	}
	return rows
}

func summaryRows(r domain.Report) [][]any {
	s := r.Summary
	rows := [][]any{
		{"Indicador", "Valor"},
		{"Fecha de referencia", domain.FormatDate(r.ReferenceDate)},
		{"Inicio del período", domain.FormatDate(r.PeriodStart)},
		{"Estaciones", s.Stations},
		{"Disponibilidad media (%)", s.MeanPct},
		{"Estaciones críticas", s.Critical},
		{"Estaciones sin datos", s.NoData},
		{"Estaciones normales (%)", s.HealthyPct},
		{"Zonas afectadas", s.AffectedZones},
		{"Anomalías de configuración", s.Anomalies},
		{"Fechas de inicio pendientes", s.PendingDates},
	}
	for _, p := range domain.Priorities {
		rows = append(rows, []any{"Prioridad " + string(p), s.ByPriority[p]})
	}

	rows = append(rows, []any{}, []any{
		"DZ", "estaciones", "disp_media", "pct_normal", "sin_datos",
		domain.IncidentNew.Label(), domain.IncidentRecurring.Label(),
		domain.IncidentResolved.Label(), domain.IncidentDormant.Label(),
	})
	for _, z := range r.Zones {
		rows = append(rows, []any{
			z.Zone, z.Stations, z.MeanPct, z.HealthyPct, z.NoData,
			z.ByIncidentState[domain.IncidentNew], z.ByIncidentState[domain.IncidentRecurring],
			z.ByIncidentState[domain.IncidentResolved], z.ByIncidentState[domain.IncidentDormant],
		})
	}
	return rows
}

func optFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func optInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func yesNo(b bool) string {
	if b {
		return "SI"
	}
	return "NO"
}
