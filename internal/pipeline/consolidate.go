package pipeline

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// Period is the input of one consolidation: the raw rows of the current
// reporting period and the station records of the previous one.
type Period struct {
	ReferenceDate time.Time
	PeriodStart   time.Time
	Variables     []domain.RawVariable
	Previous      []domain.StationRecord
}

// Stats reports data-quality facts gathered while consolidating.
type Stats struct {
	Excluded  int
	Defaulted map[string]int
}

// Consolidator runs the availability, reconciliation, priority and
// aggregation stages over one period. It holds no state between calls.
type Consolidator struct {
	th         domain.Thresholds
	periodDays int
	excluded   map[string]bool
	logger     *slog.Logger
}

// NewConsolidator creates a Consolidator. excluded lists variable names that
// never count toward availability.
func NewConsolidator(th domain.Thresholds, periodDays int, excluded []string, logger *slog.Logger) *Consolidator {
	ex := make(map[string]bool, len(excluded))
	for _, v := range excluded {
		ex[strings.ToUpper(strings.TrimSpace(v))] = true
	}
	if periodDays <= 0 {
		periodDays = domain.DefaultPeriodDays
	}
	return &Consolidator{th: th, periodDays: periodDays, excluded: ex, logger: logger}
}

// Thresholds returns the thresholds the consolidator applies.
func (c *Consolidator) Thresholds() domain.Thresholds {
	return c.th
}

// Consolidate builds the report of one period. Every input station appears
// exactly once in the output; malformed values have already been degraded
// to defaults by the readers and are only counted here.
func (c *Consolidator) Consolidate(p Period) (domain.Report, Stats) {
	ref := domain.DateOf(p.ReferenceDate)
	if ref.IsZero() {
		ref = domain.Today()
	}
	start := domain.DateOf(p.PeriodStart)
	if start.IsZero() {
		start = ref.AddDate(0, 0, -c.periodDays)
	}

	vars, stats := c.variables(p.Variables)
	sensors := c.th.RollupToSensor(vars)
	stations := c.reconcile(c.th.RollupToStation(sensors), p.Previous, ref)

	hidden := c.th.DetectHiddenProblems(vars, sensors, stations)
	anomalies := c.th.DetectConfigurationAnomalies(vars, sensors)

	sortStations(stations)
	sortSensors(sensors)
	sortVariables(vars)

	return domain.Report{
		ReferenceDate: ref,
		PeriodStart:   start,
		GeneratedAt:   domain.Now(),
		Stations:      stations,
		Sensors:       sensors,
		Variables:     vars,
		Hidden:        hidden,
		Anomalies:     anomalies,
		Summary:       c.th.Summarize(stations, anomalies),
		Zones:         c.th.ZoneSummaries(stations),
	}, stats
}

func (c *Consolidator) variables(raws []domain.RawVariable) ([]domain.VariableRecord, Stats) {
	stats := Stats{Defaulted: make(map[string]int)}
	out := make([]domain.VariableRecord, 0, len(raws))
	for _, r := range raws {
		if c.excluded[strings.ToUpper(strings.TrimSpace(r.Variable))] {
			stats.Excluded++
			continue
		}
		for _, f := range r.Defaulted {
			stats.Defaulted[f]++
		}

		var expected int
		if r.DataExpected != nil {
			expected = *r.DataExpected
		} else {
			expected = domain.ExpectedCount(r.Frequency, c.periodDays)
			stats.Defaulted["data_expected"]++
		}

		out = append(out, c.th.NewVariableRecord(
			domain.NewStationKey(r.Zone, r.Station),
			strings.TrimSpace(r.Sensor),
			strings.TrimSpace(r.Variable),
			strings.TrimSpace(r.Frequency),
			r.DataCorrect, r.DataError, expected,
		))
	}
	return out, stats
}

// reconcile merges current rollups with the previous period. Stations only
// in the previous period follow the current ones, in their original order.
func (c *Consolidator) reconcile(current, previous []domain.StationRecord, ref time.Time) []domain.StationRecord {
	previous = slices.Clone(previous)
	prevByKey := make(map[domain.StationKey]*domain.StationRecord, len(previous))
	for i := range previous {
		k := domain.NewStationKey(previous[i].Key.Zone, previous[i].Key.Station)
		if _, dup := prevByKey[k]; dup {
			c.logger.Warn("duplicate station in previous period, keeping first", "zone", k.Zone, "station", k.Station)
			continue
		}
		previous[i].Key = k
		prevByKey[k] = &previous[i]
	}

	out := make([]domain.StationRecord, 0, len(current)+len(previous))
	seen := make(map[domain.StationKey]bool, len(current))
	for i := range current {
		curr := &current[i]
		seen[curr.Key] = true
		out = append(out, c.prioritize(c.th.ReconcileStation(prevByKey[curr.Key], curr, ref), ref))
	}
	for i := range previous {
		k := previous[i].Key
		if seen[k] || prevByKey[k] != &previous[i] {
			continue
		}
		out = append(out, c.prioritize(c.th.ReconcileStation(&previous[i], nil, ref), ref))
	}
	return out
}

func (c *Consolidator) prioritize(rec domain.StationRecord, ref time.Time) domain.StationRecord {
	rec = c.th.Prioritize(rec, ref)
	if rec.Incident.PendingStartDate {
		c.logger.Warn("incident start date pending manual annotation",
			"zone", rec.Key.Zone,
			"station", rec.Key.Station,
			"state", rec.Incident.State.String(),
		)
	}
	return rec
}

func sortStations(s []domain.StationRecord) {
	slices.SortStableFunc(s, func(a, b domain.StationRecord) int {
		return compareKeys(a.Key, b.Key)
	})
}

func sortSensors(s []domain.SensorRecord) {
	slices.SortStableFunc(s, func(a, b domain.SensorRecord) int {
		if c := compareKeys(a.Key, b.Key); c != 0 {
			return c
		}
		return cmp.Compare(a.Sensor, b.Sensor)
	})
}

func sortVariables(v []domain.VariableRecord) {
	slices.SortStableFunc(v, func(a, b domain.VariableRecord) int {
		if c := compareKeys(a.Key, b.Key); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Sensor, b.Sensor); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Variable, b.Variable); c != 0 {
			return c
		}
		return cmp.Compare(a.Frequency, b.Frequency)
	})
}

func compareKeys(a, b domain.StationKey) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}
