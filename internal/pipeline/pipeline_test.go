package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
	"github.com/couchcryptid/station-availability-etl/internal/observability"
	"github.com/couchcryptid/station-availability-etl/internal/pipeline"
)

// --- mocks ---

type mockSource struct {
	rows []domain.RawVariable
	err  error
}

func (m *mockSource) Variables(_ context.Context) ([]domain.RawVariable, error) {
	return m.rows, m.err
}

type mockCarryover struct {
	records []domain.StationRecord
	err     error
	gotRef  time.Time
}

func (m *mockCarryover) Previous(_ context.Context, ref time.Time) ([]domain.StationRecord, error) {
	m.gotRef = ref
	return m.records, m.err
}

type mockLoader struct {
	loaded []domain.Report
	err    error
}

func (m *mockLoader) Load(_ context.Context, r domain.Report) error {
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, r)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(loaders ...pipeline.Loader) (*pipeline.Pipeline, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	c := pipeline.NewConsolidator(domain.DefaultThresholds(), 7, domain.DefaultExcludedVariables, discardLogger())
	return pipeline.New(c, loaders, discardLogger(), metrics), metrics
}

func expected(n int) *int { return &n }

var refDate = time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	src := &mockSource{rows: []domain.RawVariable{
		{Zone: "1", Station: "A", Sensor: "TERMO", Variable: "TEMP", Frequency: "horario", DataCorrect: 168, DataExpected: expected(168)},
		{Zone: "1", Station: "B", Sensor: "TERMO", Variable: "TEMP", Frequency: "horario", DataCorrect: 20, DataExpected: expected(168)},
	}}
	ldr := &mockLoader{}
	p, metrics := newTestPipeline(ldr)

	require.Error(t, p.CheckReadiness(context.Background()))

	report, err := p.Run(context.Background(), src, nil, refDate)
	require.NoError(t, err)

	require.Len(t, ldr.loaded, 1)
	assert.Len(t, report.Stations, 2)
	assert.NoError(t, p.CheckReadiness(context.Background()))

	latest, ok := p.LatestReport()
	require.True(t, ok)
	assert.Equal(t, refDate, latest.ReferenceDate)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsProcessed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Stations), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StationsByPriority.WithLabelValues("ALTA")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.StationsByIncidentState.WithLabelValues("new")), 0)
}

func TestPipeline_Run_NoVariables(t *testing.T) {
	p, metrics := newTestPipeline()

	_, err := p.Run(context.Background(), &mockSource{}, nil, refDate)

	require.ErrorIs(t, err, pipeline.ErrNoVariables)
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ConsolidationErrors.WithLabelValues("extract")), 0)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	p, _ := newTestPipeline()
	boom := errors.New("disk unplugged")

	_, err := p.Run(context.Background(), &mockSource{err: boom}, nil, refDate)

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "extract variables")
}

func TestPipeline_Run_CarryoverError(t *testing.T) {
	p, metrics := newTestPipeline()
	src := &mockSource{rows: []domain.RawVariable{{Zone: "1", Station: "A", Sensor: "S", Variable: "V", Frequency: "diario"}}}

	_, err := p.Run(context.Background(), src, &mockCarryover{err: errors.New("db down")}, refDate)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load previous period")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ConsolidationErrors.WithLabelValues("carryover")), 0)
}

func TestPipeline_Run_LoaderErrorStopsFanOut(t *testing.T) {
	first := &mockLoader{err: errors.New("kafka unavailable")}
	second := &mockLoader{}
	p, metrics := newTestPipeline(first, second)
	src := &mockSource{rows: []domain.RawVariable{{Zone: "1", Station: "A", Sensor: "S", Variable: "V", Frequency: "diario", DataCorrect: 7}}}

	report, err := p.Run(context.Background(), src, nil, refDate)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka unavailable")
	assert.Len(t, report.Stations, 1, "report is returned even when a loader fails")
	assert.Empty(t, second.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ConsolidationErrors.WithLabelValues("load")), 0)
}

func TestPipeline_Run_CarriesIncidentAcrossPeriods(t *testing.T) {
	p, _ := newTestPipeline()
	failing := &mockSource{rows: []domain.RawVariable{
		{Zone: "2", Station: "C", Sensor: "PLUVIO", Variable: "PP", Frequency: "horario", DataCorrect: 10, DataExpected: expected(168)},
	}}

	first, err := p.Run(context.Background(), failing, nil, refDate)
	require.NoError(t, err)
	require.Equal(t, domain.IncidentNew, first.Stations[0].Incident.State)
	assert.True(t, first.Stations[0].Incident.PendingStartDate)

	second, err := p.Run(context.Background(), failing, pipeline.MemoryCarryover{P: p}, refDate.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentRecurring, second.Stations[0].Incident.State)
	assert.Equal(t, domain.SourceBoth, second.Stations[0].Source)
}

func TestPipeline_Run_CountsDefaultedRows(t *testing.T) {
	p, metrics := newTestPipeline()
	src := pipeline.StaticVariables{
		{Zone: "1", Station: "A", Sensor: "S", Variable: "V", Frequency: "horario", DataCorrect: 168, Defaulted: []string{"data_error"}},
	}

	_, err := p.Run(context.Background(), src, pipeline.StaticCarryover(nil), refDate)
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RowsDefaulted.WithLabelValues("data_expected")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RowsDefaulted.WithLabelValues("data_error")), 0)
}

func TestPipeline_Run_PassesReferenceDateToCarryover(t *testing.T) {
	p, _ := newTestPipeline()
	src := &mockSource{rows: []domain.RawVariable{{Zone: "1", Station: "A", Sensor: "S", Variable: "V", Frequency: "diario", DataCorrect: 7}}}
	prev := &mockCarryover{}

	_, err := p.Run(context.Background(), src, prev, refDate.Add(15*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, refDate, prev.gotRef)
}

func TestPipeline_Run_MemoryCarryoverUsesStrictlyEarlierPeriod(t *testing.T) {
	p, _ := newTestPipeline()
	carryover := pipeline.MemoryCarryover{P: p}
	station := func(correct int) pipeline.StaticVariables {
		return pipeline.StaticVariables{
			{Zone: "4", Station: "D", Sensor: "PLUVIO", Variable: "PP", Frequency: "horario", DataCorrect: correct, DataExpected: expected(168)},
		}
	}

	first, err := p.Run(context.Background(), station(10), carryover, refDate)
	require.NoError(t, err)
	require.Equal(t, domain.IncidentNew, first.Stations[0].Incident.State)

	// Correcting the same period must not reconcile against its own output.
	corrected, err := p.Run(context.Background(), station(168), carryover, refDate)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentNone, corrected.Stations[0].Incident.State)
	assert.Equal(t, domain.SourceCurrent, corrected.Stations[0].Source)
	assert.Nil(t, corrected.Stations[0].PreviousPct)

	// An older period run afterwards sees no earlier report.
	older, err := p.Run(context.Background(), station(10), carryover, refDate.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentNew, older.Stations[0].Incident.State)
	assert.True(t, older.Stations[0].Incident.PendingStartDate)
	assert.Equal(t, domain.SourceCurrent, older.Stations[0].Source)

	// The next period reconciles against the corrected report.
	next, err := p.Run(context.Background(), station(168), carryover, refDate.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, domain.SourceBoth, next.Stations[0].Source)
	require.NotNil(t, next.Stations[0].PreviousPct)
	assert.InDelta(t, 100.0, *next.Stations[0].PreviousPct, 0.001)
	assert.Equal(t, domain.IncidentNone, next.Stations[0].Incident.State)
}

func TestPipeline_ReportBefore(t *testing.T) {
	p, _ := newTestPipeline()
	src := pipeline.StaticVariables{{Zone: "1", Station: "A", Sensor: "S", Variable: "V", Frequency: "diario", DataCorrect: 7}}
	for _, ref := range []time.Time{refDate, refDate.AddDate(0, 0, -14), refDate.AddDate(0, 0, -7)} {
		_, err := p.Run(context.Background(), src, nil, ref)
		require.NoError(t, err)
	}

	_, ok := p.ReportBefore(refDate.AddDate(0, 0, -14))
	assert.False(t, ok)

	got, ok := p.ReportBefore(refDate)
	require.True(t, ok)
	assert.Equal(t, refDate.AddDate(0, 0, -7), got.ReferenceDate)

	got, ok = p.ReportBefore(refDate.AddDate(0, 0, 1))
	require.True(t, ok)
	assert.Equal(t, refDate, got.ReferenceDate)
}
