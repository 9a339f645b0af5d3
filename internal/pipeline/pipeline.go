package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
	"github.com/couchcryptid/station-availability-etl/internal/observability"
)

// ErrNoVariables is returned when the current period has no raw rows.
var ErrNoVariables = errors.New("no variable rows in the current period")

// VariableSource yields the raw variable rows of the current period.
type VariableSource interface {
	Variables(ctx context.Context) ([]domain.RawVariable, error)
}

// CarryoverSource yields the station records of the newest period that ends
// strictly before ref.
type CarryoverSource interface {
	Previous(ctx context.Context, ref time.Time) ([]domain.StationRecord, error)
}

// Loader persists or publishes a consolidated report.
type Loader interface {
	Load(ctx context.Context, report domain.Report) error
}

// Pipeline orchestrates extract, consolidate and load for one period at a
// time. Runs are serialized.
type Pipeline struct {
	consolidator *Consolidator
	loaders      []Loader
	logger       *slog.Logger
	metrics      *observability.Metrics

	mu     sync.Mutex
	ready  atomic.Bool
	latest atomic.Pointer[domain.Report]

	histMu  sync.RWMutex
	history []*domain.Report // ordered by reference date, one per date
}

// maxHistory bounds the reports kept in memory for carry-over.
const maxHistory = 26

// New creates a Pipeline. Loaders run in order for every report.
func New(c *Consolidator, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		consolidator: c,
		loaders:      loaders,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness returns nil once a report has been consolidated, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no report has been consolidated yet")
	}
	return nil
}

// LatestReport returns the most recent consolidated report.
func (p *Pipeline) LatestReport() (domain.Report, bool) {
	r := p.latest.Load()
	if r == nil {
		return domain.Report{}, false
	}
	return *r, true
}

// ReportBefore returns the newest kept report whose reference date is
// strictly before ref.
func (p *Pipeline) ReportBefore(ref time.Time) (domain.Report, bool) {
	ref = domain.DateOf(ref)
	p.histMu.RLock()
	defer p.histMu.RUnlock()
	for i := len(p.history) - 1; i >= 0; i-- {
		if p.history[i].ReferenceDate.Before(ref) {
			return *p.history[i], true
		}
	}
	return domain.Report{}, false
}

// remember keeps r in the history, replacing an earlier report for the same
// reference date.
func (p *Pipeline) remember(r *domain.Report) {
	p.histMu.Lock()
	defer p.histMu.Unlock()
	i, found := slices.BinarySearchFunc(p.history, r.ReferenceDate, func(h *domain.Report, t time.Time) int {
		return h.ReferenceDate.Compare(t)
	})
	if found {
		p.history[i] = r
		return
	}
	p.history = slices.Insert(p.history, i, r)
	if len(p.history) > maxHistory {
		p.history = slices.Delete(p.history, 0, len(p.history)-maxHistory)
	}
}

// Thresholds returns the thresholds applied by the pipeline.
func (p *Pipeline) Thresholds() domain.Thresholds {
	return p.consolidator.Thresholds()
}

// Run consolidates one period. prev may be nil when there is no previous
// period. A zero ref defaults to today. Re-running a reference date
// replaces its report. When a loader fails the report is
// still returned along with the error; loaders that already ran are not
// rolled back.
func (p *Pipeline) Run(ctx context.Context, src VariableSource, prev CarryoverSource, ref time.Time) (domain.Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()

	raws, err := src.Variables(ctx)
	if err != nil {
		p.metrics.ConsolidationErrors.WithLabelValues("extract").Inc()
		return domain.Report{}, fmt.Errorf("extract variables: %w", err)
	}
	if len(raws) == 0 {
		p.metrics.ConsolidationErrors.WithLabelValues("extract").Inc()
		return domain.Report{}, ErrNoVariables
	}

	ref = domain.DateOf(ref)
	if ref.IsZero() {
		ref = domain.Today()
	}

	var previous []domain.StationRecord
	if prev != nil {
		previous, err = prev.Previous(ctx, ref)
		if err != nil {
			p.metrics.ConsolidationErrors.WithLabelValues("carryover").Inc()
			return domain.Report{}, fmt.Errorf("load previous period: %w", err)
		}
	}

	report, stats := p.consolidator.Consolidate(Period{
		ReferenceDate: ref,
		Variables:     raws,
		Previous:      previous,
	})
	p.logger.Info("period consolidated",
		"reference_date", domain.FormatDate(report.ReferenceDate),
		"variables", len(report.Variables),
		"stations", len(report.Stations),
		"previous_stations", len(previous),
		"excluded_variables", stats.Excluded,
		"hidden_problems", len(report.Hidden),
		"configuration_anomalies", len(report.Anomalies),
	)
	for field, n := range stats.Defaulted {
		p.metrics.RowsDefaulted.WithLabelValues(field).Add(float64(n))
		p.logger.Warn("input values defaulted", "field", field, "rows", n)
	}

	for _, l := range p.loaders {
		if err := l.Load(ctx, report); err != nil {
			p.metrics.ConsolidationErrors.WithLabelValues("load").Inc()
			p.logger.Error("load report failed", "loader", fmt.Sprintf("%T", l), "error", err)
			return report, fmt.Errorf("load report: %w", err)
		}
	}

	p.observe(report)
	p.metrics.ConsolidationDuration.Observe(time.Since(start).Seconds())
	p.latest.Store(&report)
	p.remember(&report)
	p.ready.Store(true)
	return report, nil
}

func (p *Pipeline) observe(r domain.Report) {
	m := p.metrics
	m.ReportsProcessed.Inc()
	m.LastReportTimestamp.Set(float64(r.ReferenceDate.Unix()))
	m.Stations.Set(float64(r.Summary.Stations))
	m.NetworkAvailability.Set(r.Summary.MeanPct)
	m.ConfigurationAnomalies.Set(float64(len(r.Anomalies)))
	m.PendingStartDates.Set(float64(r.Summary.PendingDates))

	for _, pr := range domain.Priorities {
		m.StationsByPriority.WithLabelValues(string(pr)).Set(float64(r.Summary.ByPriority[pr]))
	}
	for s := domain.IncidentNone; s <= domain.IncidentDormant; s++ {
		m.StationsByIncidentState.WithLabelValues(s.String()).Set(float64(r.Summary.ByIncidentState[s]))
	}

	levels := map[string]int{domain.LevelSensor: 0, domain.LevelVariable: 0}
	for _, h := range r.Hidden {
		levels[h.Level]++
	}
	for level, n := range levels {
		m.HiddenProblems.WithLabelValues(level).Set(float64(n))
	}
}
