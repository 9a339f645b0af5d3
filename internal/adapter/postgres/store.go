// Package postgres persists station incident records per reporting period so
// the next consolidation can carry them over.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// IncidentStore keeps one row per station and reference date. It implements
// pipeline.CarryoverSource and pipeline.Loader.
type IncidentStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New connects to databaseURL and verifies the connection.
func New(ctx context.Context, databaseURL string, logger *slog.Logger) (*IncidentStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &IncidentStore{pool: pool, logger: logger}, nil
}

func (s *IncidentStore) Close() {
	s.pool.Close()
}

// CheckReadiness pings the database.
func (s *IncidentStore) CheckReadiness(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the schema if it doesn't exist.
func (s *IncidentStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS station_incidents (
		zone               TEXT NOT NULL,
		station            TEXT NOT NULL,
		reference_date     DATE NOT NULL,
		availability_pct   DOUBLE PRECISION NOT NULL,
		bucket             TEXT NOT NULL,
		incident_state     TEXT NOT NULL,
		incident_start     DATE,
		comment            TEXT NOT NULL DEFAULT '',
		closure_candidate  BOOLEAN NOT NULL DEFAULT FALSE,
		pending_start_date BOOLEAN NOT NULL DEFAULT FALSE,
		priority           TEXT NOT NULL,
		priority_reason    TEXT NOT NULL DEFAULT '',
		source             TEXT NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (zone, station, reference_date)
	);

	CREATE INDEX IF NOT EXISTS idx_station_incidents_reference_date
		ON station_incidents (reference_date);
	`)
	if err != nil {
		return fmt.Errorf("migrate station_incidents: %w", err)
	}
	return nil
}

const upsertIncident = `INSERT INTO station_incidents (
	zone, station, reference_date, availability_pct, bucket, incident_state, incident_start,
	comment, closure_candidate, pending_start_date, priority, priority_reason, source, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())
ON CONFLICT (zone, station, reference_date) DO UPDATE
SET availability_pct = EXCLUDED.availability_pct,
    bucket = EXCLUDED.bucket,
    incident_state = EXCLUDED.incident_state,
    incident_start = EXCLUDED.incident_start,
    comment = EXCLUDED.comment,
    closure_candidate = EXCLUDED.closure_candidate,
    pending_start_date = EXCLUDED.pending_start_date,
    priority = EXCLUDED.priority,
    priority_reason = EXCLUDED.priority_reason,
    source = EXCLUDED.source,
    updated_at = NOW()`

// Load upserts every station of report under its reference date.
func (s *IncidentStore) Load(ctx context.Context, report domain.Report) error {
	if len(report.Stations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, st := range report.Stations {
		batch.Queue(upsertIncident, upsertArgs(report.ReferenceDate, st)...)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for _, st := range report.Stations {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("upsert incident %s: %w", st.Key, err)
		}
	}
	s.logger.Info("incidents stored", "stations", len(report.Stations), "reference_date", domain.FormatDate(report.ReferenceDate))
	return nil
}

// selectPrevious reads the newest stored period strictly before $1. Every
// report carries all tracked stations, so one period is a full roster.
const selectPrevious = `
SELECT
	zone, station, availability_pct, bucket, incident_state, incident_start, comment,
	closure_candidate, pending_start_date, priority, priority_reason, source
FROM station_incidents
WHERE reference_date = (
	SELECT MAX(reference_date) FROM station_incidents WHERE reference_date < $1
)
ORDER BY zone, station`

// Previous returns the stations of the newest period stored before ref.
func (s *IncidentStore) Previous(ctx context.Context, ref time.Time) ([]domain.StationRecord, error) {
	rows, err := s.pool.Query(ctx, selectPrevious, domain.DateOf(ref))
	if err != nil {
		return nil, fmt.Errorf("query previous incidents: %w", err)
	}
	defer rows.Close()

	var out []domain.StationRecord
	for rows.Next() {
		var r row
		if err := rows.Scan(
			&r.Zone, &r.Station, &r.Pct, &r.Bucket, &r.State, &r.Start, &r.Comment,
			&r.ClosureCandidate, &r.Pending, &r.Priority, &r.Reason, &r.Source,
		); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, r.record())
	}
	return out, rows.Err()
}

// row mirrors a station_incidents row.
type row struct {
	Zone, Station    string
	Pct              float64
	Bucket           string
	State            string
	Start            *time.Time
	Comment          string
	ClosureCandidate bool
	Pending          bool
	Priority         string
	Reason           string
	Source           string
}

func upsertArgs(ref time.Time, st domain.StationRecord) []any {
	var start *time.Time
	if st.Incident.HasStartDate() {
		d := st.Incident.StartDate
		start = &d
	}
	return []any{
		st.Key.Zone, st.Key.Station, domain.DateOf(ref), st.Availability.Pct,
		st.Availability.Bucket.String(), st.Incident.State.String(), start, st.Incident.Comment,
		st.Incident.ClosureCandidate, st.Incident.PendingStartDate,
		string(st.Priority), st.PriorityReason, st.Source.String(),
	}
}

func (r row) record() domain.StationRecord {
	rec := domain.StationRecord{
		Key: domain.NewStationKey(r.Zone, r.Station),
		Availability: domain.Availability{
			Pct:    r.Pct,
			RawPct: r.Pct,
		},
		Incident: domain.Incident{
			State:            domain.ParseIncidentState(r.State),
			Comment:          r.Comment,
			ClosureCandidate: r.ClosureCandidate,
			PendingStartDate: r.Pending,
		},
		Priority:       domain.ParsePriority(r.Priority),
		PriorityReason: r.Reason,
	}
	if r.Start != nil {
		rec.Incident.StartDate = domain.DateOf(*r.Start)
	}
	_ = rec.Availability.Bucket.UnmarshalText([]byte(r.Bucket))
	_ = rec.Source.UnmarshalText([]byte(r.Source))
	return rec
}
