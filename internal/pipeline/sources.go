package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// StaticVariables serves rows already held in memory, such as a decoded
// request body.
type StaticVariables []domain.RawVariable

func (s StaticVariables) Variables(_ context.Context) ([]domain.RawVariable, error) {
	return s, nil
}

// StaticCarryover serves previous-period records already held in memory.
type StaticCarryover []domain.StationRecord

func (s StaticCarryover) Previous(_ context.Context, _ time.Time) ([]domain.StationRecord, error) {
	return s, nil
}

// MemoryCarryover uses the pipeline's own reports as the previous period:
// the newest one whose reference date is strictly before the period being
// consolidated. It yields nothing when no such report is kept.
type MemoryCarryover struct {
	P *Pipeline
}

func (m MemoryCarryover) Previous(_ context.Context, ref time.Time) ([]domain.StationRecord, error) {
	r, ok := m.P.ReportBefore(ref)
	if !ok {
		return nil, nil
	}
	return r.Stations, nil
}
