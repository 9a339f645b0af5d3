package rediscache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

func TestEncodeDecode(t *testing.T) {
	ref := time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
	prev := 71.5
	st := domain.StationRecord{
		Key:          domain.NewStationKey("7", "JULI"),
		Availability: domain.DefaultThresholds().NewAvailability(42.25),
		Incident: domain.Incident{
			State:     domain.IncidentRecurring,
			StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			Comment:   "panel solar roto",
		},
		Priority:       domain.PriorityMedium,
		PriorityReason: "Recurrente (64 días) - Requiere seguimiento continuo",
		PreviousPct:    &prev,
		Source:         domain.SourceBoth,
	}

	fields := make(map[string]string)
	for k, v := range encode(domain.Report{ReferenceDate: ref}, st) {
		fields[k] = v.(string)
	}
	assert.Equal(t, "04/11/2025", fields["reference_date"])

	got := decode(fields)

	assert.Equal(t, st.Key, got.Key)
	assert.Equal(t, st.Incident, got.Incident)
	assert.InDelta(t, 42.25, got.Availability.Pct, 0)
	assert.Equal(t, domain.BucketShortage, got.Availability.Bucket)
	assert.Equal(t, st.Priority, got.Priority)
	assert.Equal(t, st.PriorityReason, got.PriorityReason)
	assert.Equal(t, domain.SourceBoth, got.Source)
	assert.Nil(t, got.PreviousPct)
}

func TestDecode_MalformedFieldsDegrade(t *testing.T) {
	got := decode(map[string]string{
		"zone":              "2",
		"station":           "X",
		"incident_state":    "???",
		"incident_start":    "ayer",
		"availability_pct":  "n/a",
		"closure_candidate": "maybe",
	})

	assert.Equal(t, domain.IncidentNone, got.Incident.State)
	assert.False(t, got.Incident.HasStartDate())
	assert.Zero(t, got.Availability.Pct)
	assert.False(t, got.Incident.ClosureCandidate)
	assert.Equal(t, domain.PriorityNone, got.Priority)
}

func TestStationKey(t *testing.T) {
	k := domain.NewStationKey("3", "SAN JUAN:NORTE")
	period := periodID(time.Date(2025, 11, 4, 15, 0, 0, 0, time.UTC))
	key := stationKey(period, k)
	assert.Equal(t, "incident:2025-11-04:3:SAN JUAN:NORTE", key)

	gotPeriod, got, ok := splitKey(key)
	require.True(t, ok)
	assert.Equal(t, "2025-11-04", gotPeriod)
	assert.Equal(t, k, got)

	_, _, ok = splitKey("hb:1")
	assert.False(t, ok)
}

func TestPeriodScore_OrdersByDay(t *testing.T) {
	a := periodScore(time.Date(2025, 10, 28, 23, 0, 0, 0, time.UTC))
	b := periodScore(time.Date(2025, 11, 4, 1, 0, 0, 0, time.UTC))

	assert.Less(t, a, b)
	assert.Equal(t, periodScore(time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)), b)
}
