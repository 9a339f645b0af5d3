package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

func TestUpsertArgs_RoundTripsThroughRow(t *testing.T) {
	ref := time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
	st := domain.StationRecord{
		Key:          domain.NewStationKey("3", "HUANCAYO"),
		Availability: domain.DefaultThresholds().NewAvailability(0),
		Incident: domain.Incident{
			State:            domain.IncidentDormant,
			StartDate:        time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			Comment:          "sin energía",
			ClosureCandidate: true,
		},
		Priority:       domain.PriorityLow,
		PriorityReason: "Paralizada",
		Source:         domain.SourcePrevious,
	}

	args := upsertArgs(ref, st)
	require.Len(t, args, 13)
	assert.Equal(t, "dormant", args[5])
	assert.Equal(t, "anterior", args[12])

	start := args[6].(*time.Time)
	got := row{
		Zone: args[0].(string), Station: args[1].(string), Pct: args[3].(float64),
		Bucket: args[4].(string), State: args[5].(string), Start: start, Comment: args[7].(string),
		ClosureCandidate: args[8].(bool), Pending: args[9].(bool),
		Priority: args[10].(string), Reason: args[11].(string), Source: args[12].(string),
	}.record()

	assert.Equal(t, st.Key, got.Key)
	assert.Equal(t, st.Incident, got.Incident)
	assert.Equal(t, domain.BucketNotReceived, got.Availability.Bucket)
	assert.Equal(t, domain.PriorityLow, got.Priority)
	assert.Equal(t, domain.SourcePrevious, got.Source)
}

func TestUpsertArgs_NoStartDateIsNull(t *testing.T) {
	st := domain.StationRecord{
		Key:      domain.NewStationKey("1", "A"),
		Incident: domain.Incident{State: domain.IncidentNew, PendingStartDate: true},
	}

	args := upsertArgs(time.Now(), st)

	assert.Nil(t, args[6].(*time.Time))
	assert.Equal(t, true, args[9])
}
