package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const (
	pctNormal   = 95.0
	pctCritical = 40.0
	pctSilent   = 0.0
)

func TestReconcile_Transitions(t *testing.T) {
	th := DefaultThresholds()
	ref := date(2025, 11, 4)

	tests := []struct {
		name      string
		prev      *Incident
		pct       float64
		wantState IncidentState
		wantStart time.Time
	}{
		{"absent ok", nil, pctNormal, IncidentNone, time.Time{}},
		{"absent critical", nil, pctCritical, IncidentNew, ref},
		{"none critical", &Incident{State: IncidentNone}, 15, IncidentNew, ref},
		{"new within tolerance stays new", &Incident{State: IncidentNew, StartDate: ref.AddDate(0, 0, -4)}, pctCritical, IncidentNew, ref.AddDate(0, 0, -4)},
		{"new past tolerance recurs", &Incident{State: IncidentNew, StartDate: ref.AddDate(0, 0, -6)}, pctCritical, IncidentRecurring, ref.AddDate(0, 0, -6)},
		{"new recovered in tolerance", &Incident{State: IncidentNew, StartDate: ref.AddDate(0, 0, -5)}, pctNormal, IncidentResolved, ref.AddDate(0, 0, -5)},
		{"new recovered late", &Incident{State: IncidentNew, StartDate: ref.AddDate(0, 0, -20)}, pctNormal, IncidentNone, time.Time{}},
		{"new without date critical", &Incident{State: IncidentNew}, pctCritical, IncidentRecurring, time.Time{}},
		{"new without date ok", &Incident{State: IncidentNew}, pctNormal, IncidentResolved, time.Time{}},
		{"recurring critical", &Incident{State: IncidentRecurring, StartDate: ref.AddDate(0, 0, -40)}, pctCritical, IncidentRecurring, ref.AddDate(0, 0, -40)},
		{"recurring without date", &Incident{State: IncidentRecurring}, pctCritical, IncidentRecurring, time.Time{}},
		{"recurring without date ok", &Incident{State: IncidentRecurring}, pctNormal, IncidentResolved, time.Time{}},
		{"recurring ok", &Incident{State: IncidentRecurring, StartDate: ref.AddDate(0, 0, -40)}, pctNormal, IncidentResolved, ref.AddDate(0, 0, -40)},
		{"resolved fails again", &Incident{State: IncidentResolved, StartDate: ref.AddDate(0, 0, -3)}, pctCritical, IncidentNew, ref},
		{"resolved monitoring", &Incident{State: IncidentResolved, StartDate: ref.AddDate(0, 0, -3)}, pctNormal, IncidentResolved, ref.AddDate(0, 0, -3)},
		{"resolved closes", &Incident{State: IncidentResolved, StartDate: ref.AddDate(0, 0, -10)}, pctNormal, IncidentNone, time.Time{}},
		{"resolved without date closes", &Incident{State: IncidentResolved}, pctNormal, IncidentNone, time.Time{}},
		{"dormant wakes partially", &Incident{State: IncidentDormant, StartDate: ref.AddDate(0, 0, -200)}, pctCritical, IncidentRecurring, ref.AddDate(0, 0, -200)},
		{"dormant recovers", &Incident{State: IncidentDormant, StartDate: ref.AddDate(0, 0, -200)}, pctNormal, IncidentResolved, ref.AddDate(0, 0, -200)},
		{"dormant without date stays dormant", &Incident{State: IncidentDormant}, pctSilent, IncidentDormant, time.Time{}},
		{"dormant without date recovers", &Incident{State: IncidentDormant}, pctNormal, IncidentResolved, time.Time{}},
		{"excess counts as ok", &Incident{State: IncidentRecurring, StartDate: ref.AddDate(0, 0, -40)}, 150, IncidentResolved, ref.AddDate(0, 0, -40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := th.Reconcile(tt.prev, tt.pct, ref)
			assert.Equal(t, tt.wantState, got.State)
			assert.True(t, tt.wantStart.Equal(got.StartDate), "start: want %v, got %v", tt.wantStart, got.StartDate)
		})
	}
}

func TestReconcile_ToleranceBoundary(t *testing.T) {
	th := DefaultThresholds()
	d := date(2025, 10, 1)
	prev := &Incident{State: IncidentNew, StartDate: d}

	assert.Equal(t, IncidentResolved, th.Reconcile(prev, pctNormal, d.AddDate(0, 0, 5)).State)
	assert.Equal(t, IncidentRecurring, th.Reconcile(prev, pctCritical, d.AddDate(0, 0, 6)).State)
	assert.Equal(t, IncidentNew, th.Reconcile(prev, pctCritical, d.AddDate(0, 0, 4)).State)
	assert.Equal(t, IncidentNew, th.Reconcile(prev, pctCritical, d.AddDate(0, 0, 5)).State)
}

func TestReconcile_NoIncidentIsIdempotent(t *testing.T) {
	th := DefaultThresholds()
	inc := Incident{State: IncidentNone, Comment: "revisado"}
	day := date(2024, 1, 1)
	for i := 0; i < 100; i++ {
		inc = th.Reconcile(&inc, pctNormal, day.AddDate(0, 0, 7*i))
		require.Equal(t, IncidentNone, inc.State)
		require.False(t, inc.HasStartDate())
	}
	assert.Equal(t, "revisado", inc.Comment)
}

func TestReconcile_DormancyOverride(t *testing.T) {
	th := DefaultThresholds()
	ref := date(2025, 11, 4)

	for _, state := range []IncidentState{IncidentNew, IncidentRecurring, IncidentDormant} {
		t.Run(state.String(), func(t *testing.T) {
			prev := &Incident{State: state, StartDate: ref.AddDate(0, 0, -90)}
			got := th.Reconcile(prev, 0.3, ref)
			assert.Equal(t, IncidentDormant, got.State)
			assert.False(t, got.ClosureCandidate)
		})
	}

	t.Run("below dormancy period", func(t *testing.T) {
		prev := &Incident{State: IncidentRecurring, StartDate: ref.AddDate(0, 0, -89)}
		assert.Equal(t, IncidentRecurring, th.Reconcile(prev, 0, ref).State)
	})
	t.Run("availability above dormancy level", func(t *testing.T) {
		prev := &Incident{State: IncidentRecurring, StartDate: ref.AddDate(0, 0, -200)}
		assert.Equal(t, IncidentRecurring, th.Reconcile(prev, 0.6, ref).State)
	})
}

func TestReconcile_ChronicDormancy(t *testing.T) {
	th := DefaultThresholds()
	ref := date(2025, 11, 4)
	prev := &Incident{State: IncidentDormant, StartDate: date(2023, 1, 1), Comment: "sin energía"}

	got := th.Reconcile(prev, 0, ref)

	assert.Equal(t, IncidentDormant, got.State)
	assert.True(t, got.ClosureCandidate)
	assert.Equal(t, "sin energía", got.Comment)
	assert.Equal(t, date(2023, 1, 1), got.StartDate)
}

func TestReconcile_FreshFailure(t *testing.T) {
	th := DefaultThresholds()
	ref := date(2025, 11, 4)

	got := th.Reconcile(nil, 15, ref)

	assert.Equal(t, IncidentNew, got.State)
	assert.Equal(t, ref, got.StartDate)
	assert.Equal(t, PriorityHigh, th.ClassifyPriority(got.State, DaysSince(got.StartDate, ref), 15))
}

func TestReconcile_NormalWithoutDateIsNone(t *testing.T) {
	th := DefaultThresholds()
	ref := date(2025, 11, 4)
	for _, state := range []IncidentState{IncidentNone, IncidentResolved} {
		got := th.Reconcile(&Incident{State: state}, pctNormal, ref)
		assert.Equal(t, IncidentNone, got.State, state.String())
	}
}

func TestReconcileStation(t *testing.T) {
	th := DefaultThresholds()
	ref := date(2025, 11, 4)
	key := NewStationKey("3", "HUANCAYO")
	prev := &StationRecord{
		Key:          key,
		Availability: th.NewAvailability(40),
		Incident:     Incident{State: IncidentRecurring, StartDate: date(2025, 9, 1), Comment: "cambio de datalogger"},
	}

	t.Run("previous only carries incident", func(t *testing.T) {
		got := th.ReconcileStation(prev, nil, ref)

		assert.Equal(t, SourcePrevious, got.Source)
		assert.Equal(t, prev.Incident, got.Incident)
		assert.Zero(t, got.Availability.Pct)
		assert.Equal(t, BucketNotReceived, got.Availability.Bucket)
		require.NotNil(t, got.PreviousPct)
		assert.Equal(t, 40.0, *got.PreviousPct)
	})

	t.Run("current only critical is pending", func(t *testing.T) {
		curr := &StationRecord{Key: key, Availability: th.NewAvailability(20)}
		got := th.ReconcileStation(nil, curr, ref)

		assert.Equal(t, SourceCurrent, got.Source)
		assert.Equal(t, IncidentNew, got.Incident.State)
		assert.False(t, got.Incident.HasStartDate())
		assert.True(t, got.Incident.PendingStartDate)
		assert.Nil(t, got.PreviousPct)
	})

	t.Run("current only healthy", func(t *testing.T) {
		curr := &StationRecord{Key: key, Availability: th.NewAvailability(90)}
		got := th.ReconcileStation(nil, curr, ref)

		assert.Equal(t, IncidentNone, got.Incident.State)
		assert.False(t, got.Incident.PendingStartDate)
	})

	t.Run("both reconciles", func(t *testing.T) {
		curr := &StationRecord{Key: key, Availability: th.NewAvailability(85)}
		got := th.ReconcileStation(prev, curr, ref)

		assert.Equal(t, SourceBoth, got.Source)
		assert.Equal(t, IncidentResolved, got.Incident.State)
		assert.Equal(t, "cambio de datalogger", got.Incident.Comment)
		require.NotNil(t, got.Variation())
		assert.Equal(t, 45.0, *got.Variation())
	})

	t.Run("pending flag survives until dated", func(t *testing.T) {
		pending := &StationRecord{Key: key, Incident: Incident{State: IncidentNew, PendingStartDate: true}}
		curr := &StationRecord{Key: key, Availability: th.NewAvailability(10)}
		got := th.ReconcileStation(pending, curr, ref)

		assert.Equal(t, IncidentRecurring, got.Incident.State)
		assert.True(t, got.Incident.PendingStartDate)
	})
}
