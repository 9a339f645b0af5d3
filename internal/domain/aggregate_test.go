package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func variable(th Thresholds, zone, station, sensor, name string, correct, expected int) VariableRecord {
	return th.NewVariableRecord(NewStationKey(zone, station), sensor, name, "horario", correct, 0, expected)
}

func TestRollupToSensor(t *testing.T) {
	th := DefaultThresholds()
	vars := []VariableRecord{
		variable(th, "1", "A", "TERMO", "TEMP", 168, 168),
		variable(th, "1", "A", "PLUVIO", "PP", 84, 168),
		variable(th, "1", "A", "TERMO", "HUM", 336, 168),
		variable(th, "1", "B", "TERMO", "TEMP", 0, 168),
	}

	got := th.RollupToSensor(vars)

	require.Len(t, got, 3)
	assert.Equal(t, "TERMO", got[0].Sensor)
	assert.Equal(t, 100.0, got[0].Availability.Pct, "normalized mean")
	assert.Equal(t, 150.0, got[0].Availability.RawPct, "raw mean")
	assert.Equal(t, BucketNormal, got[0].Availability.Bucket)
	assert.Equal(t, "PLUVIO", got[1].Sensor)
	assert.Equal(t, 50.0, got[1].Availability.Pct)
	assert.Equal(t, NewStationKey("1", "B"), got[2].Key)
	assert.Equal(t, BucketNotReceived, got[2].Availability.Bucket)
}

func TestRollupToStation(t *testing.T) {
	th := DefaultThresholds()
	sensors := []SensorRecord{
		{Key: NewStationKey("2", "X"), Sensor: "S1", Availability: Availability{Pct: 100, RawPct: 120, Bucket: BucketNormal}},
		{Key: NewStationKey("2", "X"), Sensor: "S2", Availability: Availability{Pct: 33.34, RawPct: 33.34, Bucket: BucketShortage}},
		{Key: NewStationKey("1", "Y"), Sensor: "S1", Availability: Availability{Pct: 90, RawPct: 90, Bucket: BucketNormal}},
	}

	got := th.RollupToStation(sensors)

	require.Len(t, got, 2)
	assert.Equal(t, NewStationKey("2", "X"), got[0].Key)
	assert.Equal(t, 66.67, got[0].Availability.Pct)
	assert.Equal(t, 76.67, got[0].Availability.RawPct)
	assert.Equal(t, BucketShortage, got[0].Availability.Bucket)
	assert.Equal(t, 90.0, got[1].Availability.Pct)
}

func TestDetectHiddenProblems_Sensor(t *testing.T) {
	th := DefaultThresholds()
	key := NewStationKey("1", "A")
	stations := []StationRecord{{Key: key, Availability: th.NewAvailability(92)}}
	sensors := []SensorRecord{
		{Key: key, Sensor: "ANEMO", Availability: th.NewAvailability(45)},
		{Key: key, Sensor: "TERMO", Availability: th.NewAvailability(100)},
	}
	vars := []VariableRecord{
		variable(th, "1", "A", "ANEMO", "VV", 10, 100),
		variable(th, "1", "A", "TERMO", "TEMP", 100, 100),
	}

	got := th.DetectHiddenProblems(vars, sensors, stations)

	require.Len(t, got, 1, "variables of a flagged sensor are not reported again")
	assert.Equal(t, LevelSensor, got[0].Level)
	assert.Equal(t, "ANEMO", got[0].Name)
	assert.Equal(t, 47.0, got[0].Gap)
	assert.True(t, got[0].Significant)
}

func TestDetectHiddenProblems_Variable(t *testing.T) {
	th := DefaultThresholds()
	key := NewStationKey("1", "A")
	vars := []VariableRecord{
		variable(th, "1", "A", "TERMO", "TEMP", 100, 100),
		variable(th, "1", "A", "TERMO", "HUM", 100, 100),
		variable(th, "1", "A", "TERMO", "TMAX", 100, 100),
		variable(th, "1", "A", "TERMO", "TMIN", 70, 100),
	}
	sensors := th.RollupToSensor(vars)
	stations := th.RollupToStation(sensors)

	got := th.DetectHiddenProblems(vars, sensors, stations)

	require.Len(t, got, 1)
	assert.Equal(t, HiddenProblem{
		Key:          key,
		Sensor:       "TERMO",
		Frequency:    "horario",
		Level:        LevelVariable,
		Name:         "TMIN",
		ReferencePct: 92.5,
		ItemPct:      70,
		Gap:          22.5,
		Significant:  false,
	}, got[0])
}

func TestDetectHiddenProblems_UnhealthyParentIgnored(t *testing.T) {
	th := DefaultThresholds()
	key := NewStationKey("1", "A")
	stations := []StationRecord{{Key: key, Availability: th.NewAvailability(60)}}
	sensors := []SensorRecord{{Key: key, Sensor: "ANEMO", Availability: th.NewAvailability(20)}}

	assert.Empty(t, th.DetectHiddenProblems(nil, sensors, stations))
}

func TestDetectConfigurationAnomalies(t *testing.T) {
	th := DefaultThresholds()
	vars := []VariableRecord{
		variable(th, "1", "A", "TERMO", "TEMP", 300, 200),
		variable(th, "1", "A", "TERMO", "HUM", 200, 200),
	}
	sensors := th.RollupToSensor(vars)

	got := th.DetectConfigurationAnomalies(vars, sensors)

	require.Len(t, got, 2)
	assert.Equal(t, LevelSensor, got[0].Level)
	assert.Equal(t, 125.0, got[0].ItemPct)
	assert.Equal(t, 25.0, got[0].Excess)
	assert.Equal(t, LevelVariable, got[1].Level)
	assert.Equal(t, "TEMP", got[1].Name)
	assert.Equal(t, 150.0, got[1].ItemPct)
	assert.Equal(t, 50.0, got[1].Excess)
}
