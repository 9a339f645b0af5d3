package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAvailability(t *testing.T) {
	tests := []struct {
		name                       string
		correct, flagged, expected int
		want                       float64
	}{
		{"full", 1008, 0, 1008, 100},
		{"partial", 504, 10, 1008, 50},
		{"rounded", 1, 0, 3, 33.33},
		{"zero expected", 50, 5, 0, 0},
		{"negative expected", 50, 5, -1, 0},
		{"above baseline kept", 300, 0, 200, 150},
		{"flagged ignored", 0, 100, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeAvailability(tt.correct, tt.flagged, tt.expected))
		})
	}
}

func TestComputeAvailability_DivisionSafety(t *testing.T) {
	for c := 0; c < 50; c += 7 {
		for e := 0; e < 50; e += 11 {
			assert.Zero(t, ComputeAvailability(c, e, 0))
		}
	}
}

func TestClassifyBucket(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		pct  float64
		want Bucket
	}{
		{math.NaN(), BucketNotReceived},
		{0, BucketNotReceived},
		{-3, BucketNotReceived},
		{0.01, BucketSevereShortage},
		{29.99, BucketSevereShortage},
		{30, BucketShortage},
		{79.99, BucketShortage},
		{80, BucketNormal},
		{100, BucketNormal},
		{100.01, BucketAnomalousExcess},
		{150, BucketAnomalousExcess},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.ClassifyBucket(tt.pct), "pct=%v", tt.pct)
	}
}

func TestClassifyBucket_Monotonic(t *testing.T) {
	th := DefaultThresholds()
	prev := th.ClassifyBucket(0).SeverityRank()
	for i := 1; i <= 10000; i++ {
		pct := float64(i) / 100
		rank := th.ClassifyBucket(pct).SeverityRank()
		require.LessOrEqual(t, rank, prev, "pct=%v", pct)
		prev = rank
	}
}

func TestBucket_Critical(t *testing.T) {
	assert.True(t, BucketNotReceived.Critical())
	assert.True(t, BucketSevereShortage.Critical())
	assert.True(t, BucketShortage.Critical())
	assert.False(t, BucketNormal.Critical())
	assert.False(t, BucketAnomalousExcess.Critical())
}

func TestBucket_Labels(t *testing.T) {
	for b := BucketNotReceived; b <= BucketAnomalousExcess; b++ {
		parsed, ok := ParseBucketLabel(b.Label())
		require.True(t, ok, b.String())
		assert.Equal(t, b, parsed)
	}
	_, ok := ParseBucketLabel("whatever")
	assert.False(t, ok)

	var b Bucket
	require.NoError(t, b.UnmarshalText([]byte("severe_shortage")))
	assert.Equal(t, BucketSevereShortage, b)
	assert.Error(t, b.UnmarshalText([]byte("nope")))
}

func TestNormalize(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 0.0, th.Normalize(math.NaN()))
	assert.Equal(t, 55.5, th.Normalize(55.5))
	assert.Equal(t, 100.0, th.Normalize(150))
}

func TestNewVariableRecord_Anomaly(t *testing.T) {
	th := DefaultThresholds()
	v := th.NewVariableRecord(NewStationKey("1", "A"), "TERMOMETRO", "TEMP", "horario", 300, 0, 200)

	assert.Equal(t, 150.0, v.Availability.Pct)
	assert.Equal(t, BucketAnomalousExcess, v.Availability.Bucket)
	assert.False(t, v.Availability.Bucket.Critical())
}

func TestNewVariableRecord_ClampsNegativeCounts(t *testing.T) {
	th := DefaultThresholds()
	v := th.NewVariableRecord(NewStationKey("1", "A"), "S", "V", "diario", -5, -1, 7)

	assert.Zero(t, v.DataCorrect)
	assert.Zero(t, v.DataError)
	assert.Equal(t, BucketNotReceived, v.Availability.Bucket)
}
