package domain

import (
	"fmt"
	"math"
	"strings"
)

// Bucket is the availability classification of a single percentage.
type Bucket int

const (
	BucketNotReceived Bucket = iota
	BucketSevereShortage
	BucketShortage
	BucketNormal
	BucketAnomalousExcess
)

var bucketNames = [...]string{
	BucketNotReceived:     "not_received",
	BucketSevereShortage:  "severe_shortage",
	BucketShortage:        "shortage",
	BucketNormal:          "normal",
	BucketAnomalousExcess: "anomalous_excess",
}

var bucketLabels = [...]string{
	BucketNotReceived:     "No recibido en el período",
	BucketSevereShortage:  "Problemas de disponibilidad (< 30%)",
	BucketShortage:        "Problemas de disponibilidad (≥ 30%)",
	BucketNormal:          "Normal (≥ 80%)",
	BucketAnomalousExcess: "Más del 100%",
}

// String returns the stable machine name used in JSON, metrics and Kafka headers.
func (b Bucket) String() string {
	if b < 0 || int(b) >= len(bucketNames) {
		return fmt.Sprintf("bucket(%d)", int(b))
	}
	return bucketNames[b]
}

// Label returns the sheet label read by report consumers.
func (b Bucket) Label() string {
	if b < 0 || int(b) >= len(bucketLabels) {
		return b.String()
	}
	return bucketLabels[b]
}

// Critical reports whether the bucket counts as a failing station.
// Anomalous excess is a configuration problem, never a failure.
func (b Bucket) Critical() bool {
	return b == BucketNotReceived || b == BucketSevereShortage || b == BucketShortage
}

// SeverityRank orders buckets from healthy (0) to worst (4).
func (b Bucket) SeverityRank() int {
	switch b {
	case BucketNotReceived:
		return 4
	case BucketSevereShortage:
		return 3
	case BucketShortage:
		return 2
	case BucketAnomalousExcess:
		return 1
	default:
		return 0
	}
}

func (b Bucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bucket) UnmarshalText(text []byte) error {
	s := string(text)
	for i, name := range bucketNames {
		if name == s {
			*b = Bucket(i)
			return nil
		}
	}
	if parsed, ok := ParseBucketLabel(s); ok {
		*b = parsed
		return nil
	}
	return fmt.Errorf("unknown availability bucket %q", s)
}

// ParseBucketLabel maps a sheet label (or machine name) back to its bucket.
func ParseBucketLabel(s string) (Bucket, bool) {
	s = strings.TrimSpace(s)
	for i := range bucketLabels {
		if strings.EqualFold(s, bucketLabels[i]) || strings.EqualFold(s, bucketNames[i]) {
			return Bucket(i), true
		}
	}
	return BucketNotReceived, false
}

// Availability is a percentage together with its derived bucket.
// For variables Pct and RawPct are equal. For rollups Pct is the mean of
// normalized member values and RawPct the mean of raw ones.
type Availability struct {
	Pct    float64 `json:"pct"`
	RawPct float64 `json:"raw_pct"`
	Bucket Bucket  `json:"bucket"`
}

// ComputeAvailability returns correct/expected as a percentage rounded to two
// decimals. Flagged data never counts toward availability. Values above 100
// are kept so misconfigured baselines stay visible.
func ComputeAvailability(correct, flagged, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	return round2(float64(correct) / float64(expected) * 100)
}

// ClassifyBucket maps a percentage to its bucket. NaN and zero are "not received".
func (th Thresholds) ClassifyBucket(pct float64) Bucket {
	switch {
	case math.IsNaN(pct) || pct <= 0:
		return BucketNotReceived
	case pct > th.AnomalyPct:
		return BucketAnomalousExcess
	case pct >= th.CriticalPct:
		return BucketNormal
	case pct >= th.SevereShortagePct:
		return BucketShortage
	default:
		return BucketSevereShortage
	}
}

// Normalize clamps pct to the anomaly threshold for averaging and priority
// comparisons. NaN becomes 0.
func (th Thresholds) Normalize(pct float64) float64 {
	if math.IsNaN(pct) {
		return 0
	}
	return math.Min(pct, th.AnomalyPct)
}

// NewAvailability builds a single-valued availability with its bucket derived
// from the raw percentage.
func (th Thresholds) NewAvailability(pct float64) Availability {
	if math.IsNaN(pct) {
		pct = 0
	}
	return Availability{Pct: pct, RawPct: pct, Bucket: th.ClassifyBucket(pct)}
}

// rollupAvailability builds a rollup availability. The bucket follows the
// normalized mean, so a rollup is never classified as anomalous.
func (th Thresholds) rollupAvailability(normalizedMean, rawMean float64) Availability {
	pct := round2(normalizedMean)
	return Availability{Pct: pct, RawPct: round2(rawMean), Bucket: th.ClassifyBucket(pct)}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
