package domain

// RecordSource tells which reporting periods a station record was built from.
type RecordSource int

const (
	SourceBoth RecordSource = iota
	SourceCurrent
	SourcePrevious
)

var sourceLabels = [...]string{
	SourceBoth:     "ambos",
	SourceCurrent:  "actual",
	SourcePrevious: "anterior",
}

func (s RecordSource) String() string {
	if s < 0 || int(s) >= len(sourceLabels) {
		return "desconocido"
	}
	return sourceLabels[s]
}

func (s RecordSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RecordSource) UnmarshalText(text []byte) error {
	for i, l := range sourceLabels {
		if l == string(text) {
			*s = RecordSource(i)
			return nil
		}
	}
	*s = SourceBoth
	return nil
}

// VariableRecord is the finest-grained availability row: one variable
// measured at one frequency by one sensor.
type VariableRecord struct {
	Key          StationKey   `json:"key"`
	Sensor       string       `json:"sensor"`
	Variable     string       `json:"variable"`
	Frequency    string       `json:"frequency"`
	DataCorrect  int          `json:"data_correct"`
	DataError    int          `json:"data_error"`
	DataExpected int          `json:"data_expected"`
	Availability Availability `json:"availability"`
}

// NewVariableRecord builds a variable row with availability derived from its
// counts. Negative counts are clamped to 0.
func (th Thresholds) NewVariableRecord(key StationKey, sensor, variable, frequency string, correct, flagged, expected int) VariableRecord {
	correct, flagged, expected = max(correct, 0), max(flagged, 0), max(expected, 0)
	return VariableRecord{
		Key:          key,
		Sensor:       sensor,
		Variable:     variable,
		Frequency:    frequency,
		DataCorrect:  correct,
		DataError:    flagged,
		DataExpected: expected,
		Availability: th.NewAvailability(ComputeAvailability(correct, flagged, expected)),
	}
}

// SensorRecord is the per-sensor rollup.
type SensorRecord struct {
	Key          StationKey   `json:"key"`
	Sensor       string       `json:"sensor"`
	Availability Availability `json:"availability"`
}

// StationRecord is the per-station rollup and the only level carrying
// incident state and priority.
type StationRecord struct {
	Key            StationKey   `json:"key"`
	Availability   Availability `json:"availability"`
	Incident       Incident     `json:"incident"`
	DaysElapsed    *int         `json:"days_elapsed,omitempty"`
	Priority       Priority     `json:"priority"`
	PriorityReason string       `json:"priority_reason"`
	PreviousPct    *float64     `json:"previous_pct,omitempty"`
	Source         RecordSource `json:"source"`
}

// Variation returns the availability change versus the previous period in
// percentage points, or nil when no previous value exists.
func (r StationRecord) Variation() *float64 {
	if r.PreviousPct == nil {
		return nil
	}
	v := round2(r.Availability.Pct - *r.PreviousPct)
	return &v
}
