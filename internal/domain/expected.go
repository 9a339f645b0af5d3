package domain

import (
	"strings"
)

// DefaultPeriodDays is the length of a weekly reporting period.
const DefaultPeriodDays = 7

// samplesPerDay maps measurement frequencies to expected samples per day.
// "minuto" variables are logged every 10 minutes.
var samplesPerDay = map[string]int{
	"minuto":  144,
	"horario": 24,
	"diario":  1,
}

// ExpectedCount returns the number of samples a variable at the given
// frequency should produce over days. Unknown frequencies yield 0.
func ExpectedCount(frequency string, days int) int {
	f := strings.ToLower(strings.TrimSpace(frequency))
	for prefix, n := range samplesPerDay {
		if strings.HasPrefix(f, prefix) {
			return n * max(days, 0)
		}
	}
	return 0
}

// DefaultExcludedVariables are operational parameters reported alongside
// meteorological variables but not counted toward availability.
var DefaultExcludedVariables = []string{"N_BATERIA", "N_TEMP_INT_TRANS"}

// VariableLoss summarizes how many expected samples never arrived.
type VariableLoss struct {
	Received int     `json:"received"`
	Lost     int     `json:"lost"`
	LossPct  float64 `json:"loss_pct"`
	ErrorPct float64 `json:"error_pct"`
}

// Loss returns the loss statistics of a variable. Received counts both
// correct and flagged samples. Percentages are 0 when undefined.
func (v VariableRecord) Loss() VariableLoss {
	received := v.DataCorrect + v.DataError
	l := VariableLoss{Received: received, Lost: max(v.DataExpected-received, 0)}
	if v.DataExpected > 0 {
		l.LossPct = round2(float64(l.Lost) / float64(v.DataExpected) * 100)
	}
	if received > 0 {
		l.ErrorPct = round2(float64(v.DataError) / float64(received) * 100)
	}
	return l
}
