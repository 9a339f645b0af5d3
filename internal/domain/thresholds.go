package domain

import "errors"

// Thresholds carries every tunable boundary used by the availability, incident,
// and priority rules. It is an immutable value passed into each stage so tests
// can vary boundaries without touching shared state.
type Thresholds struct {
	// CriticalPct is the availability below which a station is failing.
	CriticalPct float64
	// AnomalyPct is the availability above which the expected-count baseline
	// is considered misconfigured. Also the clamp applied by Normalize.
	AnomalyPct float64
	// SevereShortagePct separates "severe shortage" from "shortage".
	SevereShortagePct float64
	// DormancyMaxPct is the availability at or below which a station counts
	// as silent for dormancy purposes.
	DormancyMaxPct float64
	// SignificantGap marks a hidden problem as significant.
	SignificantGap float64

	NewIncidentMaxDays int // new incidents up to this age are ALTA
	ToleranceDays      int // new-incident tolerance and post-resolution monitoring window
	DormancyMinDays    int
	ClosureMinDays     int
}

// DefaultThresholds returns the operational defaults of the monitoring network.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CriticalPct:        80,
		AnomalyPct:         100,
		SevereShortagePct:  30,
		DormancyMaxPct:     0.5,
		SignificantGap:     30,
		NewIncidentMaxDays: 30,
		ToleranceDays:      5,
		DormancyMinDays:    90,
		ClosureMinDays:     730,
	}
}

// Validate reports the first inconsistency between thresholds.
func (th Thresholds) Validate() error {
	switch {
	case th.CriticalPct <= 0 || th.CriticalPct >= th.AnomalyPct:
		return errors.New("critical threshold must be between 0 and the anomaly threshold")
	case th.SevereShortagePct <= 0 || th.SevereShortagePct >= th.CriticalPct:
		return errors.New("severe shortage threshold must be between 0 and the critical threshold")
	case th.DormancyMaxPct < 0 || th.DormancyMaxPct >= th.SevereShortagePct:
		return errors.New("dormancy availability must be between 0 and the severe shortage threshold")
	case th.SignificantGap <= 0:
		return errors.New("significant gap must be positive")
	case th.ToleranceDays <= 0:
		return errors.New("tolerance days must be positive")
	case th.NewIncidentMaxDays <= th.ToleranceDays:
		return errors.New("new incident max days must exceed tolerance days")
	case th.DormancyMinDays <= th.NewIncidentMaxDays:
		return errors.New("dormancy min days must exceed new incident max days")
	case th.ClosureMinDays <= th.DormancyMinDays:
		return errors.New("closure min days must exceed dormancy min days")
	}
	return nil
}
