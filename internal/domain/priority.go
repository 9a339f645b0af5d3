package domain

import (
	"fmt"
	"time"
)

// Priority is the actionable tier assigned to a station.
type Priority string

const (
	PriorityHigh   Priority = "ALTA"
	PriorityMedium Priority = "MEDIA"
	PriorityLow    Priority = "BAJA"
	PriorityNone   Priority = "N/A"
)

// Priorities lists every tier from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}

// Rank orders priorities for sorting; lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// ParsePriority accepts the sheet values; anything else is N/A.
func ParsePriority(s string) Priority {
	for _, p := range Priorities {
		if string(p) == s {
			return p
		}
	}
	return PriorityNone
}

// ClassifyPriority assigns a tier from the incident state, days elapsed since
// the incident started (nil when unknown) and availability. The first
// matching rule wins:
//
//  1. no date and availability at or above critical: N/A
//  2. availability at or below the dormancy level for the dormancy period: BAJA
//  3. new: ALTA within the new-incident window, MEDIA after
//  4. recurring: MEDIA
//  5. resolved: MEDIA within the monitoring window, N/A after
//  6. dormant: MEDIA
//  7. below critical: ALTA within the new-incident window, MEDIA after
//  8. N/A
//
// Unknown days count as 0 after rule 1.
func (th Thresholds) ClassifyPriority(state IncidentState, days *int, pct float64) Priority {
	pct = th.Normalize(pct)
	if days == nil && pct >= th.CriticalPct {
		return PriorityNone
	}
	d := 0
	if days != nil {
		d = *days
	}
	if pct <= th.DormancyMaxPct && d >= th.DormancyMinDays {
		return PriorityLow
	}

	switch state {
	case IncidentNew:
		if d <= th.NewIncidentMaxDays {
			return PriorityHigh
		}
		return PriorityMedium
	case IncidentRecurring:
		return PriorityMedium
	case IncidentResolved:
		if d <= th.ToleranceDays {
			return PriorityMedium
		}
		return PriorityNone
	case IncidentDormant:
		return PriorityMedium
	}

	if pct < th.CriticalPct {
		if d <= th.NewIncidentMaxDays {
			return PriorityHigh
		}
		return PriorityMedium
	}
	return PriorityNone
}

// ExplainPriority renders the justification written next to the tier in the
// station sheet.
func (th Thresholds) ExplainPriority(p Priority, state IncidentState, days *int, pct float64) string {
	pct = th.Normalize(pct)
	elapsed := formatElapsed(days)

	var reason string
	switch {
	case p == PriorityNone:
		reason = "Operativa - Sin incidencias críticas"
	case p == PriorityLow, state == IncidentDormant:
		reason = fmt.Sprintf("Paralizada (%s) - Disponibilidad: %.1f%%", elapsed, round1(pct))
	case state == IncidentNew && pct < th.CriticalPct:
		reason = fmt.Sprintf("Nueva (%s) + Disponibilidad crítica (%.1f%%)", elapsed, round1(pct))
	case state == IncidentNew:
		reason = fmt.Sprintf("Incidencia nueva (%s) - Estado: %s", elapsed, state.Label())
	case state == IncidentRecurring:
		reason = fmt.Sprintf("Recurrente (%s) - Requiere seguimiento continuo", elapsed)
	case state == IncidentResolved:
		reason = fmt.Sprintf("Solucionada - En monitoreo post-reparación (%s)", elapsed)
	default:
		reason = fmt.Sprintf("En proceso (%s) - Disponibilidad: %.1f%%", elapsed, round1(pct))
	}

	if (p == PriorityLow || state == IncidentDormant) && days != nil && *days >= th.ClosureMinDays {
		reason += fmt.Sprintf(" - CANDIDATA A CLAUSURA (%d años)", *days/365)
	}
	return reason
}

// Prioritize fills the days-elapsed, priority and reason fields of rec.
func (th Thresholds) Prioritize(rec StationRecord, ref time.Time) StationRecord {
	days := DaysSince(rec.Incident.StartDate, ref)
	rec.DaysElapsed = days
	rec.Priority = th.ClassifyPriority(rec.Incident.State, days, rec.Availability.Pct)
	rec.PriorityReason = th.ExplainPriority(rec.Priority, rec.Incident.State, days, rec.Availability.Pct)
	return rec
}

func formatElapsed(days *int) string {
	if days == nil {
		return "sin fecha"
	}
	if *days == 1 {
		return "1 día"
	}
	return fmt.Sprintf("%d días", *days)
}
